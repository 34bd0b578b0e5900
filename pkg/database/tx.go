package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// TxRunner runs fn inside a multi-document transaction when the deployment
// supports it. Store calls made with the ctx passed to fn join the
// transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Transactional() bool
}

type mongoTx struct {
	client  *mongo.Client
	enabled bool
}

// NewTxRunner returns a runner backed by client sessions. With enabled false
// (standalone servers) WithinTx refuses to run; callers check Transactional
// first and fall back to the journaled path.
func NewTxRunner(client *mongo.Client, enabled bool) TxRunner {
	return &mongoTx{client: client, enabled: enabled && client != nil}
}

func (t *mongoTx) Transactional() bool { return t.enabled }

func (t *mongoTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fmt.Errorf("database: transactions are disabled")
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("database: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txOpts)
	return err
}

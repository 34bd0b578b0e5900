package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type recordingInserter struct {
	mu   sync.Mutex
	docs []LogDocument
}

func (r *recordingInserter) InsertMany(_ context.Context, documents []interface{}, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range documents {
		r.docs = append(r.docs, d.(LogDocument))
	}
	return &mongo.InsertManyResult{}, nil
}

func TestMongoHandlerFlushesOnClose(t *testing.T) {
	sink := &recordingInserter{}
	h := NewMongoHandler(sink, slog.LevelInfo)

	log := slog.New(h).With("request_id", "rid-1")
	log.Info("order placed", "order_id", "o1")
	log.Debug("dropped by level")
	log.WithGroup("stock").Warn("low", "quantity", 2)

	h.Close()
	h.Close()

	require.Len(t, sink.docs, 2)
	assert.Equal(t, "order placed", sink.docs[0].Msg)
	assert.Equal(t, "rid-1", sink.docs[0].RequestID)
	assert.Equal(t, "o1", sink.docs[0].Attrs["order_id"])
	assert.Equal(t, "WARN", sink.docs[1].Level)
	assert.Contains(t, sink.docs[1].Attrs, "stock.quantity")
}

func TestSetupFansOutToExtraHandlers(t *testing.T) {
	var buf bytes.Buffer
	sink := &recordingInserter{}
	h := NewMongoHandler(sink, slog.LevelInfo)

	Setup(true, &buf, h)
	defer Setup(false, &bytes.Buffer{})

	Info("hello", "k", "v")
	h.Close()

	assert.True(t, strings.Contains(buf.String(), `"msg":"hello"`), buf.String())
	require.Len(t, sink.docs, 1)
}

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, L(), WithCtx(context.Background()))

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := InjectLogger(context.Background(), custom)
	assert.Same(t, custom, WithCtx(ctx))
}

package queue

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// failedJobDoc is the shape stored in the failed_jobs collection.
type failedJobDoc struct {
	JobType  string    `bson:"job_type"`
	Payload  string    `bson:"payload"`
	Error    string    `bson:"error"`
	Attempts int       `bson:"attempts"`
	FailedAt time.Time `bson:"failed_at"`
}

type oneInserter interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// MongoFailedJobStore writes exhausted jobs to a Mongo collection.
type MongoFailedJobStore struct {
	col oneInserter
}

func NewMongoFailedJobStore(col oneInserter) *MongoFailedJobStore {
	return &MongoFailedJobStore{col: col}
}

func (s *MongoFailedJobStore) Save(ctx context.Context, job FailedJob) error {
	_, err := s.col.InsertOne(ctx, failedJobDoc{
		JobType:  job.JobType,
		Payload:  string(job.Payload),
		Error:    job.Err,
		Attempts: job.Attempts,
		FailedAt: job.FailedAt,
	})
	if err != nil {
		return fmt.Errorf("queue: save failed job %s: %w", job.JobType, err)
	}
	return nil
}

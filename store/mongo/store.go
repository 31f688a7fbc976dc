package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/VTGare/Tally/store"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoStore struct {
	*counterStore
	client *mongo.Client
}

func New(ctx context.Context, uri, database string) (store.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)

	return &mongoStore{
		counterStore: &counterStore{
			db:      db,
			col:     db.Collection("counters"),
			history: db.Collection("counting_history"),
		},
		client: client,
	}, nil
}

func (ms *mongoStore) Init(ctx context.Context) error {
	return nil
}

func (ms *mongoStore) Close(ctx context.Context) error {
	return ms.client.Disconnect(ctx)
}

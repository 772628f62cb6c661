package main

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tourneyhub/tourneyhub/client-core/internal/database"
)

// openDatabase connects to the configured MongoDB. The returned func
// disconnects the client.
func openDatabase(ctx context.Context) (*mongo.Database, func(), error) {
	if cfg.MongoDB.URI == "" {
		return nil, nil, errors.New("MONGODB_URI is not set")
	}
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = client.Disconnect(context.Background()) }
	return client.Database(cfg.MongoDB.Database), closeFn, nil
}

package infrastructure

import (
	"context"
	"fmt"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"reactive-user-service/internal/adapter/db/mongo"
	"reactive-user-service/internal/config"
	"reactive-user-service/pkg/logger"
)

// NewMongo connects to MongoDB, verifies the primary answers and ensures the
// users collection indexes exist.
func NewMongo(ctx context.Context, cfg *config.Config, l *zap.Logger) (*mongodriver.Client, *mongodriver.Collection, error) {
	slow := time.Duration(cfg.Logger.SlowQuerySeconds * float64(time.Second))

	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetConnectTimeout(cfg.Mongo.ConnectTimeout()).
		SetMaxPoolSize(cfg.Mongo.MaxPoolSize).
		SetMonitor(logger.NewMongoMonitor(l, slow))

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout())
	defer cancel()

	client, err := mongodriver.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	if err := mongo.EnsureIndexes(connectCtx, coll); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	l.Info("mongo connected successfully",
		zap.String("database", cfg.Mongo.Database),
		zap.String("collection", cfg.Mongo.Collection),
		zap.Uint64("max_pool_size", cfg.Mongo.MaxPoolSize),
	)

	return client, coll, nil
}

// CloseMongo disconnects the client
func CloseMongo(ctx context.Context, client *mongodriver.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongo: %w", err)
	}
	return nil
}

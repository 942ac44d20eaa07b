package main

import (
	"context"
	"fmt"
	"time"

	"shopify-video-layer/internal/config"
	"shopify-video-layer/internal/infrastructure/encryption"
	"shopify-video-layer/internal/infrastructure/repository"
	shopifyinfra "shopify-video-layer/internal/infrastructure/shopify"
	"shopify-video-layer/internal/ports"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// newShopStore opens the configured backend and, when a key is set, wraps it
// so access tokens are encrypted at rest. The returned func releases the
// backend.
func newShopStore(ctx context.Context, logger zerolog.Logger) (ports.ShopStore, func(), error) {
	var (
		store   ports.ShopStore
		release = func() {}
	)

	switch cfg.StoreBackend {
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}

		mongoStore := repository.NewMongoShopStore(client.Database(cfg.MongoDatabase))
		if err := mongoStore.EnsureIndexes(connectCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		store = mongoStore
		release = func() { _ = client.Disconnect(context.Background()) }

	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		store = repository.NewDynamoShopStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable)

	default:
		store = repository.NewMemoryShopStore()
	}

	logger.Info().Str("backend", cfg.StoreBackend).Msg("Shop store ready")

	if cfg.TokenEncryption == "" {
		logger.Warn().Msg("TOKEN_ENCRYPTION_KEY not set, access tokens are stored unencrypted")
		return store, release, nil
	}

	encryptionService, err := encryption.NewServiceFromBase64(cfg.TokenEncryption)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to initialize encryption service: %w", err)
	}
	return shopifyinfra.NewTokenManager(encryptionService, logger).SecureStore(store), release, nil
}

func newStateStore(ctx context.Context) (ports.OAuthStateStore, func(), error) {
	if cfg.StateBackend != config.BackendRedis {
		return repository.NewMemoryStateStore(), func() {}, nil
	}

	rdb := repository.NewRedisClient(cfg.RedisURL)
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return repository.NewRedisStateStore(rdb), func() { _ = rdb.Close() }, nil
}

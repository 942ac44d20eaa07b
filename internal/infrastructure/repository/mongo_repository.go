package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/infrastructure/repository/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shopsCollection = "shops"

// MongoShopStore implements ports.ShopStore using MongoDB
type MongoShopStore struct {
	collection *mongo.Collection
}

// NewMongoShopStore creates a new MongoDB shop store
func NewMongoShopStore(db *mongo.Database) *MongoShopStore {
	return &MongoShopStore{
		collection: db.Collection(shopsCollection),
	}
}

// EnsureIndexes creates the unique index on the shop domain.
func (r *MongoShopStore) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "shop", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create shop index: %w", err)
	}
	return nil
}

// Put saves or replaces a shop connection
func (r *MongoShopStore) Put(ctx context.Context, conn *domain.ShopConnection) error {
	doc := entity.MongoShopDocFromDomain(conn)
	doc.UpdatedAt = time.Now().UTC()

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shop": conn.Shop}
	update := bson.M{"$set": doc}

	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("%w: failed to save shop: %v", domain.ErrPersistenceFailure, err)
	}

	return nil
}

// Get retrieves a shop connection by domain
func (r *MongoShopStore) Get(ctx context.Context, shop string) (*domain.ShopConnection, error) {
	var doc entity.MongoShopDoc
	filter := bson.M{"shop": shop}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get shop: %v", domain.ErrPersistenceFailure, err)
	}

	return doc.ToDomain(), nil
}

// Delete removes a shop connection
func (r *MongoShopStore) Delete(ctx context.Context, shop string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"shop": shop}); err != nil {
		return fmt.Errorf("%w: failed to delete shop: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

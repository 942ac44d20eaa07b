package entity

import (
	"fmt"
	"time"

	"shopify-video-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopDoc represents a shop connection in MongoDB
type MongoShopDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Shop        string             `bson:"shop"`
	AccessToken string             `bson:"accessToken"`
	ConnectedAt time.Time          `bson:"connectedAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopDoc) ToDomain() *domain.ShopConnection {
	return &domain.ShopConnection{
		Shop:        d.Shop,
		AccessToken: d.AccessToken,
		ConnectedAt: d.ConnectedAt,
	}
}

// MongoShopDocFromDomain converts a domain entity to a MongoDB document
func MongoShopDocFromDomain(conn *domain.ShopConnection) *MongoShopDoc {
	return &MongoShopDoc{
		Shop:        conn.Shop,
		AccessToken: conn.AccessToken,
		ConnectedAt: conn.ConnectedAt,
	}
}

const (
	DynamoShopPKPrefix = "SHOP#"
	DynamoShopSK       = "CONNECTION"
)

// DynamoShopItem is the DynamoDB item for a shop connection.
// PK = SHOP#<domain>, SK = CONNECTION.
type DynamoShopItem struct {
	PK          string    `dynamodbav:"PK"`
	SK          string    `dynamodbav:"SK"`
	Shop        string    `dynamodbav:"Shop"`
	AccessToken string    `dynamodbav:"AccessToken"`
	ConnectedAt time.Time `dynamodbav:"ConnectedAt"`
	UpdatedAt   time.Time `dynamodbav:"UpdatedAt"`
}

// DynamoShopPK returns the partition key for shop.
func DynamoShopPK(shop string) string {
	return fmt.Sprintf("%s%s", DynamoShopPKPrefix, shop)
}

func (i *DynamoShopItem) ToDomain() *domain.ShopConnection {
	return &domain.ShopConnection{
		Shop:        i.Shop,
		AccessToken: i.AccessToken,
		ConnectedAt: i.ConnectedAt,
	}
}

func DynamoShopItemFromDomain(conn *domain.ShopConnection) *DynamoShopItem {
	return &DynamoShopItem{
		PK:          DynamoShopPK(conn.Shop),
		SK:          DynamoShopSK,
		Shop:        conn.Shop,
		AccessToken: conn.AccessToken,
		ConnectedAt: conn.ConnectedAt,
	}
}

package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/infrastructure/repository/entity"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the store needs.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoShopStore implements ports.ShopStore on a single DynamoDB table
// keyed by PK/SK.
type DynamoShopStore struct {
	ddb   DynamoAPI
	table string
}

// NewDynamoShopStore creates a new shop store on the given DynamoDB table.
func NewDynamoShopStore(ddb DynamoAPI, table string) *DynamoShopStore {
	return &DynamoShopStore{ddb: ddb, table: table}
}

func shopKey(shop string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: entity.DynamoShopPK(shop)},
		"SK": &types.AttributeValueMemberS{Value: entity.DynamoShopSK},
	}
}

func (s *DynamoShopStore) Put(ctx context.Context, conn *domain.ShopConnection) error {
	item := entity.DynamoShopItemFromDomain(conn)
	item.UpdatedAt = time.Now().UTC()

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal shop: %v", domain.ErrPersistenceFailure, err)
	}

	if _, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("%w: failed to save shop: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

func (s *DynamoShopStore) Get(ctx context.Context, shop string) (*domain.ShopConnection, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            shopKey(shop),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get shop: %v", domain.ErrPersistenceFailure, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item entity.DynamoShopItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal shop: %v", domain.ErrPersistenceFailure, err)
	}
	return item.ToDomain(), nil
}

func (s *DynamoShopStore) Delete(ctx context.Context, shop string) error {
	if _, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       shopKey(shop),
	}); err != nil {
		return fmt.Errorf("%w: failed to delete shop: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

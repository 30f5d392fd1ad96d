package catalog

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/campus-orderflow/internal/aws"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

// ErrNotFound is returned when no product has the requested id.
var ErrNotFound = errors.New("product not found")

// Store reads and writes the products table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// Put creates or replaces a product.
func (s *Store) Put(ctx context.Context, p Product) error {
	if p.ID == "" || p.Seller.ID == "" {
		return fmt.Errorf("product id and seller id are required")
	}
	item, err := attributevalue.MarshalMap(productRecord{
		ProductID:      p.ID,
		Title:          p.Title,
		Price:          p.Price.String(),
		SellerID:       p.Seller.ID,
		SellerName:     p.Seller.Name,
		DeliveryMethod: string(p.DeliveryMethod),
		ImageURL:       p.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: sdkaws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches a product by id.
func (s *Store) Get(ctx context.Context, productID string) (Product, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: sdkaws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
	})
	if err != nil {
		return Product{}, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return Product{}, ErrNotFound
	}

	var rec productRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Product{}, fmt.Errorf("unmarshal product: %w", err)
	}
	price, err := decimal.NewFromString(rec.Price)
	if err != nil {
		return Product{}, fmt.Errorf("product %s: price %q is not valid: %w", rec.ProductID, rec.Price, err)
	}
	return Product{
		ID:             rec.ProductID,
		Title:          rec.Title,
		Price:          price,
		Seller:         orders.Party{ID: rec.SellerID, Name: rec.SellerName},
		DeliveryMethod: orders.DeliveryMethod(rec.DeliveryMethod),
		ImageURL:       rec.ImageURL,
	}, nil
}

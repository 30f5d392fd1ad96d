package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/campus-orderflow/internal/aws"
)

// Global secondary indexes on the orders table.
const (
	BuyerIndex  = "buyer_id-index"
	SellerIndex = "seller_id-index"
)

var (
	// ErrNotFound is returned when no order has the requested id.
	ErrNotFound = errors.New("order not found")
	// ErrStatusMismatch is returned when a conditional status write finds a
	// status other than the one the caller read.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrIdempotencyConflict is returned when the idempotency key of a create
	// request was already used.
	ErrIdempotencyConflict = errors.New("idempotency key already used")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// CreateWithIdempotency atomically writes the idempotency record and the new
// order (guarded by attribute_not_exists(order_id)) with one
// TransactWriteItems call. The record may replace one whose expires_at has
// passed but which DynamoDB has not removed yet.
func (s *Store) CreateWithIdempotency(ctx context.Context, idempotencyTable string, idempotencyItem any, order Order) error {
	if err := order.CheckInvariants(); err != nil {
		return err
	}

	idempMap, err := attributevalue.MarshalMap(idempotencyItem)
	if err != nil {
		return fmt.Errorf("marshal idempotency item: %w", err)
	}

	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}

	orderMap, err := attributevalue.MarshalMap(toRecord(order))
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	input := &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           sdkaws.String(idempotencyTable),
					Item:                idempMap,
					ConditionExpression: sdkaws.String("attribute_not_exists(idempotency_key) OR expires_at < :now"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName:           sdkaws.String(s.tableName),
					Item:                orderMap,
					ConditionExpression: sdkaws.String("attribute_not_exists(order_id)"),
				},
			},
		},
	}

	if _, err := s.client.TransactWriteItems(ctx, input); err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			if len(tce.CancellationReasons) > 0 && sdkaws.ToString(tce.CancellationReasons[0].Code) == "ConditionalCheckFailed" {
				return ErrIdempotencyConflict
			}
			return fmt.Errorf("transaction canceled: %w", err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id.
func (s *Store) Get(ctx context.Context, orderID string) (Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: sdkaws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return Order{}, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return Order{}, ErrNotFound
	}
	var rec orderRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Order{}, fmt.Errorf("unmarshal order: %w", err)
	}
	return fromRecord(rec)
}

// Transition replaces the stored order with next, provided the stored status
// is still expected. Returns ErrStatusMismatch if the condition failed.
func (s *Store) Transition(ctx context.Context, expected Status, next Order) error {
	item, err := attributevalue.MarshalMap(toRecord(next))
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                sdkaws.String(s.tableName),
		Item:                     item,
		ConditionExpression:      sdkaws.String("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberS{Value: string(expected)},
		},
	})
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// ListByParty returns the orders where partyID plays role, newest first,
// optionally restricted to one status.
func (s *Store) ListByParty(ctx context.Context, role Role, partyID string, status *Status) ([]Order, error) {
	index, attr, err := indexFor(role)
	if err != nil {
		return nil, err
	}

	input := &dyn.QueryInput{
		TableName:                sdkaws.String(s.tableName),
		IndexName:                sdkaws.String(index),
		KeyConditionExpression:   sdkaws.String("#p = :p"),
		ExpressionAttributeNames: map[string]string{"#p": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: partyID},
		},
	}
	if status != nil {
		input.FilterExpression = sdkaws.String("#s = :s")
		input.ExpressionAttributeNames["#s"] = "status"
		input.ExpressionAttributeValues[":s"] = &types.AttributeValueMemberS{Value: string(*status)}
	}

	var out []Order
	for {
		page, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", index, err)
		}
		var recs []orderRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, rec := range recs {
			o, err := fromRecord(rec)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountByStatus counts partyID's orders per status. Every status is present
// in the result.
func (s *Store) CountByStatus(ctx context.Context, role Role, partyID string) (map[Status]int, error) {
	all, err := s.ListByParty(ctx, role, partyID, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[Status]int, len(AllStatuses))
	for _, st := range AllStatuses {
		counts[st] = 0
	}
	for _, o := range all {
		counts[o.Status]++
	}
	return counts, nil
}

func indexFor(role Role) (index, attr string, err error) {
	switch role {
	case RoleBuyer:
		return BuyerIndex, "buyer_id", nil
	case RoleSeller:
		return SellerIndex, "seller_id", nil
	}
	return "", "", fmt.Errorf("unknown role %q", role)
}

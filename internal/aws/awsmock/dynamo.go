// Package awsmock provides in-memory stand-ins for the AWS clients used by
// the stores, publisher and metrics recorder. They understand exactly the
// expression shapes this module writes, nothing more.
package awsmock

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type table struct {
	pk      string
	indexes map[string]string // index name -> partition attribute
	keys    []string          // insertion order
	items   map[string]map[string]types.AttributeValue
}

// Dynamo is an in-memory DynamoDB. Tables must be created before use.
type Dynamo struct {
	mu     sync.Mutex
	tables map[string]*table

	// Err, when set, is returned by every call.
	Err error

	PutCalls, GetCalls, UpdateCalls, QueryCalls, TransactCalls int
}

func NewDynamo() *Dynamo {
	return &Dynamo{tables: map[string]*table{}}
}

// CreateTable registers a table keyed by pk with optional global secondary
// indexes given as index name -> partition attribute.
func (d *Dynamo) CreateTable(name, pk string, indexes map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tables[name] = &table{
		pk:      pk,
		indexes: indexes,
		items:   map[string]map[string]types.AttributeValue{},
	}
}

// Item returns a copy of the stored item with key value key.
func (d *Dynamo) Item(tableName, key string) (map[string]types.AttributeValue, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tables[tableName]
	if !ok {
		return nil, false
	}
	item, ok := t.items[key]
	return copyItem(item), ok
}

// Len returns the number of items in a table.
func (d *Dynamo) Len(tableName string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

func (d *Dynamo) table(name *string) (*table, error) {
	if name == nil {
		return nil, errors.New("missing table name")
	}
	t, ok := d.tables[*name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: sdkaws.String("table not found: " + *name)}
	}
	return t, nil
}

func (t *table) keyOf(item map[string]types.AttributeValue) (string, error) {
	v, ok := item[t.pk].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("missing string key attribute %q", t.pk)
	}
	return v.Value, nil
}

func (t *table) put(key string, item map[string]types.AttributeValue) {
	if _, exists := t.items[key]; !exists {
		t.keys = append(t.keys, key)
	}
	t.items[key] = copyItem(item)
}

func (d *Dynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PutCalls++
	if d.Err != nil {
		return nil, d.Err
	}
	t, err := d.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := t.keyOf(params.Item)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(sdkaws.ToString(params.ConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, t.items[key])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
	}
	t.put(key, params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.GetCalls++
	if d.Err != nil {
		return nil, d.Err
	}
	t, err := d.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[key]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

// UpdateItem supports "SET a = :v, #b = :w" expressions and upserts like
// DynamoDB does.
func (d *Dynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.UpdateCalls++
	if d.Err != nil {
		return nil, d.Err
	}
	t, err := d.table(params.TableName)
	if err != nil {
		return nil, err
	}
	key, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	existing := t.items[key]
	ok, err := evalCondition(sdkaws.ToString(params.ConditionExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
	}

	item := copyItem(existing)
	if item == nil {
		item = copyItem(params.Key)
	}
	expr := strings.TrimSpace(sdkaws.ToString(params.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("unsupported update expression %q", expr)
	}
	for _, assignment := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		lhs, rhs, found := strings.Cut(assignment, "=")
		if !found {
			return nil, fmt.Errorf("unsupported assignment %q", assignment)
		}
		name := resolveName(strings.TrimSpace(lhs), params.ExpressionAttributeNames)
		v, ok := params.ExpressionAttributeValues[strings.TrimSpace(rhs)]
		if !ok {
			return nil, fmt.Errorf("missing expression value %q", strings.TrimSpace(rhs))
		}
		item[name] = v
	}
	t.put(key, item)
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

// Query supports a single equality key condition, on the table key or on a
// registered index, plus an optional filter of the same shapes evalCondition
// understands. Results come back in insertion order in one page.
func (d *Dynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.QueryCalls++
	if d.Err != nil {
		return nil, d.Err
	}
	t, err := d.table(params.TableName)
	if err != nil {
		return nil, err
	}
	partition := t.pk
	if params.IndexName != nil {
		attr, ok := t.indexes[*params.IndexName]
		if !ok {
			return nil, fmt.Errorf("unknown index %q", *params.IndexName)
		}
		partition = attr
	}

	lhs, rhs, found := strings.Cut(sdkaws.ToString(params.KeyConditionExpression), "=")
	if !found {
		return nil, fmt.Errorf("unsupported key condition %q", sdkaws.ToString(params.KeyConditionExpression))
	}
	if name := resolveName(strings.TrimSpace(lhs), params.ExpressionAttributeNames); name != partition {
		return nil, fmt.Errorf("key condition on %q, partition key is %q", name, partition)
	}
	want := params.ExpressionAttributeValues[strings.TrimSpace(rhs)]

	out := &dyn.QueryOutput{}
	for _, k := range t.keys {
		item := t.items[k]
		if !attributeEqual(item[partition], want) {
			continue
		}
		ok, err := evalCondition(sdkaws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues, item)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Items = append(out.Items, copyItem(item))
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

// TransactWriteItems supports Put entries only and is all-or-nothing.
func (d *Dynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.TransactCalls++
	if d.Err != nil {
		return nil, d.Err
	}

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	cancelled := false
	for i, it := range params.TransactItems {
		p := it.Put
		if p == nil {
			return nil, errors.New("only Put is supported in transactions")
		}
		t, err := d.table(p.TableName)
		if err != nil {
			return nil, err
		}
		key, err := t.keyOf(p.Item)
		if err != nil {
			return nil, err
		}
		ok, err := evalCondition(sdkaws.ToString(p.ConditionExpression), p.ExpressionAttributeNames, p.ExpressionAttributeValues, t.items[key])
		if err != nil {
			return nil, err
		}
		reasons[i] = types.CancellationReason{Code: sdkaws.String("None")}
		if !ok {
			cancelled = true
			reasons[i] = types.CancellationReason{Code: sdkaws.String("ConditionalCheckFailed")}
		}
	}
	if cancelled {
		return nil, &types.TransactionCanceledException{
			Message:             sdkaws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, it := range params.TransactItems {
		t, _ := d.table(it.Put.TableName)
		key, _ := t.keyOf(it.Put.Item)
		t.put(key, it.Put.Item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

// evalCondition understands "", "attribute_not_exists(x)",
// "attribute_exists(x)", "a = :v" and "a < :v" (numbers), joined with " AND "
// and then " OR ".
func evalCondition(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	for _, alt := range strings.Split(expr, " OR ") {
		ok, err := evalAll(alt, names, values, item)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func evalAll(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	for _, part := range strings.Split(expr, " AND ") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "attribute_not_exists(") && strings.HasSuffix(part, ")"):
			name := resolveName(part[len("attribute_not_exists("):len(part)-1], names)
			if _, ok := item[name]; ok {
				return false, nil
			}
		case strings.HasPrefix(part, "attribute_exists(") && strings.HasSuffix(part, ")"):
			name := resolveName(part[len("attribute_exists("):len(part)-1], names)
			if _, ok := item[name]; !ok {
				return false, nil
			}
		case strings.Contains(part, "<"):
			lhs, rhs, _ := strings.Cut(part, "<")
			want, ok := values[strings.TrimSpace(rhs)]
			if !ok {
				return false, fmt.Errorf("missing expression value %q", strings.TrimSpace(rhs))
			}
			less, err := numberLess(item[resolveName(strings.TrimSpace(lhs), names)], want)
			if err != nil {
				return false, err
			}
			if !less {
				return false, nil
			}
		default:
			lhs, rhs, found := strings.Cut(part, "=")
			if !found {
				return false, fmt.Errorf("unsupported condition %q", part)
			}
			want, ok := values[strings.TrimSpace(rhs)]
			if !ok {
				return false, fmt.Errorf("missing expression value %q", strings.TrimSpace(rhs))
			}
			if !attributeEqual(item[resolveName(strings.TrimSpace(lhs), names)], want) {
				return false, nil
			}
		}
	}
	return true, nil
}

// numberLess reports a < b for numeric attributes. A missing a is never less.
func numberLess(a, b types.AttributeValue) (bool, error) {
	an, ok := a.(*types.AttributeValueMemberN)
	if !ok {
		return false, nil
	}
	bn, ok := b.(*types.AttributeValueMemberN)
	if !ok {
		return false, errors.New("comparison value must be a number")
	}
	x, err := strconv.ParseFloat(an.Value, 64)
	if err != nil {
		return false, err
	}
	y, err := strconv.ParseFloat(bn.Value, 64)
	if err != nil {
		return false, err
	}
	return x < y, nil
}

func resolveName(name string, names map[string]string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "#") {
		if resolved, ok := names[name]; ok {
			return resolved
		}
	}
	return name
}

func attributeEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case nil:
		return b == nil
	}
	return reflect.DeepEqual(a, b)
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

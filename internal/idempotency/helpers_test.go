package idempotency

import (
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func putInput(table string, item map[string]types.AttributeValue) *dyn.PutItemInput {
	return &dyn.PutItemInput{TableName: sdkaws.String(table), Item: item}
}

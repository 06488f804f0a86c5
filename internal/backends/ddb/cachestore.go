package ddb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// CacheStore implements ports.CacheStore using one TTL item per key.
// DynamoDB deletes expired items lazily, so Get also checks the expiry
// attribute itself; the table's TTL setting only bounds storage growth.
type CacheStore struct {
	table string
	cli   *dynamodb.Client
}

type checkItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ExpiresAt int64  `dynamodbav:"ttl"`
	types.VerificationResult
}

func NewCacheStore(table string, cli *dynamodb.Client) *CacheStore {
	createTableIfNotExists(cli, table)
	return &CacheStore{table: table, cli: cli}
}

func (s *CacheStore) Get(ctx context.Context, key string) (types.VerificationResult, bool, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkCheck(key)},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skResult()},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return types.VerificationResult{}, false, types.Err(types.ErrStoreAccess, err, "")
	}
	if out.Item == nil {
		return types.VerificationResult{}, false, nil
	}
	var item checkItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return types.VerificationResult{}, false, types.Err(types.ErrStoreAccess, err, "corrupt cache item")
	}
	if time.Now().Unix() >= item.ExpiresAt {
		return types.VerificationResult{}, false, nil
	}
	return item.VerificationResult, true, nil
}

func (s *CacheStore) Set(ctx context.Context, key string, value types.VerificationResult, ttl time.Duration) error {
	av, err := attributevalue.MarshalMap(checkItem{
		PK:                 pkCheck(key),
		SK:                 skResult(),
		ExpiresAt:          time.Now().Add(ttl).Unix(),
		VerificationResult: value,
	})
	if err != nil {
		return err
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      av,
	})
	if err != nil {
		return types.Err(types.ErrStoreAccess, err, "")
	}
	return nil
}

package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

// SettingsStore keeps the settings document as a single item.
type SettingsStore struct {
	table string
	cli   *dynamodb.Client
}

func NewSettingsStore(table string, cli *dynamodb.Client) *SettingsStore {
	createTableIfNotExists(cli, table)
	return &SettingsStore{table: table, cli: cli}
}

func (s *SettingsStore) Load(ctx context.Context) (types.Settings, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkSettings()},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skProfile()},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return types.Settings{}, types.Err(types.ErrStoreAccess, err, "")
	}
	if out.Item == nil {
		return types.DefaultSettings(), nil
	}
	var cfg types.Settings
	if err := attributevalue.UnmarshalMap(out.Item, &cfg); err != nil {
		return types.Settings{}, types.Err(types.ErrStoreAccess, err, "corrupt settings item")
	}
	return cfg, nil
}

func (s *SettingsStore) Save(ctx context.Context, cfg types.Settings) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	prev, err := s.Load(ctx)
	if err != nil {
		return err
	}
	cfg = types.WithRotatedSalt(prev, cfg)

	item, err := attributevalue.MarshalMap(struct {
		PK string `dynamodbav:"PK"`
		SK string `dynamodbav:"SK"`
		types.Settings
	}{
		PK:       pkSettings(),
		SK:       skProfile(),
		Settings: cfg,
	})
	if err != nil {
		return err
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      item,
	})
	if err != nil {
		return types.Err(types.ErrStoreAccess, err, "")
	}
	return nil
}

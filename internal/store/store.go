// Package store implements the single-table conversation store on DynamoDB:
// threads, messages, saved queries, and data requests, keyed (pk, sk) with
// conditional writes and read-time schema migration.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// SKIndexName is the GSI keyed on the sort key alone; it resolves records
// (saved queries) whose partition key is not known to the caller.
const SKIndexName = "sk-index"

// Domain errors. Transport failures are wrapped, never leaked as-is to
// HTTP responses.
var (
	ErrNotFound       = errors.New("store: document not found")
	ErrAlreadyExists  = errors.New("store: document already exists")
	ErrOptimisticLock = errors.New("store: optimistic lock failed")
)

// Config selects the table and, for dev/test, a local endpoint override.
// When EndpointURL is set the table and its GSI are auto-created on first
// use; production runs never take that path.
type Config struct {
	TableName   string
	EndpointURL string
}

// DB is the store handle: one DynamoDB client per process.
type DB struct {
	Client    *dynamodb.Client
	TableName string
}

// New connects to DynamoDB using ambient AWS config, or to the local
// instance when the endpoint override is set.
func New(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.TableName == "" {
		return nil, fmt.Errorf("store: table name must be set")
	}

	var client *dynamodb.Client
	if cfg.EndpointURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion("us-east-1"),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
		)
		if err != nil {
			return nil, fmt.Errorf("store: load aws config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("store: load aws config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	db := &DB{Client: client, TableName: cfg.TableName}

	if cfg.EndpointURL != "" {
		if err := db.ensureLocalTable(ctx); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// NowMillis is the store's timestamp unit: epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Put writes an item unconditionally.
func (d *DB) Put(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("store: marshal item: %w", err)
	}
	_, err = d.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.TableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("store: put item: %w", err)
	}
	return nil
}

// PutExclusive writes an item only if no record with the same (pk, sk)
// exists; otherwise ErrAlreadyExists.
func (d *DB) PutExclusive(ctx context.Context, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("store: marshal item: %w", err)
	}
	_, err = d.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.TableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk) AND attribute_not_exists(sk)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("store: put item exclusive: %w", err)
	}
	return nil
}

// PutOptimistic writes an item only if the stored record's tsField still
// equals expectedMillis; otherwise ErrOptimisticLock.
func (d *DB) PutOptimistic(ctx context.Context, item any, tsField string, expectedMillis int64) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("store: marshal item: %w", err)
	}
	_, err = d.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.TableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(#field) AND #field = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#field": tsField,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedMillis, 10)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return ErrOptimisticLock
		}
		return fmt.Errorf("store: put item optimistic: %w", err)
	}
	return nil
}

// GetRaw fetches a single item by full key, or ErrNotFound.
func (d *DB) GetRaw(ctx context.Context, pk, sk string) (map[string]types.AttributeValue, error) {
	out, err := d.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.TableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
			"sk": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: get item: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	return out.Item, nil
}

// Get fetches and decodes a single item through its migration hook.
func (d *DB) Get(ctx context.Context, pk, sk string, out any) error {
	item, err := d.GetRaw(ctx, pk, sk)
	if err != nil {
		return err
	}
	return d.FromItem(ctx, item, out)
}

// QueryAll runs the query to exhaustion, following the continuation key and
// accumulating items. A limit > 0 caps the accumulated count.
func (d *DB) QueryAll(ctx context.Context, input *dynamodb.QueryInput, limit int) ([]map[string]types.AttributeValue, error) {
	input.TableName = aws.String(d.TableName)
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := d.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("store: query: %w", err)
		}
		items = append(items, out.Items...)

		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Migratable is implemented by record types that carry a schema_version and
// know how to upgrade older item shapes at read time. The hook may persist
// the upgraded shape with a store-side update.
type Migratable interface {
	Migrate(ctx context.Context, db *DB, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error)
}

// FromItem decodes a raw item into out, first running its migration hook.
func (d *DB) FromItem(ctx context.Context, item map[string]types.AttributeValue, out any) error {
	if m, ok := out.(Migratable); ok {
		migrated, err := m.Migrate(ctx, d, item)
		if err != nil {
			return fmt.Errorf("store: migrate item: %w", err)
		}
		item = migrated
	}
	if err := attributevalue.UnmarshalMap(item, out); err != nil {
		return fmt.Errorf("store: unmarshal item: %w", err)
	}
	return nil
}

// SchemaVersion reads the schema_version attribute; missing means 1.
func SchemaVersion(item map[string]types.AttributeValue) int {
	n, ok := item["schema_version"].(*types.AttributeValueMemberN)
	if !ok {
		return 1
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		return 1
	}
	return v
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// ensureLocalTable creates the table and its sk GSI against a local
// DynamoDB. Existing tables are left alone.
func (d *DB) ensureLocalTable(ctx context.Context) error {
	_, err := d.Client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(d.TableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(SKIndexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("sk"), KeyType: types.KeyTypeHash},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
				ProvisionedThroughput: &types.ProvisionedThroughput{
					ReadCapacityUnits:  aws.Int64(5),
					WriteCapacityUnits: aws.Int64(5),
				},
			},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("store: create local table: %w", err)
	}
	slog.Info("created local table", "table", d.TableName)
	return nil
}

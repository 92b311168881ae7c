package store

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const sqlQuerySKPrefix = "SqlQuery#"

// SqlQuery is a validated SQL query saved for tiling.
// Keys: pk = "ChatThread#<thread_id>", sk = "SqlQuery#<query_id>".
type SqlQuery struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`

	QueryName string `dynamodbav:"query_name"`

	// QueryContent is the exact SQL the model authored, minus a single
	// trailing semicolon, validated non-empty with a geometry column.
	QueryContent string `dynamodbav:"query_content"`

	CreatedTs  int64 `dynamodbav:"created_ts"`
	ModifiedTs int64 `dynamodbav:"modified_ts"`
	AccessedTs int64 `dynamodbav:"accessed_ts"`

	// TTL is the optional DynamoDB expiry timestamp (epoch seconds).
	TTL *int64 `dynamodbav:"ttl,omitempty"`

	SchemaVersion int `dynamodbav:"schema_version"`
}

// SqlQueryPK builds the partition key for a thread's queries.
func SqlQueryPK(threadID string) string { return threadSKPrefix + threadID }

// SqlQuerySK builds the sort key for a query record.
func SqlQuerySK(queryID string) string { return sqlQuerySKPrefix + queryID }

// NewSqlQuery builds a query record with all three timestamps set to now.
func NewSqlQuery(threadID, queryID, name, content string, now int64) SqlQuery {
	return SqlQuery{
		PK:            SqlQueryPK(threadID),
		SK:            SqlQuerySK(queryID),
		QueryName:     name,
		QueryContent:  content,
		CreatedTs:     now,
		ModifiedTs:    now,
		AccessedTs:    now,
		SchemaVersion: 1,
	}
}

// ThreadID extracts the owning thread id from the partition key.
func (q *SqlQuery) ThreadID() string { return strings.TrimPrefix(q.PK, threadSKPrefix) }

// ID extracts the query id from the sort key.
func (q *SqlQuery) ID() string { return strings.TrimPrefix(q.SK, sqlQuerySKPrefix) }

// Migrate is a no-op: queries are still at version 1.
func (q *SqlQuery) Migrate(_ context.Context, _ *DB, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	return item, nil
}

// GetSqlQuery loads one saved query by thread and id, or ErrNotFound.
func GetSqlQuery(ctx context.Context, db *DB, threadID, queryID string) (*SqlQuery, error) {
	var q SqlQuery
	if err := db.Get(ctx, SqlQueryPK(threadID), SqlQuerySK(queryID), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetSqlQueryByID resolves a saved query by id alone via the sk GSI; the
// tile endpoints know only the query id.
func GetSqlQueryByID(ctx context.Context, db *DB, queryID string) (*SqlQuery, error) {
	items, err := db.QueryAll(ctx, &dynamodb.QueryInput{
		IndexName:              aws.String(SKIndexName),
		KeyConditionExpression: aws.String("#sk = :sk"),
		ExpressionAttributeNames: map[string]string{
			"#sk": "sk",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: SqlQuerySK(queryID)},
		},
	}, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	var q SqlQuery
	if err := db.FromItem(ctx, items[0], &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetThreadQueries lists every saved query of a thread.
func GetThreadQueries(ctx context.Context, db *DB, threadID string) ([]SqlQuery, error) {
	items, err := db.QueryAll(ctx, &dynamodb.QueryInput{
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#sk, :sk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "pk",
			"#sk": "sk",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: SqlQueryPK(threadID)},
			":sk": &types.AttributeValueMemberS{Value: sqlQuerySKPrefix},
		},
	}, 0)
	if err != nil {
		return nil, err
	}

	queries := make([]SqlQuery, 0, len(items))
	for _, item := range items {
		var q SqlQuery
		if err := db.FromItem(ctx, item, &q); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}

// TouchAccessed refreshes the accessed timestamp after a tile render.
func (q *SqlQuery) TouchAccessed(ctx context.Context, db *DB) error {
	q.AccessedTs = NowMillis()
	return db.Put(ctx, q)
}

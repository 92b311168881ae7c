package store

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	threadSchemaVersion = 2

	userPKPrefix   = "User#"
	threadSKPrefix = "ChatThread#"
)

// ChatThread is one conversation owned by a user.
// Keys: pk = "User#<user_id>", sk = "ChatThread#<thread_id>".
type ChatThread struct {
	PK    string `dynamodbav:"pk"`
	SK    string `dynamodbav:"sk"`
	Title string `dynamodbav:"title"`

	// ModifiedTs guards concurrent edits via the optimistic lock. It is not
	// the last message timestamp.
	ModifiedTs int64 `dynamodbav:"modified_ts"`

	// Archived threads accept no further messages.
	Archived bool `dynamodbav:"archived"`

	SchemaVersion int `dynamodbav:"schema_version"`
}

// ThreadPK builds the partition key for a user's records.
func ThreadPK(userID string) string { return userPKPrefix + userID }

// ThreadSK builds the sort key for a thread record.
func ThreadSK(threadID string) string { return threadSKPrefix + threadID }

// NewChatThread builds a thread record at the current schema version.
func NewChatThread(userID, threadID, title string, modifiedTs int64) ChatThread {
	return ChatThread{
		PK:            ThreadPK(userID),
		SK:            ThreadSK(threadID),
		Title:         title,
		ModifiedTs:    modifiedTs,
		SchemaVersion: threadSchemaVersion,
	}
}

// UserID extracts the owner from the partition key.
func (t *ChatThread) UserID() string { return strings.TrimPrefix(t.PK, userPKPrefix) }

// ID extracts the thread id from the sort key.
func (t *ChatThread) ID() string { return strings.TrimPrefix(t.SK, threadSKPrefix) }

// Migrate upgrades v1 items (no modified_ts) to v2. The upgraded shape is
// persisted with a store-side conditional-free update; persistence failures
// are logged, not fatal, since the in-memory item is already upgraded.
func (t *ChatThread) Migrate(ctx context.Context, db *DB, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	if SchemaVersion(item) >= threadSchemaVersion {
		return item, nil
	}

	now := NowMillis()
	item["modified_ts"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)}
	item["schema_version"] = &types.AttributeValueMemberN{Value: strconv.Itoa(threadSchemaVersion)}

	if db != nil && db.Client != nil {
		_, err := db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(db.TableName),
			Key: map[string]types.AttributeValue{
				"pk": item["pk"],
				"sk": item["sk"],
			},
			UpdateExpression: aws.String("SET #modified_ts = :modified_ts, #schema_version = :schema_version"),
			ExpressionAttributeNames: map[string]string{
				"#modified_ts":    "modified_ts",
				"#schema_version": "schema_version",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":modified_ts":    item["modified_ts"],
				":schema_version": item["schema_version"],
			},
		})
		if err != nil {
			slog.Warn("thread migration write failed", "error", err)
		}
	}
	return item, nil
}

// GetChatThread loads a single thread, or ErrNotFound.
func GetChatThread(ctx context.Context, db *DB, userID, threadID string) (*ChatThread, error) {
	var thread ChatThread
	if err := db.Get(ctx, ThreadPK(userID), ThreadSK(threadID), &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetAllUserThreads lists a user's threads, newest first.
func GetAllUserThreads(ctx context.Context, db *DB, userID string) ([]ChatThread, error) {
	items, err := db.QueryAll(ctx, &dynamodb.QueryInput{
		ScanIndexForward:       aws.Bool(false),
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#sk, :sk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "pk",
			"#sk": "sk",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: ThreadPK(userID)},
			":sk": &types.AttributeValueMemberS{Value: threadSKPrefix},
		},
	}, 0)
	if err != nil {
		return nil, err
	}

	threads := make([]ChatThread, 0, len(items))
	for _, item := range items {
		var thread ChatThread
		if err := db.FromItem(ctx, item, &thread); err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

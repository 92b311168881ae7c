package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
)

const (
	messageSKPrefix = "ChatMessage#"

	// seqWidth pads message sequence numbers so lexicographic sort on sk
	// equals numeric sort. Six digits: a million-message thread is far past
	// any realistic conversation.
	seqWidth = 6
)

// FormatSeq renders a sequence number at the fixed sort width.
func FormatSeq(seq int) string {
	return fmt.Sprintf("%0*d", seqWidth, seq)
}

// ParseSeq parses a zero-padded sequence segment. Any width is accepted so
// records written before the width change still load.
func ParseSeq(s string) (int, error) {
	seq, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("store: parse seq %q: %w", s, err)
	}
	if seq < 0 {
		return 0, fmt.Errorf("store: negative seq %q", s)
	}
	return seq, nil
}

// ChatMessage is one persisted turn of a thread.
// Keys: pk = "User#<user_id>", sk = "ChatMessage#<thread_id>#<seq>".
type ChatMessage struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`

	Msg chatter.Message `dynamodbav:"msg"`

	SchemaVersion int `dynamodbav:"schema_version"`
}

// MessageSK builds the sort key for a message record.
func MessageSK(threadID string, seq int) string {
	return messageSKPrefix + threadID + "#" + FormatSeq(seq)
}

// NewChatMessage builds a message record.
func NewChatMessage(userID, threadID string, seq int, msg chatter.Message) ChatMessage {
	return ChatMessage{
		PK:            ThreadPK(userID),
		SK:            MessageSK(threadID, seq),
		Msg:           msg,
		SchemaVersion: 1,
	}
}

// UserID extracts the owner from the partition key.
func (m *ChatMessage) UserID() string { return strings.TrimPrefix(m.PK, userPKPrefix) }

// ThreadID extracts the thread id from the sort key.
func (m *ChatMessage) ThreadID() string {
	parts := strings.Split(m.SK, "#")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Seq extracts the sequence number from the sort key.
func (m *ChatMessage) Seq() (int, error) {
	parts := strings.Split(m.SK, "#")
	if len(parts) < 3 {
		return 0, fmt.Errorf("store: malformed message sk %q", m.SK)
	}
	return ParseSeq(parts[2])
}

// Migrate is a no-op: messages are still at version 1.
func (m *ChatMessage) Migrate(_ context.Context, _ *DB, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	return item, nil
}

// GetAllThreadMessages loads every message of a thread in seq order.
func GetAllThreadMessages(ctx context.Context, db *DB, userID, threadID string) ([]ChatMessage, error) {
	items, err := db.QueryAll(ctx, &dynamodb.QueryInput{
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#sk, :sk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "pk",
			"#sk": "sk",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: ThreadPK(userID)},
			":sk": &types.AttributeValueMemberS{Value: messageSKPrefix + threadID + "#"},
		},
	}, 0)
	if err != nil {
		return nil, err
	}

	messages := make([]ChatMessage, 0, len(items))
	for _, item := range items {
		var msg ChatMessage
		if err := db.FromItem(ctx, item, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

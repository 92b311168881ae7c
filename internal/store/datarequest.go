package store

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	dataRequestPK        = "DataRequest"
	dataRequestSKSegment = "#DataRequest#"

	// DataRequestStatusPending is the initial status of every request.
	DataRequestStatusPending = "pending"
)

// DataRequest marks that a user asked for data the catalogue doesn't have.
// Keys: pk = "DataRequest" (global), sk =
// "ChatThread#<thread_id>#DataRequest#<request_id>".
type DataRequest struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`

	Name        string `dynamodbav:"name"`
	Explanation string `dynamodbav:"explanation"`
	CreatedTs   int64  `dynamodbav:"created_ts"`
	Status      string `dynamodbav:"status"`

	SchemaVersion int `dynamodbav:"schema_version"`
}

// DataRequestSK builds the sort key for a request record.
func DataRequestSK(threadID, requestID string) string {
	return threadSKPrefix + threadID + dataRequestSKSegment + requestID
}

// NewDataRequest builds a pending request record.
func NewDataRequest(threadID, requestID, name, explanation string, now int64) DataRequest {
	return DataRequest{
		PK:            dataRequestPK,
		SK:            DataRequestSK(threadID, requestID),
		Name:          name,
		Explanation:   explanation,
		CreatedTs:     now,
		Status:        DataRequestStatusPending,
		SchemaVersion: 1,
	}
}

// ThreadID extracts the originating thread id from the sort key.
func (r *DataRequest) ThreadID() string {
	parts := strings.Split(r.SK, "#")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// ID extracts the request id from the sort key.
func (r *DataRequest) ID() string {
	parts := strings.Split(r.SK, "#")
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}

// Migrate is a no-op: requests are still at version 1.
func (r *DataRequest) Migrate(_ context.Context, _ *DB, item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	return item, nil
}

// GetAllDataRequests lists every data request across all threads.
func GetAllDataRequests(ctx context.Context, db *DB) ([]DataRequest, error) {
	items, err := db.QueryAll(ctx, &dynamodb.QueryInput{
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": "pk",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: dataRequestPK},
		},
	}, 0)
	if err != nil {
		return nil, err
	}

	requests := make([]DataRequest, 0, len(items))
	for _, item := range items {
		var r DataRequest
		if err := db.FromItem(ctx, item, &r); err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, nil
}

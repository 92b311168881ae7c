package store

import (
	"context"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/KotobaMedia/binary-blackhole/internal/chatter"
)

func TestFormatParseSeq(t *testing.T) {
	tests := []struct {
		seq  int
		want string
	}{
		{0, "000000"},
		{7, "000007"},
		{999, "000999"},
		{123456, "123456"},
	}
	for _, tt := range tests {
		got := FormatSeq(tt.seq)
		if got != tt.want {
			t.Errorf("FormatSeq(%d) = %q, want %q", tt.seq, got, tt.want)
		}
		back, err := ParseSeq(got)
		if err != nil {
			t.Fatalf("ParseSeq(%q): %v", got, err)
		}
		if back != tt.seq {
			t.Errorf("ParseSeq(FormatSeq(%d)) = %d", tt.seq, back)
		}
	}
}

func TestParseSeqLegacyWidth(t *testing.T) {
	// Records written with the old three-digit format still parse.
	got, err := ParseSeq("042")
	if err != nil {
		t.Fatalf("ParseSeq: %v", err)
	}
	if got != 42 {
		t.Errorf("ParseSeq(042) = %d, want 42", got)
	}
	if _, err := ParseSeq("abc"); err == nil {
		t.Error("expected error for non-numeric seq")
	}
	if _, err := ParseSeq("-1"); err == nil {
		t.Error("expected error for negative seq")
	}
}

func TestSeqOrderingMatchesLexOrder(t *testing.T) {
	prev := ""
	for _, seq := range []int{0, 1, 9, 10, 99, 100, 999, 1000, 99999} {
		sk := MessageSK("01ARZ3NDEKTSV4RRFFQ69G5FAV", seq)
		if prev != "" && sk <= prev {
			t.Errorf("sk %q not lexicographically after %q", sk, prev)
		}
		prev = sk
	}
}

func TestChatMessageKeys(t *testing.T) {
	msg := NewChatMessage("demo_user", "thread1", 3, chatter.UserMessage("hi"))
	if msg.PK != "User#demo_user" {
		t.Errorf("pk = %q", msg.PK)
	}
	if msg.SK != "ChatMessage#thread1#000003" {
		t.Errorf("sk = %q", msg.SK)
	}
	if msg.UserID() != "demo_user" {
		t.Errorf("user id = %q", msg.UserID())
	}
	if msg.ThreadID() != "thread1" {
		t.Errorf("thread id = %q", msg.ThreadID())
	}
	seq, err := msg.Seq()
	if err != nil || seq != 3 {
		t.Errorf("seq = %d, %v", seq, err)
	}
}

func TestChatThreadKeys(t *testing.T) {
	thread := NewChatThread("demo_user", "thread1", "My title", 1234)
	if thread.PK != "User#demo_user" || thread.SK != "ChatThread#thread1" {
		t.Errorf("keys = %q / %q", thread.PK, thread.SK)
	}
	if thread.UserID() != "demo_user" || thread.ID() != "thread1" {
		t.Errorf("accessors = %q / %q", thread.UserID(), thread.ID())
	}
	if thread.SchemaVersion != 2 {
		t.Errorf("schema version = %d, want 2", thread.SchemaVersion)
	}
	if thread.Archived {
		t.Error("new thread must not be archived")
	}
}

func TestSqlQueryKeys(t *testing.T) {
	q := NewSqlQuery("thread1", "query1", "Prefectures", "SELECT 1", 99)
	if q.PK != "ChatThread#thread1" || q.SK != "SqlQuery#query1" {
		t.Errorf("keys = %q / %q", q.PK, q.SK)
	}
	if q.ThreadID() != "thread1" || q.ID() != "query1" {
		t.Errorf("accessors = %q / %q", q.ThreadID(), q.ID())
	}
	if q.CreatedTs != 99 || q.ModifiedTs != 99 || q.AccessedTs != 99 {
		t.Errorf("timestamps = %d/%d/%d", q.CreatedTs, q.ModifiedTs, q.AccessedTs)
	}
}

func TestDataRequestKeys(t *testing.T) {
	r := NewDataRequest("thread1", "req1", "rivers", "needed for flood maps", 5)
	if r.PK != "DataRequest" {
		t.Errorf("pk = %q", r.PK)
	}
	if r.SK != "ChatThread#thread1#DataRequest#req1" {
		t.Errorf("sk = %q", r.SK)
	}
	if r.ThreadID() != "thread1" || r.ID() != "req1" {
		t.Errorf("accessors = %q / %q", r.ThreadID(), r.ID())
	}
	if r.Status != DataRequestStatusPending {
		t.Errorf("status = %q, want pending", r.Status)
	}
}

func TestSchemaVersionAttribute(t *testing.T) {
	if v := SchemaVersion(map[string]types.AttributeValue{}); v != 1 {
		t.Errorf("missing attribute version = %d, want 1", v)
	}
	item := map[string]types.AttributeValue{
		"schema_version": &types.AttributeValueMemberN{Value: "2"},
	}
	if v := SchemaVersion(item); v != 2 {
		t.Errorf("version = %d, want 2", v)
	}
}

func TestChatThreadMigrateV1(t *testing.T) {
	item := map[string]types.AttributeValue{
		"pk":    &types.AttributeValueMemberS{Value: "User#demo_user"},
		"sk":    &types.AttributeValueMemberS{Value: "ChatThread#thread1"},
		"title": &types.AttributeValueMemberS{Value: "t"},
	}

	var thread ChatThread
	migrated, err := thread.Migrate(context.Background(), nil, item)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if SchemaVersion(migrated) != 2 {
		t.Errorf("migrated version = %d, want 2", SchemaVersion(migrated))
	}
	ts, ok := migrated["modified_ts"].(*types.AttributeValueMemberN)
	if !ok {
		t.Fatal("modified_ts missing after migration")
	}
	if v, err := strconv.ParseInt(ts.Value, 10, 64); err != nil || v <= 0 {
		t.Errorf("modified_ts = %q", ts.Value)
	}
}

func TestChatThreadMigrateV2IsNoop(t *testing.T) {
	item := map[string]types.AttributeValue{
		"pk":             &types.AttributeValueMemberS{Value: "User#demo_user"},
		"sk":             &types.AttributeValueMemberS{Value: "ChatThread#thread1"},
		"title":          &types.AttributeValueMemberS{Value: "t"},
		"modified_ts":    &types.AttributeValueMemberN{Value: "777"},
		"schema_version": &types.AttributeValueMemberN{Value: "2"},
	}

	var thread ChatThread
	migrated, err := thread.Migrate(context.Background(), nil, item)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	ts := migrated["modified_ts"].(*types.AttributeValueMemberN)
	if ts.Value != "777" {
		t.Errorf("modified_ts rewritten to %q on a v2 item", ts.Value)
	}
}

func TestConditionalCheckFailedMapping(t *testing.T) {
	if !isConditionalCheckFailed(&types.ConditionalCheckFailedException{}) {
		t.Error("exception not recognised")
	}
	if isConditionalCheckFailed(context.Canceled) {
		t.Error("unrelated error recognised as conditional check failure")
	}
}

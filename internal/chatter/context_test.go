package chatter

import "testing"

func TestNewContextDefaults(t *testing.T) {
	cc := NewContext(nil)
	if cc.ID == "" {
		t.Error("expected a generated thread id")
	}
	if cc.Model != DefaultModel {
		t.Errorf("model = %q, want %q", cc.Model, DefaultModel)
	}
	if len(cc.Messages) != 0 {
		t.Errorf("new context has %d messages, want 0", len(cc.Messages))
	}
}

func TestLoadContextKeepsStoredMessages(t *testing.T) {
	stored := []Message{UserMessage("hi"), {Role: RoleAssistant, Sidecar: NoneSidecar()}}
	cc := LoadContext("01ARZ3NDEKTSV4RRFFQ69G5FAV", stored, nil)
	if cc.ID != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Errorf("id = %q", cc.ID)
	}
	if len(cc.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(cc.Messages))
	}

	cc.AppendUser("again")
	last, ok := cc.Last()
	if !ok || last.Text() != "again" {
		t.Errorf("last = %+v", last)
	}
}

func TestNewULIDIsSortableLength(t *testing.T) {
	a := NewULID()
	b := NewULID()
	if len(a) != 26 || len(b) != 26 {
		t.Errorf("ulid lengths = %d, %d, want 26", len(a), len(b))
	}
	if a == b {
		t.Error("consecutive ULIDs must differ")
	}
}

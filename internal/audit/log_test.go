package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"langhub.io/internal/auth"
	"langhub.io/internal/obs"
)

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Out
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	principal, err := auth.NewHumanPrincipal(auth.User{ID: "user-42", Email: "a@example.com"}, nil)
	if err != nil {
		t.Fatalf("NewHumanPrincipal: %v", err)
	}
	requester, err := auth.NewRequester(principal, auth.SystemConfiguration{Distribution: auth.DistributionCloud})
	if err != nil {
		t.Fatalf("NewRequester: %v", err)
	}

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithRequester(ctx, requester)

	if err := LogEvent(ctx, EventRoleChanged, map[string]any{"membership_id": "m1"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	line := buf.Bytes()
	if len(line) == 0 {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != EventRoleChanged {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["userId"] != "user-42" || entry["requesterType"] != "human" {
		t.Fatalf("requester attributes missing: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["membership_id"] != "m1" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}

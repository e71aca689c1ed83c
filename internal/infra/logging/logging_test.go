//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"subscriber-payments/internal/config"
)

func TestWith_AttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := newWithWriter(&buf, config.LogConfig{Level: "info", Format: "json"}, false)

	ctx := WithTraceID(context.Background(), "t-1")
	ctx = WithUserID(ctx, "u-1")
	ctx = WithRequestID(ctx, "r-1")
	ctx = WithActor(ctx, "admin")
	With(ctx, base).Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	for k, want := range map[string]string{"trace_id": "t-1", "user_id": "u-1", "payment_request_id": "r-1", "actor": "admin"} {
		if line[k] != want {
			t.Errorf("field %s = %v, want %s", k, line[k], want)
		}
	}
}

func TestActorFrom(t *testing.T) {
	if got := ActorFrom(context.Background()); got != "system" {
		t.Errorf("expected system, got %s", got)
	}
	if got := ActorFrom(WithActor(context.Background(), "cli")); got != "cli" {
		t.Errorf("expected cli, got %s", got)
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("client@example.com", false); got != "clie...om" {
		t.Errorf("unexpected redaction: %s", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("unexpected redaction: %s", got)
	}
	if got := Redact("client@example.com", true); got != "client@example.com" {
		t.Errorf("dev mode must not redact: %s", got)
	}
}

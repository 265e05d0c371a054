package authcore

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/planora/authcore/internal/rate"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

func buildAuditTestEngine(t *testing.T, cfg Config, sink AuditSink) (*Engine, *memoryUsers) {
	t.Helper()

	users := newMemoryUsers()
	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(users).
		WithAttemptStore(rate.NewMemoryStore()).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, users
}

func auditTestConfig() Config {
	cfg := defaultConfig()
	cfg.Secrets.SigningSecret = "test-signing-secret"
	cfg.Passkey.RPID = "planora.example"
	cfg.Passkey.Origin = "https://planora.example"
	return cfg
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := auditTestConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	engine, _ := buildAuditTestEngine(t, cfg, sink)

	_, _ = engine.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong", ClientKey: "k"})
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditLoginFailureEmitted(t *testing.T) {
	cfg := auditTestConfig()

	sink := NewChannelSink(8)
	engine, _ := buildAuditTestEngine(t, cfg, sink)

	_, _ = engine.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong", ClientKey: "203.0.113.1"})

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventLoginFailure {
			t.Fatalf("event type = %q", event.EventType)
		}
		if event.Success {
			t.Fatal("failure event marked success")
		}
		if event.ClientKey != "203.0.113.1" {
			t.Fatalf("client key = %q", event.ClientKey)
		}
		if event.Error != string(auditErrInvalidCredentials) {
			t.Fatalf("error code = %q", event.Error)
		}
	case <-time.After(time.Second):
		t.Fatal("no audit event emitted")
	}
}

func TestAuditLegacyPasswordModeEmittedAtBuild(t *testing.T) {
	cfg := auditTestConfig()
	cfg.Password.AllowLegacyPlaintext = true

	sink := NewChannelSink(8)
	_, _ = buildAuditTestEngine(t, cfg, sink)

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventLegacyPasswordMode {
			t.Fatalf("event type = %q", event.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("no build-time audit event for legacy password mode")
	}
}

func TestAuditDropIfFull(t *testing.T) {
	cfg := auditTestConfig()
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true

	// A sink that never returns forces the dispatcher buffer to fill.
	block := make(chan struct{})
	defer close(block)
	blocking := blockingSink{gate: block}

	engine, _ := buildAuditTestEngine(t, cfg, blocking)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, _ = engine.Login(ctx, LoginRequest{Username: "alice", Password: "wrong", ClientKey: "k"})
	}

	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}
}

type blockingSink struct {
	gate chan struct{}
}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func TestJSONWriterSinkOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		UserID:    "u1",
		Success:   true,
	})

	line := strings.TrimSpace(buf.String())
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("output not json: %v", err)
	}
	if decoded["event_type"] != auditEventLoginSuccess {
		t.Fatalf("event_type = %v", decoded["event_type"])
	}
}

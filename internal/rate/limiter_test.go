package rate

import (
	"context"
	"testing"
	"time"
)

func TestLimiterBlocksAfterBudget(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }

	l := NewLimiter(NewMemoryStore(), Config{Window: 300 * time.Second, MaxAttempts: 7}, clock)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if l.IsBlocked(ctx, "10.0.0.1") {
			t.Fatalf("blocked after %d failures", i)
		}
		l.RecordFailure(ctx, "10.0.0.1")
	}

	if !l.IsBlocked(ctx, "10.0.0.1") {
		t.Fatal("not blocked after reaching the budget")
	}
	if l.IsBlocked(ctx, "10.0.0.2") {
		t.Fatal("unrelated key blocked")
	}
}

func TestLimiterSlidingWindowExpiry(t *testing.T) {
	current := time.Now()
	clock := func() time.Time { return current }

	l := NewLimiter(NewMemoryStore(), Config{Window: 300 * time.Second, MaxAttempts: 3}, clock)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.RecordFailure(ctx, "k")
	}
	if !l.IsBlocked(ctx, "k") {
		t.Fatal("not blocked at budget")
	}

	// Old attempts slide out of the window; the key unblocks by itself.
	current = current.Add(301 * time.Second)
	if l.IsBlocked(ctx, "k") {
		t.Fatal("still blocked after window elapsed")
	}
}

func TestLimiterClear(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), Config{Window: time.Minute, MaxAttempts: 2}, nil)
	ctx := context.Background()

	l.RecordFailure(ctx, "k")
	l.RecordFailure(ctx, "k")
	if !l.IsBlocked(ctx, "k") {
		t.Fatal("not blocked at budget")
	}

	l.Clear(ctx, "k")
	if l.IsBlocked(ctx, "k") {
		t.Fatal("blocked after clear")
	}
}

func TestLimiterEmptyKeyCollapsesToUnknown(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), Config{Window: time.Minute, MaxAttempts: 2}, nil)
	ctx := context.Background()

	l.RecordFailure(ctx, "")
	l.RecordFailure(ctx, "   ")
	if !l.IsBlocked(ctx, UnknownClient) {
		t.Fatal("blank keys did not share the unknown bucket")
	}
	if !l.IsBlocked(ctx, "") {
		t.Fatal("blank key lookup not blocked")
	}
}

type failingStore struct{}

func (failingStore) CountSince(context.Context, string, time.Time) (int, error) {
	return 0, ErrBackendUnavailable
}
func (failingStore) Record(context.Context, string, time.Time, time.Duration) error {
	return ErrBackendUnavailable
}
func (failingStore) Clear(context.Context, string) error { return ErrBackendUnavailable }

func TestLimiterFailsClosed(t *testing.T) {
	l := NewLimiter(failingStore{}, Config{}, nil)
	if !l.IsBlocked(context.Background(), "k") {
		t.Fatal("store failure did not block")
	}
}

func TestClientKey(t *testing.T) {
	cases := []struct {
		forwardedFor string
		remoteAddr   string
		want         string
	}{
		{"203.0.113.9", "10.0.0.1:4431", "203.0.113.9"},
		{" 203.0.113.9 , 10.0.0.2", "10.0.0.1:4431", "203.0.113.9"},
		{"", "10.0.0.1:4431", "10.0.0.1"},
		{"", "[::1]:4431", "::1"},
		{"", "10.0.0.1", "10.0.0.1"},
		{"", "", UnknownClient},
		{" , ", "", UnknownClient},
	}
	for _, tc := range cases {
		if got := ClientKey(tc.forwardedFor, tc.remoteAddr); got != tc.want {
			t.Fatalf("ClientKey(%q, %q) = %q, want %q", tc.forwardedFor, tc.remoteAddr, got, tc.want)
		}
	}
}

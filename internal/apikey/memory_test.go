package apikey

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryLookup_TenantAndActive(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Now()

	a := NewRecord("shared", "t1", "a", []string{"pages:read"}, 0, now)
	b := NewRecord("shared", "t2", "b", []string{"pages:write"}, 0, now)
	_ = m.Create(ctx, a)
	_ = m.Create(ctx, b)

	got, err := m.Lookup(ctx, Hash("shared"), "t1")
	if err != nil || got.ID != a.ID {
		t.Fatalf("t1 lookup = %v, %v", got, err)
	}
	got, err = m.Lookup(ctx, Hash("shared"), "t2")
	if err != nil || got.ID != b.ID {
		t.Fatalf("t2 lookup = %v, %v", got, err)
	}
	if _, err := m.Lookup(ctx, Hash("shared"), "t3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign tenant err = %v", err)
	}

	if err := m.Revoke(ctx, a.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := m.Lookup(ctx, Hash("shared"), "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoked key still resolves: %v", err)
	}
}

func TestMemoryTouch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	rec := NewRecord("k", "t1", "", nil, time.Hour, time.Now())
	_ = m.Create(ctx, rec)

	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	if err := m.Touch(ctx, rec.ID, at); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, _ := m.Get(rec.ID)
	if got.LastUsedAt == nil || !got.LastUsedAt.Equal(at) {
		t.Fatalf("last used = %v", got.LastUsedAt)
	}
	if err := m.Touch(ctx, "missing", at); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing touch err = %v", err)
	}
}

func TestGenerateAndHash(t *testing.T) {
	raw, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(raw, "adk_") || len(raw) != 4+48 {
		t.Fatalf("unexpected key shape %q", raw)
	}
	if Hash(raw) == Hash(raw+"x") || len(Hash(raw)) != 64 {
		t.Fatalf("hash not a distinct sha256 hex")
	}
	if Prefix(raw) != raw[:12] {
		t.Fatalf("prefix = %q", Prefix(raw))
	}
}

func TestRecordExpired(t *testing.T) {
	now := time.Now()
	rec := NewRecord("k", "t1", "", nil, time.Minute, now)
	if rec.Expired(now) {
		t.Fatal("fresh key reported expired")
	}
	if !rec.Expired(now.Add(2 * time.Minute)) {
		t.Fatal("stale key not reported expired")
	}
	forever := NewRecord("k", "t1", "", nil, 0, now)
	if forever.Expired(now.Add(100 * 365 * 24 * time.Hour)) {
		t.Fatal("key without expiry reported expired")
	}
}

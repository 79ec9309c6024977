package objectcache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// fakeStore is an in-memory ObjectStore double.
type fakeStore struct {
	data    map[string][]byte
	getErr  error
	setErr  error
	setTTLs map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte), setTTLs: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	raw, ok := f.data[key]
	return raw, ok, nil
}

func (f *fakeStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.setTTLs[key] = ttl
	return nil
}

func (f *fakeStore) Ping() error  { return nil }
func (f *fakeStore) Close() error { return nil }

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestCache_KeyPath(t *testing.T) {
	c := New(newFakeStore(), "staging", nil)
	want := "weather-cache/staging/forecasts-real.json"
	if got := c.KeyPath("forecasts-real"); got != want {
		t.Errorf("KeyPath() = %q, want %q", got, want)
	}
}

func TestCache_KeyPathDefaultEnvironment(t *testing.T) {
	c := New(newFakeStore(), "", nil)
	want := "weather-cache/dev/k.json"
	if got := c.KeyPath("k"); got != want {
		t.Errorf("KeyPath() = %q, want %q", got, want)
	}
}

func TestCache_SetThenGet(t *testing.T) {
	store := newFakeStore()
	c := New(store, "dev", nil)
	ctx := context.Background()

	c.Set(ctx, "forecasts-real", payload{Name: "seattle", Count: 3}, 6)

	var got payload
	if !c.Get(ctx, "forecasts-real", &got) {
		t.Fatal("Get() = false after Set, want true")
	}
	if got.Name != "seattle" || got.Count != 3 {
		t.Errorf("Get() payload = %+v, want {seattle 3}", got)
	}
}

func TestCache_GetMissing(t *testing.T) {
	c := New(newFakeStore(), "dev", nil)

	var got payload
	if c.Get(context.Background(), "absent", &got) {
		t.Fatal("Get() = true for absent key, want false")
	}
}

func TestCache_EnvelopeFields(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	c := New(store, "dev", nil)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "k", payload{Name: "x"}, 6)

	raw := store.data[c.KeyPath("k")]
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("stored body is not an envelope: %v", err)
	}
	if env.CachedAt != now.UnixMilli() {
		t.Errorf("CachedAt = %d, want %d", env.CachedAt, now.UnixMilli())
	}
	wantExpiry := now.UnixMilli() + 6*3600*1000
	if env.ExpiresAt != wantExpiry {
		t.Errorf("ExpiresAt = %d, want %d", env.ExpiresAt, wantExpiry)
	}
	if store.setTTLs[c.KeyPath("k")] != 6*time.Hour {
		t.Errorf("store TTL = %v, want 6h", store.setTTLs[c.KeyPath("k")])
	}
}

// TestCache_ExpiredEnvelopeIsMiss verifies that an object still physically
// present but past its envelope expiry reads as a miss.
func TestCache_ExpiredEnvelopeIsMiss(t *testing.T) {
	store := newFakeStore()
	c := New(store, "dev", nil)
	ctx := context.Background()

	writeTime := time.Now().Add(-7 * time.Hour)
	c.now = func() time.Time { return writeTime }
	c.Set(ctx, "k", payload{Name: "stale"}, 6)

	c.now = time.Now
	var got payload
	if c.Get(ctx, "k", &got) {
		t.Fatal("Get() = true for expired envelope, want false")
	}
	if _, present := store.data[c.KeyPath("k")]; !present {
		t.Error("expired object removed from store; caller overwrites it instead")
	}
}

// TestCache_StoreErrorsDegradeToMiss verifies read and write failures never
// propagate.
func TestCache_StoreErrorsDegradeToMiss(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	c := New(store, "dev", nil)
	ctx := context.Background()

	var got payload
	if c.Get(ctx, "k", &got) {
		t.Fatal("Get() = true on store error, want false")
	}

	store.setErr = errors.New("permission denied")
	// Must not panic or surface the error.
	c.Set(ctx, "k", payload{Name: "x"}, 1)
}

func TestCache_CorruptEnvelopeIsMiss(t *testing.T) {
	store := newFakeStore()
	c := New(store, "dev", nil)
	store.data[c.KeyPath("k")] = []byte("{not json")

	var got payload
	if c.Get(context.Background(), "k", &got) {
		t.Fatal("Get() = true for corrupt envelope, want false")
	}
}

package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func failing(context.Context) error { return errUpstream }
func succeeding(context.Context) error { return nil }

func newTestBreaker(transitions *[]string) *Breaker {
	b := New(Config{
		MaxFailures:  3,
		MinSuccesses: 2,
		Cooldown:     time.Minute,
		OnTransition: func(from, to State) {
			if transitions != nil {
				*transitions = append(*transitions, from.String()+"->"+to.String())
			}
		},
	})
	return b
}

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	var transitions []string
	b := newTestBreaker(&transitions)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, failing); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: err = %v, want upstream error", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v after %d failures, want open", b.State(), 3)
	}
	if err := b.Do(ctx, succeeding); !errors.Is(err, ErrOpen) {
		t.Errorf("open breaker returned %v, want ErrOpen", err)
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("transitions = %v, want [closed->open]", transitions)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(nil)
	ctx := context.Background()

	b.Do(ctx, failing)
	b.Do(ctx, failing)
	b.Do(ctx, succeeding)
	b.Do(ctx, failing)
	b.Do(ctx, failing)

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed (success resets the count)", b.State())
	}
}

func TestBreaker_HalfOpenProbeAndClose(t *testing.T) {
	var transitions []string
	b := newTestBreaker(&transitions)
	ctx := context.Background()

	now := time.Now()
	b.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		b.Do(ctx, failing)
	}

	// Cooldown elapsed: next call probes in half-open.
	now = now.Add(2 * time.Minute)
	if err := b.Do(ctx, succeeding); err != nil {
		t.Fatalf("probe call err = %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v after one probe success, want half_open", b.State())
	}
	if err := b.Do(ctx, succeeding); err != nil {
		t.Fatalf("second probe err = %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %v after %d probe successes, want closed", b.State(), 2)
	}

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(nil)
	ctx := context.Background()

	now := time.Now()
	b.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		b.Do(ctx, failing)
	}
	now = now.Add(2 * time.Minute)

	if err := b.Do(ctx, failing); !errors.Is(err, errUpstream) {
		t.Fatalf("probe err = %v, want upstream error", err)
	}
	if b.State() != StateOpen {
		t.Errorf("state = %v after failed probe, want open", b.State())
	}
}

func TestBreaker_Defaults(t *testing.T) {
	b := New(Config{})
	if b.maxFailures != 5 || b.minSuccesses != 2 || b.cooldown != 30*time.Second {
		t.Errorf("defaults = %d/%d/%v, want 5/2/30s", b.maxFailures, b.minSuccesses, b.cooldown)
	}
}

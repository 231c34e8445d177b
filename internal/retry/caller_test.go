package retry

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/insightwire/insightwire/internal/logging"
	"github.com/insightwire/insightwire/internal/sessionlock"
)

func newTestCaller(maxAttempts int) (*Caller, *[]time.Duration) {
	c := NewCaller(maxAttempts, 10*time.Millisecond, logging.NopLogger())
	var delays []time.Duration
	c.sleep = func(d time.Duration) { delays = append(delays, d) }
	return c, &delays
}

func TestDoSucceedsFirstTry(t *testing.T) {
	c, delays := newTestCaller(3)

	calls := 0
	v, err := Do(c, func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != "ok" || calls != 1 {
		t.Errorf("v=%q calls=%d", v, calls)
	}
	if len(*delays) != 0 {
		t.Errorf("no sleeps expected, got %v", *delays)
	}
}

func TestDoRetriesLockContention(t *testing.T) {
	c, delays := newTestCaller(3)

	// Fails with the lock signature exactly twice, then succeeds:
	// total calls must be 3 (k+1 for k=2).
	calls := 0
	v, err := Do(c, func() (int, error) {
		calls++
		if calls <= 2 {
			return 0, fmt.Errorf("connect: %w", sessionlock.ErrLockTimeout)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if v != 42 || calls != 3 {
		t.Errorf("v=%d calls=%d", v, calls)
	}

	// Linear backoff: 1*base, 2*base
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	if len(*delays) != len(want) {
		t.Fatalf("delays = %v, want %v", *delays, want)
	}
	for i := range want {
		if (*delays)[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, (*delays)[i], want[i])
		}
	}
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	c, _ := newTestCaller(3)

	calls := 0
	_, err := Do(c, func() (int, error) {
		calls++
		return 0, sessionlock.ErrLockTimeout
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !errors.Is(err, sessionlock.ErrLockTimeout) {
		t.Errorf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoDoesNotRetryOtherFailures(t *testing.T) {
	c, delays := newTestCaller(5)

	boom := errors.New("invalid verification code")
	calls := 0
	_, err := Do(c, func() (int, error) {
		calls++
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(*delays) != 0 {
		t.Errorf("no sleeps expected, got %v", *delays)
	}
}

func TestIsLockContention(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{sessionlock.ErrLockTimeout, true},
		{fmt.Errorf("wrap: %w", sessionlock.ErrLockTimeout), true},
		{errors.New("sqlite: database is locked"), true},
		{errors.New("could not acquire session lock: /tmp/s.lock"), true},
		{errors.New("network unreachable"), false},
	}
	for _, tt := range tests {
		if got := IsLockContention(tt.err); got != tt.want {
			t.Errorf("IsLockContention(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

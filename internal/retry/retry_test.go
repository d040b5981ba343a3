package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"txaudit/internal/domain"
)

// fakeSleep records requested delays and never blocks.
type fakeSleep struct {
	delays []time.Duration
}

func (f *fakeSleep) sleep(ctx context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return ctx.Err()
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	sleeper := &fakeSleep{}
	exec := NewExecutor(Policy{MaxAttempts: 3, Delay: time.Second}, WithSleep(sleeper.sleep))

	calls := 0
	err := exec.Do(context.Background(), "primary", "eth_chainId", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no sleeps, got %v", sleeper.delays)
	}
}

func TestDo_RecoversAfterTransientFailure(t *testing.T) {
	sleeper := &fakeSleep{}
	exec := NewExecutor(Policy{MaxAttempts: 3, Delay: 250 * time.Millisecond}, WithSleep(sleeper.sleep))

	calls := 0
	err := exec.Do(context.Background(), "primary", "eth_getTransactionReceipt", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(sleeper.delays))
	}
	for _, d := range sleeper.delays {
		if d != 250*time.Millisecond {
			t.Errorf("expected fixed 250ms delay, got %v", d)
		}
	}
}

func TestDo_ExhaustionReturnsProviderError(t *testing.T) {
	sleeper := &fakeSleep{}
	exec := NewExecutor(Policy{MaxAttempts: 3, Delay: time.Second}, WithSleep(sleeper.sleep))

	boom := errors.New("503 service unavailable")
	calls := 0
	err := exec.Do(context.Background(), "secondary", "eth_getTransactionByHash", func(context.Context) error {
		calls++
		return boom
	})
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProviderError, got %T: %v", err, err)
	}
	if perr.Attempts != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", perr.Attempts)
	}
	if perr.Provider != "secondary" || perr.Op != "eth_getTransactionByHash" {
		t.Errorf("unexpected provider/op: %s %s", perr.Provider, perr.Op)
	}
	if !errors.Is(err, boom) {
		t.Error("expected the last underlying error to be wrapped")
	}
}

func TestDo_NotFoundNeverRetried(t *testing.T) {
	sleeper := &fakeSleep{}
	exec := NewExecutor(Policy{MaxAttempts: 5, Delay: time.Second}, WithSleep(sleeper.sleep))

	calls := 0
	err := exec.Do(context.Background(), "primary", "eth_getTransactionReceipt", func(context.Context) error {
		calls++
		return domain.ErrNotFound
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt for not-found, got %d", calls)
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		t.Error("not-found must not be wrapped as a provider error")
	}
}

func TestDo_CancellationDistinctFromExhaustion(t *testing.T) {
	sleeper := &fakeSleep{}
	exec := NewExecutor(Policy{MaxAttempts: 3, Delay: time.Second}, WithSleep(sleeper.sleep))

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := exec.Do(ctx, "primary", "eth_getTransactionReceipt", func(context.Context) error {
		calls++
		cancel() // cancelled while the first attempt is in flight
		return errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		t.Error("cancellation must not be reported as provider exhaustion")
	}
	if calls != 1 {
		t.Errorf("expected no further attempts after cancel, got %d", calls)
	}
}

func TestDo_CancelledBeforeFirstAttempt(t *testing.T) {
	exec := NewExecutor(Policy{}, WithSleep((&fakeSleep{}).sleep))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := exec.Do(ctx, "primary", "eth_chainId", func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected zero attempts on a dead context, got %d", calls)
	}
}

func TestPolicyDefaults(t *testing.T) {
	exec := NewExecutor(Policy{})
	p := exec.Policy()
	if p.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected default %d attempts, got %d", DefaultMaxAttempts, p.MaxAttempts)
	}
	if p.Delay != DefaultDelay {
		t.Errorf("expected default delay %v, got %v", DefaultDelay, p.Delay)
	}
}

func TestExponentialSchedule(t *testing.T) {
	sleeper := &fakeSleep{}
	exec := NewExecutor(
		Policy{MaxAttempts: 4, Delay: 100 * time.Millisecond, Multiplier: 2, MaxDelay: time.Second},
		WithSleep(sleeper.sleep),
	)

	err := exec.Do(context.Background(), "primary", "eth_getBlockByNumber", func(context.Context) error {
		return errors.New("timeout")
	})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(sleeper.delays))
	}
	for i, d := range want {
		if sleeper.delays[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, sleeper.delays[i])
		}
	}
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	exec := NewExecutor(
		Policy{MaxAttempts: 3, Delay: time.Millisecond},
		WithSleep((&fakeSleep{}).sleep),
		WithOnRetry(func(provider, op string, attempt int, err error) {
			seen = append(seen, attempt)
		}),
	)

	_ = exec.Do(context.Background(), "primary", "eth_chainId", func(context.Context) error {
		return errors.New("flaky")
	})
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected callbacks for attempts 1 and 2, got %v", seen)
	}
}

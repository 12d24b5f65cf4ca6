package resilience

import (
	"testing"
	"time"
)

func TestNormalizeFillsRetrievalDefaults(t *testing.T) {
	got := Config{RetryInitialBackoff: 2 * time.Second}.normalize()
	if got.RetryMaxAttempts != retrievalMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", retrievalMaxAttempts, got.RetryMaxAttempts)
	}
	if got.RetryMaxBackoff != 2*time.Second {
		t.Fatalf("max backoff must not be below initial backoff, got %s", got.RetryMaxBackoff)
	}
	if got.BreakerMinRequests != retrievalMinRequests || got.BreakerOpenTimeout != retrievalOpenTimeout {
		t.Fatalf("unexpected breaker defaults %+v", got)
	}
}

func TestSingleAttemptTightensScoringBreaker(t *testing.T) {
	got := DefaultConfig().SingleAttempt()
	if got.RetryMaxAttempts != 1 {
		t.Fatalf("expected a single attempt, got %d", got.RetryMaxAttempts)
	}
	if got.BreakerMinRequests != scoringMinRequests {
		t.Fatalf("expected scoring breaker to sample %d requests, got %d", scoringMinRequests, got.BreakerMinRequests)
	}
	if got.BreakerOpenTimeout != scoringOpenTimeout {
		t.Fatalf("expected scoring breaker open timeout %s, got %s", scoringOpenTimeout, got.BreakerOpenTimeout)
	}

	strict := Config{BreakerMinRequests: 1, BreakerOpenTimeout: 2 * time.Minute}.SingleAttempt()
	if strict.BreakerMinRequests != 1 || strict.BreakerOpenTimeout != 2*time.Minute {
		t.Fatalf("stricter settings must be kept, got %+v", strict)
	}
}

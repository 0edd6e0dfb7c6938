package worker

import (
	"testing"
	"time"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	d1 := policy.NextDelay(1)
	d2 := policy.NextDelay(2)
	d3 := policy.NextDelay(5)

	if d1 != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d1)
	}
	if d2 != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d2)
	}
	if d3 != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d3)
	}
}

func TestRetryPolicyDefaults(t *testing.T) {
	var policy RetryPolicy
	if d := policy.NextDelay(0); d != time.Second {
		t.Fatalf("expected 1s default, got %s", d)
	}
	if d := policy.NextDelay(3); d != 4*time.Second {
		t.Fatalf("expected 4s with default backoff, got %s", d)
	}
}

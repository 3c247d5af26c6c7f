package retry_test

import (
	"testing"

	"github.com/beamline-run/beamline/pkg/domain"
	"github.com/beamline-run/beamline/pkg/retry"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func advanced() retry.Policy {
	return retry.New(retry.DefaultConfig(30000, 3, true))
}

func TestIsRetryable_ValidationNeverRetryable(t *testing.T) {
	p := advanced()
	assert.False(t, p.IsRetryable(domain.ErrorInvalidInput, 0))
}

func TestIsRetryable_NetworkAlwaysRetryable(t *testing.T) {
	p := advanced()
	assert.True(t, p.IsRetryable(domain.ErrorNetworkError, 0))
}

func TestIsRetryable_HTTPStatusOverridesErrorCode(t *testing.T) {
	p := advanced()
	assert.False(t, p.IsRetryable(domain.ErrorExecutionFailed, 404))
	assert.True(t, p.IsRetryable(domain.ErrorExecutionFailed, 503))
}

func TestDelay_MonotonicUntilSaturation(t *testing.T) {
	p := advanced()

	var prev int64 = -1
	for attempt := 0; attempt < 10; attempt++ {
		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, int64(5000))
		prev = d
	}
}

func TestDelay_LinearWhenAdvancedDisabled(t *testing.T) {
	p := retry.New(retry.DefaultConfig(30000, 3, false))
	assert.Equal(t, int64(100), p.Delay(0))
	assert.Equal(t, int64(200), p.Delay(1))
	assert.Equal(t, int64(300), p.Delay(2))
}

func TestIsRetryable_EverythingRetryableWhenAdvancedDisabled(t *testing.T) {
	p := retry.New(retry.DefaultConfig(30000, 3, false))
	assert.True(t, p.IsRetryable(domain.ErrorInvalidInput, 0))
	assert.True(t, p.IsRetryable(domain.ErrorCancelledByUser, 404))
}

func TestIsBudgetExhausted_AtOrPastTotalTimeout(t *testing.T) {
	p := retry.New(retry.DefaultConfig(250, 5, true))
	assert.True(t, p.IsBudgetExhausted(250, 0))
	assert.True(t, p.IsBudgetExhausted(300, 0))
}

func TestIsBudgetExhausted_NeverWhenAdvancedDisabled(t *testing.T) {
	p := retry.New(retry.DefaultConfig(1, 5, false))
	assert.False(t, p.IsBudgetExhausted(1_000_000, 9))
}

func TestDelay_RapidMonotonicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := int64(rapid.IntRange(1, 1000).Draw(t, "base"))
		maxDelay := int64(rapid.IntRange(int(base), 10000).Draw(t, "max"))
		p := retry.New(retry.Config{BaseDelayMs: base, MaxDelayMs: maxDelay, TotalTimeoutMs: 1 << 30, MaxRetries: 10, AdvancedRetry: true})

		prev := int64(0)
		for attempt := 0; attempt < 8; attempt++ {
			d := p.Delay(attempt)
			if d < prev {
				t.Fatalf("delay decreased: attempt=%d prev=%d d=%d", attempt, prev, d)
			}
			if d > maxDelay {
				t.Fatalf("delay exceeded cap: %d > %d", d, maxDelay)
			}
			prev = d
		}
	})
}

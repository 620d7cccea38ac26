package resilience

import "time"

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// CompletionPolicy suits LLM calls: few requests per guide, each slow and
// rate limited upstream.
func CompletionPolicy() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 200 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// SpeechPolicy suits chunked TTS: one guide issues dozens of short requests,
// so the breaker needs a larger sample and retries back off quickly.
func SpeechPolicy() Config {
	return Config{
		RetryMaxAttempts:    4,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      20,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      15 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// Override applies operator settings on top of a policy. Zero values keep
// the policy's own numbers.
func (c Config) Override(maxAttempts int, initialBackoff time.Duration, breakerEnabled bool) Config {
	if maxAttempts > 0 {
		c.RetryMaxAttempts = maxAttempts
	}
	if initialBackoff > 0 {
		c.RetryInitialBackoff = initialBackoff
	}
	c.BreakerEnabled = breakerEnabled
	return c
}

// normalize fills unset fields from CompletionPolicy.
func (c Config) normalize() Config {
	def := CompletionPolicy()
	c.RetryMaxAttempts = orDefault(c.RetryMaxAttempts, def.RetryMaxAttempts)
	c.RetryInitialBackoff = orDefault(c.RetryInitialBackoff, def.RetryInitialBackoff)
	c.RetryMaxBackoff = max(orDefault(c.RetryMaxBackoff, def.RetryMaxBackoff), c.RetryInitialBackoff)
	if c.RetryMultiplier < 1.0 {
		c.RetryMultiplier = def.RetryMultiplier
	}

	c.BreakerMinRequests = orDefault(c.BreakerMinRequests, def.BreakerMinRequests)
	if c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1 {
		c.BreakerFailureRatio = def.BreakerFailureRatio
	}
	c.BreakerOpenTimeout = orDefault(c.BreakerOpenTimeout, def.BreakerOpenTimeout)
	c.BreakerHalfOpenMaxCalls = orDefault(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return c
}

func orDefault[T int | uint32 | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

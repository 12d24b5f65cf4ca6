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

// Retrieval calls (query embedding, vector search) are idempotent reads on the
// request path: a few quick retries, then fail over to an error packet.
const (
	retrievalMaxAttempts    = 3
	retrievalInitialBackoff = 150 * time.Millisecond
	retrievalMaxBackoff     = time.Second
	retrievalMinRequests    = 6
	retrievalOpenTimeout    = 20 * time.Second

	// A failing scorer costs a full scoring timeout per query, so its breaker
	// opens after fewer samples and stays open longer.
	scoringMinRequests = 3
	scoringOpenTimeout = time.Minute
)

// DefaultConfig is tuned for embedding and vector search calls.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    retrievalMaxAttempts,
		RetryInitialBackoff: retrievalInitialBackoff,
		RetryMaxBackoff:     retrievalMaxBackoff,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      retrievalMinRequests,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      retrievalOpenTimeout,
		BreakerHalfOpenMaxCalls: 1,
	}
}

// SingleAttempt derives the relevance scoring policy: no retries, since the
// reranker degrades instead, and a breaker that trips early.
func (c Config) SingleAttempt() Config {
	out := c
	out.RetryMaxAttempts = 1
	if out.BreakerMinRequests == 0 || out.BreakerMinRequests > scoringMinRequests {
		out.BreakerMinRequests = scoringMinRequests
	}
	if out.BreakerOpenTimeout < scoringOpenTimeout {
		out.BreakerOpenTimeout = scoringOpenTimeout
	}
	return out
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	out.RetryMaxBackoff = max(out.RetryMaxBackoff, out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}

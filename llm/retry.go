package llm

import (
	"time"

	"github.com/smallnest/agentdesk/graph"
)

// Backoff bounds of RetryPolicy.
var (
	RetryBaseDelay = 500 * time.Millisecond
	RetryMaxDelay  = 8 * time.Second
)

// RetryPolicy retries nodes whose model call failed upstream, backing off
// exponentially. It returns nil, meaning no retries, when retries <= 0.
func RetryPolicy(retries int) *graph.RetryPolicy {
	if retries <= 0 {
		return nil
	}
	return &graph.RetryPolicy{
		MaxRetries: retries,
		Backoff:    graph.ExponentialBackoff,
		BaseDelay:  RetryBaseDelay,
		MaxDelay:   RetryMaxDelay,
		Retryable:  IsUpstream,
	}
}

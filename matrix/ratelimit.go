// Package matrix is a small client for the Matrix client-server API and the
// Synapse admin API, covering what the migrator needs.
package matrix

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// RateLimitConfig throttles outgoing requests per operation class.
type RateLimitConfig struct {
	Enabled       bool              `yaml:"enabled"`
	Registrations TokenBucketConfig `yaml:"registrations"`
	RoomCreation  TokenBucketConfig `yaml:"room_creation"`
	Messages      TokenBucketConfig `yaml:"messages"`
	Invites       TokenBucketConfig `yaml:"invites"`
	// MaxRetries bounds how often a 429 response is retried after waiting
	// the server supplied retry_after_ms.
	MaxRetries int `yaml:"max_retries"`
}

// TokenBucketConfig holds the token bucket parameters for one class.
type TokenBucketConfig struct {
	// Rate is tokens per second added to the bucket
	Rate float64 `yaml:"rate"`
	// BurstSize is the bucket capacity
	BurstSize int `yaml:"burst_size"`
	// Interval, when set, replaces the bucket with a fixed minimum spacing
	Interval time.Duration `yaml:"interval,omitempty"`
}

// TokenBucket is a token bucket rate limiter safe for concurrent use.
type TokenBucket struct {
	mu         sync.Mutex
	rate       float64
	burstSize  int
	tokens     float64
	lastRefill time.Time
	interval   time.Duration
	lastOp     time.Time
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	return &TokenBucket{
		rate:       config.Rate,
		burstSize:  config.BurstSize,
		tokens:     float64(config.BurstSize),
		lastRefill: time.Now(),
		interval:   config.Interval,
	}
}

// Allow consumes a token if one is available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()

	if tb.interval > 0 {
		if !tb.lastOp.IsZero() && now.Sub(tb.lastOp) < tb.interval {
			return false
		}
		tb.lastOp = now
		return true
	}

	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.rate
	if tb.tokens > float64(tb.burstSize) {
		tb.tokens = float64(tb.burstSize)
	}
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		waitTime := tb.getWaitTime()
		if waitTime <= 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

func (tb *TokenBucket) getWaitTime() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()

	if tb.interval > 0 {
		if tb.lastOp.IsZero() {
			return 0
		}
		elapsed := now.Sub(tb.lastOp)
		if elapsed >= tb.interval {
			return 0
		}
		return tb.interval - elapsed
	}

	if tb.tokens >= 1.0 {
		return 0
	}
	if tb.rate <= 0 {
		return time.Hour
	}
	return time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
}

// DefaultRateLimitConfig returns limits sized for a bulk import against a
// Synapse instance whose own rc_* limits have been raised for the migration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:       true,
		Registrations: TokenBucketConfig{Rate: 5, BurstSize: 20},
		RoomCreation:  TokenBucketConfig{Rate: 2, BurstSize: 10},
		Messages:      TokenBucketConfig{Rate: 50, BurstSize: 100},
		Invites:       TokenBucketConfig{Rate: 10, BurstSize: 50},
		MaxRetries:    5,
	}
}

// DisabledRateLimitConfig only retries 429 responses.
func DisabledRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxRetries: 5}
}

type limiters struct {
	registrations *TokenBucket
	roomCreation  *TokenBucket
	messages      *TokenBucket
	invites       *TokenBucket
}

func newLimiters(config RateLimitConfig) limiters {
	if !config.Enabled {
		return limiters{}
	}
	return limiters{
		registrations: NewTokenBucket(config.Registrations),
		roomCreation:  NewTokenBucket(config.RoomCreation),
		messages:      NewTokenBucket(config.Messages),
		invites:       NewTokenBucket(config.Invites),
	}
}

// IsRateLimitError reports a 429 or M_LIMIT_EXCEEDED response.
func IsRateLimitError(err error) bool {
	var matrixErr *Error
	if errors.As(err, &matrixErr) {
		return matrixErr.StatusCode == http.StatusTooManyRequests || matrixErr.ErrCode == ErrCodeLimitExceeded
	}
	return false
}

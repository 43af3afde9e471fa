// Package resilience retries the city store's connection setup while the
// database is still coming up.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy describes how often and how patiently an operation is retried.
// Zero fields fall back to ConnectPolicy values.
type Policy struct {
	Attempts int           // total tries, first one included
	Base     time.Duration // wait before the second try
	Cap      time.Duration // longest single wait
	Factor   float64       // growth per try
	Jitter   float64       // +/- fraction applied to each wait

	// Retryable decides whether an error is worth another try. IsTransient
	// is used when nil.
	Retryable func(error) bool

	// Notify runs before each wait.
	Notify func(attempt int, wait time.Duration, err error)
}

// ConnectPolicy is used when opening the Postgres city store. Five tries
// spread over roughly four seconds covers a container that is still
// starting.
func ConnectPolicy() Policy {
	return Policy{
		Attempts: 5,
		Base:     250 * time.Millisecond,
		Cap:      5 * time.Second,
		Factor:   2,
		Jitter:   0.2,
	}
}

// Run calls op until it succeeds or fails with an error Retryable rejects.
// It also stops when the attempts run out or ctx ends, returning op's last
// error in every failure case.
func (p Policy) Run(ctx context.Context, op func(ctx context.Context) error) error {
	p = p.normalized()

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt == p.Attempts || ctx.Err() != nil || !p.Retryable(err) {
			return err
		}

		wait := p.wait(attempt)
		if p.Notify != nil {
			p.Notify(attempt, wait, err)
		}

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return err
		}
	}
}

func (p Policy) normalized() Policy {
	def := ConnectPolicy()
	if p.Attempts < 1 {
		p.Attempts = def.Attempts
	}
	if p.Base <= 0 {
		p.Base = def.Base
	}
	if p.Cap <= 0 {
		p.Cap = def.Cap
	}
	if p.Factor <= 0 {
		p.Factor = def.Factor
	}
	p.Jitter = max(p.Jitter, 0)
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// wait returns the pause after the given failed attempt (1-based).
func (p Policy) wait(attempt int) time.Duration {
	d := math.Min(float64(p.Base)*math.Pow(p.Factor, float64(attempt-1)), float64(p.Cap))
	if p.Jitter > 0 {
		d *= 1 + p.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(math.Max(d, 0))
}

// LogRetries returns a Notify hook that reports each retry of what.
func LogRetries(logger *zap.Logger, what string) func(int, time.Duration, error) {
	if logger == nil {
		logger = zap.L()
	}
	return func(attempt int, wait time.Duration, err error) {
		logger.Warn("resilience: retrying",
			zap.String("op", what),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
}

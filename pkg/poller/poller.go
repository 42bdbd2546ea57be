// Package poller keeps the latest value of a periodically fetched resource.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/util"
)

// ErrNoValue is returned by Current before the first successful fetch.
var ErrNoValue = errors.New("poller: no value yet")

type FetchFunc[T any] func(ctx context.Context) (T, error)

// Poller calls fetch, waits, and repeats. Failed fetches keep the last value
// and are retried after the same wait.
type Poller[T any] struct {
	name  string
	fetch FetchFunc[T]
	wait  time.Duration
	clock util.Clock
	log   *zap.SugaredLogger

	mu      sync.RWMutex
	value   T
	hasVal  bool
	updated time.Time
	ready   chan struct{}
}

func New[T any](name string, fetch FetchFunc[T], wait time.Duration, clock util.Clock, log *zap.SugaredLogger) *Poller[T] {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Poller[T]{
		name:  name,
		fetch: fetch,
		wait:  wait,
		clock: clock,
		log:   log,
		ready: make(chan struct{}),
	}
}

// Run polls until ctx ends.
func (p *Poller[T]) Run(ctx context.Context) error {
	failures := 0
	for {
		v, err := p.fetch(ctx)
		switch {
		case err == nil:
			p.set(v)
			failures = 0
		case ctx.Err() != nil:
			return nil
		default:
			failures++
			p.log.Warnw("poll_failed", "poller", p.name, "failures", failures, "err", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-p.clock.After(p.wait):
		}
	}
}

func (p *Poller[T]) set(v T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
	p.updated = p.clock.Now()
	if !p.hasVal {
		p.hasVal = true
		close(p.ready)
	}
}

// Current returns the latest value.
func (p *Poller[T]) Current() (T, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.hasVal {
		var zero T
		return zero, ErrNoValue
	}
	return p.value, nil
}

// Updated is when the current value was fetched.
func (p *Poller[T]) Updated() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updated
}

// Ready is closed once the first value is in.
func (p *Poller[T]) Ready() <-chan struct{} {
	return p.ready
}

// Package llm adapts an OpenAI-compatible chat completions endpoint into the
// advisory generative capability. The endpoint is probed once, on first use,
// and a failed probe disables generation for the rest of the process.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/city-risk-service/internal/advisory"
	"github.com/couchcryptid/city-risk-service/internal/observability"
)

// LoadState is the lifecycle of a lazily loaded generator.
type LoadState int

const (
	StateUninitialized LoadState = iota
	StateLoading
	StateReady
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// Loader produces a ready generator or reports why it cannot.
type Loader func(ctx context.Context) (advisory.Generator, error)

// ClientLoader returns a Loader that probes the client before handing it out.
func ClientLoader(c *Client) Loader {
	return func(ctx context.Context) (advisory.Generator, error) {
		if err := c.Probe(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Lazy loads its generator on the first Generate call. Concurrent callers
// during loading wait for the outcome or their own context. Failed is
// terminal.
type Lazy struct {
	load    Loader
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	state LoadState
	done  chan struct{}
	gen   advisory.Generator
	err   error
}

// NewLazy creates a Lazy in the uninitialized state.
func NewLazy(load Loader, logger *slog.Logger, metrics *observability.Metrics) *Lazy {
	l := &Lazy{load: load, logger: logger, metrics: metrics}
	l.setState(StateUninitialized)
	return l
}

// State returns the current lifecycle state.
func (l *Lazy) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Generate loads the generator if needed and delegates to it. Load failures
// are reported as advisory.ErrGenerationUnavailable.
func (l *Lazy) Generate(ctx context.Context, messages []advisory.Message) (string, error) {
	gen, err := l.get(ctx)
	if err != nil {
		return "", err
	}
	return gen.Generate(ctx, messages)
}

func (l *Lazy) get(ctx context.Context) (advisory.Generator, error) {
	l.mu.Lock()
	switch l.state {
	case StateReady:
		gen := l.gen
		l.mu.Unlock()
		return gen, nil
	case StateFailed:
		err := l.err
		l.mu.Unlock()
		return nil, err
	case StateUninitialized:
		l.done = make(chan struct{})
		l.setState(StateLoading)
		go l.run(context.WithoutCancel(ctx))
	}
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateFailed {
		return nil, l.err
	}
	return l.gen, nil
}

// run performs the load outside the lock and publishes the terminal state.
func (l *Lazy) run(ctx context.Context) {
	l.logger.Info("loading generative capability")
	gen, err := l.load(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.err = fmt.Errorf("%w: %w", advisory.ErrGenerationUnavailable, err)
		l.setState(StateFailed)
		l.logger.Warn("generative capability unavailable, using rule-based advisories", "error", err)
	} else {
		l.gen = gen
		l.setState(StateReady)
		l.logger.Info("generative capability ready")
	}
	close(l.done)
}

// setState must be called with mu held, or before the Lazy is shared.
func (l *Lazy) setState(s LoadState) {
	l.state = s
	l.metrics.GeneratorState.Set(float64(s))
}

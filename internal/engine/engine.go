package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/spaghetti/internal/circuit"
)

// Engine drives repeated evaluation of one top-level package.
//
// A tick is a single pass over the package body in insertion order. There
// is no fixed-point iteration inside a tick, so a feedback loop always
// terminates and carries its values into the next tick.
//
// Thread-safety model:
//   - Tick, Do: serialized by the engine lock; a tick is never interleaved
//     with another tick or a Do call
//   - Enqueue, Stop: safe from any goroutine
//   - Run: at most one goroutine at a time
type Engine struct {
	mu       sync.Mutex
	pkg      *circuit.Package
	clock    *Clock
	queue    *commandQueue
	hooks    []TickHook
	logger   *slog.Logger
	maxTicks int64
}

// TickHook observes the package after each tick, while the engine lock
// is still held. Hooks must not call back into the engine.
type TickHook func(tick int64, p *circuit.Package)

// TickResult summarizes one tick.
type TickResult struct {
	Tick     int64             `json:"tick"`
	Stats    circuit.TickStats `json:"stats"`
	Commands int               `json:"commands"`
	Errors   []error           `json:"-"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxTicks bounds how many ticks Run performs. Zero means no limit.
func WithMaxTicks(n int64) Option {
	return func(e *Engine) {
		e.maxTicks = n
	}
}

// WithTickHook adds a hook run after every tick. Hooks run in the order
// they were added.
func WithTickHook(h TickHook) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, h)
	}
}

// WithClock replaces the tick clock, e.g. to resume numbering after a
// recorded run.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an engine for pkg.
func New(pkg *circuit.Package, opts ...Option) *Engine {
	e := &Engine{
		pkg:    pkg,
		clock:  NewClock(),
		queue:  newCommandQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Package returns the driven package. Callers must not mutate it outside
// Do or a queued Command while the engine may be ticking.
func (e *Engine) Package() *circuit.Package { return e.pkg }

// Clock returns the tick clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Tick applies pending commands, then runs one pass over the package and
// the tick hooks.
func (e *Engine) Tick() TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tickLocked()
}

func (e *Engine) tickLocked() TickResult {
	var res TickResult
	tick := e.clock.Current() + 1

	for _, cmd := range e.queue.Drain() {
		res.Commands++
		if err := cmd.Apply(e.pkg); err != nil {
			rerr := &RuntimeError{
				Code:    ErrCodeCommandFailed,
				Message: "command failed",
				Tick:    tick,
				Command: cmd.Name,
				Err:     err,
			}
			e.logger.Warn("command failed", "tick", tick, "command", cmd.Name, "error", err)
			res.Errors = append(res.Errors, rerr)
		}
	}

	res.Stats = e.pkg.Tick()
	res.Tick = e.clock.Next()

	for _, h := range e.hooks {
		h(res.Tick, e.pkg)
	}

	e.logger.Debug("tick",
		"tick", res.Tick,
		"calculated", res.Stats.Calculated,
		"not_ready", res.Stats.NotReady,
		"commands", res.Commands,
	)
	return res
}

// Enqueue submits a command for the next tick boundary.
// Thread-safe: may be called from any goroutine.
func (e *Engine) Enqueue(cmd Command) error {
	if !e.queue.Enqueue(cmd) {
		return &RuntimeError{Code: ErrCodeStopped, Message: "engine stopped", Tick: e.clock.Current(), Command: cmd.Name}
	}
	return nil
}

// Pending returns the number of queued commands.
func (e *Engine) Pending() int { return e.queue.Len() }

// Do runs fn against the package between ticks, holding the engine lock.
func (e *Engine) Do(fn func(p *circuit.Package) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.pkg)
}

// Run ticks every interval until ctx is cancelled, Stop is called, or the
// tick budget is spent.
//
// Returns ctx.Err() on cancellation, nil after Stop, and a
// *TickBudgetExceededError when WithMaxTicks was reached.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("run: tick interval must be positive, got %s", interval)
	}

	e.logger.Info("engine starting", "interval", interval, "max_ticks", e.maxTicks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if e.maxTicks > 0 && e.clock.Current() >= e.maxTicks {
			e.logger.Info("engine stopping: tick budget exhausted", "ticks", e.clock.Current())
			return &TickBudgetExceededError{Ticks: e.clock.Current(), Limit: e.maxTicks}
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled", "ticks", e.clock.Current())
			return ctx.Err()

		case <-e.queue.Done():
			// Apply whatever was queued before Stop.
			if e.queue.Len() > 0 {
				e.Tick()
			}
			e.logger.Info("engine stopping: stopped", "ticks", e.clock.Current())
			return nil

		case <-ticker.C:
			res := e.Tick()
			for _, err := range res.Errors {
				e.logger.Error("tick error", "tick", res.Tick, "error", err)
			}
		}
	}
}

// Stop makes Run return after its current tick. Commands enqueued after
// Stop are rejected.
func (e *Engine) Stop() {
	e.queue.Close()
}

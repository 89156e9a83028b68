// Package engine advances the economy: Step is the pure per-tick update and
// Engine is the wall-clock loop a host uses to drive it.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Engine drives a game forward on a fixed interval.
type Engine struct {
	Tick          uint64        // Current tick counter (monotonic, never resets)
	Interval      time.Duration // Time between ticks (default 100ms)
	AutosaveEvery uint64        // Ticks between autosaves, 0 disables

	// Callbacks, populated during setup.
	OnTick     func(tick uint64) // Every tick
	OnAutosave func(tick uint64) // Every AutosaveEvery ticks

	running  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval:      100 * time.Millisecond,
		AutosaveEvery: 600,
		stop:          make(chan struct{}),
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the loop. Blocks until Stop is called or ctx is done.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("engine started", "tick", e.Tick, "interval", e.Interval)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped", "tick", e.Tick, "reason", ctx.Err())
			return
		case <-e.stop:
			slog.Info("engine stopped", "tick", e.Tick)
			return
		case <-ticker.C:
			if e.stopped() {
				slog.Info("engine stopped", "tick", e.Tick)
				return
			}
			e.step()
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *Engine) stopped() bool {
	select {
	case <-e.stop:
		return true
	default:
		return false
	}
}

// step advances the engine by one tick.
func (e *Engine) step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}

	if e.AutosaveEvery > 0 && e.Tick%e.AutosaveEvery == 0 && e.OnAutosave != nil {
		e.OnAutosave(e.Tick)
	}
}

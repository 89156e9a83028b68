package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/sutki/internal/daywindow"
	"github.com/talgya/sutki/internal/economy"
	"github.com/talgya/sutki/internal/engine"
	"github.com/talgya/sutki/internal/persistence"
)

// Store persists snapshots of a game.
type Store interface {
	SaveState(ctx context.Context, s *economy.State, now time.Time) (persistence.Record, error)
}

// Session is one game in progress. All methods are safe for concurrent use;
// they take turns on the single underlying state.
type Session struct {
	mu sync.Mutex

	state     *economy.State
	catalog   economy.Catalog
	clock     Clock
	store     Store
	dayOffset time.Duration
	maxDelta  float64 // seconds

	last     time.Time
	result   engine.Result
	status   string
	statusAt time.Time
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Clock     Clock
	Store     Store // nil disables Save
	DayOffset time.Duration
	MaxDelta  time.Duration // longest tick that earns; 0 means engine.DefaultMaxDelta
}

// NewSession starts hosting state.
func NewSession(state *economy.State, catalog economy.Catalog, opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	maxDelta := engine.DefaultMaxDelta
	if opts.MaxDelta > 0 {
		maxDelta = opts.MaxDelta.Seconds()
	}
	now := clock.Now()
	s := &Session{
		state:     state,
		catalog:   catalog,
		clock:     clock,
		store:     opts.Store,
		dayOffset: opts.DayOffset,
		maxDelta:  maxDelta,
		last:      now,
		status:    "Opened game",
		statusAt:  now,
	}
	s.result = engine.Step(state, s.day(now), 0)
	return s
}

func (s *Session) day(now time.Time) int {
	return daywindow.DayIndex(now, s.dayOffset)
}

// Advance runs one engine step covering the time since the previous one.
func (s *Session) Advance() engine.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	dt := now.Sub(s.last).Seconds()
	s.last = now

	s.result = engine.StepWithin(s.state, s.day(now), dt, s.maxDelta)
	if s.result.Delta != dt {
		slog.Warn("clock anomaly, tick earned nothing", "delta_seconds", dt)
	}
	return s.result
}

// BuyUnit hires a unit in slot i. It returns the refusal reason, or nil.
func (s *Session) BuyUnit(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.CheckUnit(i); err != nil {
		return err
	}
	s.state.BuyUnit(i)
	return nil
}

// BuyUpgrade buys a level of the k-th upgrade.
func (s *Session) BuyUpgrade(k int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.CheckUpgrade(k); err != nil {
		return err
	}
	s.state.BuyUpgrade(k)
	return nil
}

// BuyBoost feeds slot i a strawberry.
func (s *Session) BuyBoost(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.CheckBoost(i); err != nil {
		return err
	}
	s.state.BuyBoost(i)
	return nil
}

// Prestige resets the run for prestige currency.
func (s *Session) Prestige() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.CheckPrestige(); err != nil {
		return err
	}
	payout := s.state.PrestigePayout()
	s.state.Prestige(s.catalog)
	s.setStatus("Prestiged")
	slog.Info("prestige", "payout", payout, "prestige_currency", s.state.PrestigeCurrency)
	return nil
}

// Reset throws away all progress, prestige included.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reset(s.catalog)
	s.setStatus("Reset")
	slog.Info("game reset")
}

// Save writes a snapshot to the store.
func (s *Session) Save(ctx context.Context) (persistence.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return persistence.Record{}, nil
	}
	rec, err := s.store.SaveState(ctx, s.state, s.clock.Now())
	if err != nil {
		s.setStatus("Save failed")
		return rec, err
	}
	s.setStatus("Saved!")
	return rec, nil
}

// SetStatus replaces the status line shown to the player.
func (s *Session) SetStatus(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(msg)
}

func (s *Session) setStatus(msg string) {
	s.status = msg
	s.statusAt = s.clock.Now()
}

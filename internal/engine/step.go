package engine

import (
	"math"

	"github.com/talgya/sutki/internal/daywindow"
	"github.com/talgya/sutki/internal/economy"
)

// Fixed scaling factors applied every step.
const (
	EligibleBonus = 1.5 // slots inside today's window
	BoostBase     = 1.5 // per prestige boost level
)

// DefaultMaxDelta is the longest step Step accepts, in seconds. Anything
// beyond it is treated as a host clock jump and earns nothing.
const DefaultMaxDelta = 24 * 60 * 60.0

// Result is what a step reports back for display.
type Result struct {
	PerSecond float64 `json:"per_second"`
	Day       int     `json:"day"`
	Delta     float64 `json:"delta"` // the clamped delta actually applied
}

// ClampDelta maps negative, non-finite and longer-than-limit deltas to zero.
func ClampDelta(dt, limit float64) float64 {
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 || dt > limit {
		return 0
	}
	return dt
}

// Step advances s by dt seconds on calendar slot day, accepting deltas up to
// DefaultMaxDelta.
func Step(s *economy.State, day int, dt float64) Result {
	return StepWithin(s, day, dt, DefaultMaxDelta)
}

// StepWithin is Step with an explicit delta limit in seconds. Multipliers are
// rebuilt from scratch so catalog changes apply immediately without drift.
func StepWithin(s *economy.State, day int, dt, maxDelta float64) Result {
	dt = ClampDelta(dt, maxDelta)
	s.LastDelta = dt
	us := &s.Units

	for i := range us {
		us[i].Multiplier = 1
	}

	for _, up := range s.Upgrades {
		if up.Count > 0 {
			up.Def.Effect.Apply(us, up.Count)
		}
	}

	for i := range us {
		u := &us[i]
		if daywindow.IsEligible(day, s.DayWindowWidth, i) {
			u.Multiplier *= EligibleBonus
			if !u.Eligibility.Eligible {
				u.Eligibility = economy.Eligibility{Eligible: true}
			}
			u.Eligibility.Dwell += dt
		} else {
			u.Eligibility = economy.Eligibility{}
		}
		u.Multiplier *= math.Pow(BoostBase, float64(u.BoostLevel))
	}

	perSecond := 0.0
	for i := range us {
		perSecond += float64(us[i].Owned) * us[i].Multiplier
	}
	s.Currency += perSecond * dt

	return Result{PerSecond: perSecond, Day: day, Delta: dt}
}

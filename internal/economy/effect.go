package economy

import (
	"fmt"
	"math"

	"github.com/talgya/sutki/internal/daywindow"
)

// EffectKind names one of the fixed upgrade behaviours.
type EffectKind string

const (
	EffectUnit   EffectKind = "unit"   // one slot *= factor^n
	EffectRange  EffectKind = "range"  // slots from..to *= factor^n
	EffectAll    EffectKind = "all"    // every slot *= factor^n
	EffectLinear EffectKind = "linear" // every slot *= 1 + factor*n
	EffectHerd   EffectKind = "herd"   // every slot *= 1 + factor*n*(slots owned)
	EffectWindow EffectKind = "window" // widens the day window on purchase
)

// Effect describes how owning n copies of an upgrade scales the economy.
// Apply only ever touches unit multipliers.
type Effect struct {
	Kind   EffectKind `yaml:"kind"`
	Slot   int        `yaml:"slot,omitempty"`
	From   int        `yaml:"from,omitempty"`
	To     int        `yaml:"to,omitempty"`
	Factor float64    `yaml:"factor,omitempty"`
}

// Apply scales multipliers for n owned copies.
func (e Effect) Apply(us *Units, n int) {
	if n <= 0 {
		return
	}
	switch e.Kind {
	case EffectUnit:
		us[e.Slot].Multiplier *= math.Pow(e.Factor, float64(n))
	case EffectRange:
		f := math.Pow(e.Factor, float64(n))
		for i := e.From; i <= e.To; i++ {
			us[i].Multiplier *= f
		}
	case EffectAll:
		scaleAll(us, math.Pow(e.Factor, float64(n)))
	case EffectLinear:
		scaleAll(us, 1+e.Factor*float64(n))
	case EffectHerd:
		owned := 0
		for i := range us {
			if us[i].Owned > 0 {
				owned++
			}
		}
		scaleAll(us, 1+e.Factor*float64(n*owned))
	case EffectWindow:
		// Granted once per purchase, see State.BuyUpgrade.
	}
}

// onPurchase applies the one-off part of an effect.
func (e Effect) onPurchase(s *State) {
	if e.Kind == EffectWindow && s.DayWindowWidth < daywindow.Slots-1 {
		s.DayWindowWidth++
	}
}

func (e Effect) validate() error {
	inRange := func(i int) bool { return i >= 0 && i < daywindow.Slots }
	switch e.Kind {
	case EffectUnit:
		if !inRange(e.Slot) {
			return fmt.Errorf("slot %d out of range", e.Slot)
		}
	case EffectRange:
		if !inRange(e.From) || !inRange(e.To) || e.From > e.To {
			return fmt.Errorf("range %d..%d invalid", e.From, e.To)
		}
	case EffectAll, EffectLinear, EffectHerd, EffectWindow:
	default:
		return fmt.Errorf("unknown effect kind %q", e.Kind)
	}
	switch e.Kind {
	case EffectUnit, EffectRange, EffectAll:
		if e.Factor <= 0 {
			return fmt.Errorf("factor must be positive, got %v", e.Factor)
		}
	case EffectLinear, EffectHerd:
		if e.Factor < 0 {
			return fmt.Errorf("factor must not be negative, got %v", e.Factor)
		}
	}
	return nil
}

func scaleAll(us *Units, f float64) {
	for i := range us {
		us[i].Multiplier *= f
	}
}

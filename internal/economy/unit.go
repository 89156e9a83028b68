// Package economy holds the idle economy: the 31 day-slot production units,
// the upgrade catalog and the purchase and prestige commands that mutate them.
package economy

import "github.com/talgya/sutki/internal/daywindow"

// Default values for a fresh unit.
const (
	BasePrice        = 1.0
	BasePriceGrowth  = 1.5
	BaseBoostPrice   = 1
	FirstMoverFactor = 5.0 // applied to every unbought unit when another is first bought

	// IneligibleSentinel is the legacy save encoding of "not eligible".
	IneligibleSentinel = -0.05
)

// Eligibility records whether a unit sits inside today's window and, if so,
// for how many seconds it has been continuously eligible.
type Eligibility struct {
	Eligible bool
	Dwell    float64 // seconds; meaningful only when Eligible
}

// Sentinel encodes e as the single number used by the save schema.
func (e Eligibility) Sentinel() float64 {
	if !e.Eligible {
		return IneligibleSentinel
	}
	return e.Dwell
}

// EligibilityFromSentinel decodes the save schema number.
func EligibilityFromSentinel(v float64) Eligibility {
	if v < 0 {
		return Eligibility{}
	}
	return Eligibility{Eligible: true, Dwell: v}
}

// Unit is one "day N" production slot.
type Unit struct {
	Owned       int
	Price       float64
	PriceGrowth float64 // applied to Price on each purchase
	Multiplier  float64 // recomputed every tick
	Eligibility Eligibility

	// Prestige boosts survive resets.
	BoostLevel int
	BoostPrice int
}

// NewUnit returns a unit with default pricing and no boosts.
func NewUnit() Unit {
	return Unit{
		Price:       BasePrice,
		PriceGrowth: BasePriceGrowth,
		Multiplier:  1,
		Eligibility: Eligibility{Eligible: true},
		BoostPrice:  BaseBoostPrice,
	}
}

// BoostCost is the prestige currency needed for the next boost level.
func (u Unit) BoostCost() float64 {
	return float64(u.BoostPrice) * float64(u.BoostPrice)
}

// Units is the fixed roster of day slots.
type Units [daywindow.Slots]Unit

func newUnits() Units {
	var us Units
	for i := range us {
		us[i] = NewUnit()
	}
	return us
}

package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/talgya/sutki/internal/daywindow"
	"github.com/talgya/sutki/internal/economy"
)

// SchemaVersion is written into every snapshot.
const SchemaVersion = 1

// ErrMalformedSnapshot means the saved data could not be read at all.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the durable form of a game. Pointer fields distinguish "absent
// in an older save" from zero; absent fields fall back to new-game defaults.
type Snapshot struct {
	Version          int               `json:"version,omitempty"`
	Delta            *float64          `json:"dt,omitempty"`
	Units            []UnitSnapshot    `json:"production_units,omitempty"`
	DayWindowWidth   *int              `json:"day_window_width,omitempty"`
	Currency         *float64          `json:"currency,omitempty"`
	Upgrades         []UpgradeSnapshot `json:"upgrades"`
	PrestigeCurrency *float64          `json:"prestige_currency,omitempty"`
	BoostLevels      []int             `json:"boost_levels,omitempty"`
	BoostPrices      []int             `json:"boost_prices,omitempty"`
	PrestigeUnlocked *bool             `json:"prestige_unlocked,omitempty"`
}

// UnitSnapshot is one production slot. Owned is a number rather than an
// integer so older float-encoded saves still decode.
type UnitSnapshot struct {
	Owned            *float64 `json:"owned,omitempty"`
	Multiplier       *float64 `json:"multiplier,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	PriceGrowth      *float64 `json:"price_growth,omitempty"`
	EligibilityDwell *float64 `json:"eligibility_dwell,omitempty"`
}

// UpgradeSnapshot stores ownership only; the price is always rederived.
type UpgradeSnapshot struct {
	Name     string `json:"name"`
	Count    int    `json:"owned_count"`
	MaxCount int    `json:"max_count"`
}

// Report describes how saved upgrades were matched against the catalog.
type Report struct {
	Matched []string `json:"matched,omitempty"`
	Dropped []string `json:"dropped,omitempty"` // saved, but gone from the catalog
	Added   []string `json:"added,omitempty"`   // new in the catalog
}

func ptr[T any](v T) *T { return &v }

// Save converts s into its durable form.
func Save(s *economy.State) Snapshot {
	snap := Snapshot{
		Version:          SchemaVersion,
		Delta:            ptr(s.LastDelta),
		Units:            make([]UnitSnapshot, len(s.Units)),
		DayWindowWidth:   ptr(s.DayWindowWidth),
		Currency:         ptr(s.Currency),
		Upgrades:         make([]UpgradeSnapshot, 0, len(s.Upgrades)),
		PrestigeCurrency: ptr(s.PrestigeCurrency),
		BoostLevels:      make([]int, len(s.Units)),
		BoostPrices:      make([]int, len(s.Units)),
		PrestigeUnlocked: ptr(s.PrestigeUnlocked),
	}
	for i, u := range s.Units {
		snap.Units[i] = UnitSnapshot{
			Owned:            ptr(float64(u.Owned)),
			Multiplier:       ptr(u.Multiplier),
			Price:            ptr(u.Price),
			PriceGrowth:      ptr(u.PriceGrowth),
			EligibilityDwell: ptr(u.Eligibility.Sentinel()),
		}
		snap.BoostLevels[i] = u.BoostLevel
		snap.BoostPrices[i] = u.BoostPrice
	}
	for _, up := range s.Upgrades {
		snap.Upgrades = append(snap.Upgrades, UpgradeSnapshot{
			Name:     up.Def.Name,
			Count:    up.Count,
			MaxCount: up.Def.MaxCount,
		})
	}
	return snap
}

// Load rebuilds a game from snap, reconciling saved upgrades against catalog.
func Load(snap Snapshot, catalog economy.Catalog) *economy.State {
	s, _ := Reconcile(snap, catalog)
	return s
}

// Reconcile is Load that also reports what happened to each upgrade.
// Upgrades are matched by exact (name, max_count); anything else is dropped.
func Reconcile(snap Snapshot, catalog economy.Catalog) (*economy.State, Report) {
	s := economy.NewState(catalog)

	if snap.Delta != nil {
		s.LastDelta = *snap.Delta
	}
	if snap.Currency != nil {
		s.Currency = math.Max(*snap.Currency, 0)
	}
	if snap.PrestigeCurrency != nil {
		s.PrestigeCurrency = math.Max(*snap.PrestigeCurrency, 0)
	}
	if snap.PrestigeUnlocked != nil {
		s.PrestigeUnlocked = *snap.PrestigeUnlocked
	}
	if snap.DayWindowWidth != nil {
		s.DayWindowWidth = min(max(*snap.DayWindowWidth, 0), daywindow.Slots-1)
	}

	for i := range s.Units {
		u := &s.Units[i]
		if i < len(snap.Units) {
			us := snap.Units[i]
			if us.Owned != nil {
				u.Owned = max(int(math.Round(*us.Owned)), 0)
			}
			if us.Multiplier != nil {
				u.Multiplier = *us.Multiplier
			}
			if us.Price != nil && *us.Price >= economy.BasePrice && !math.IsInf(*us.Price, 1) {
				u.Price = *us.Price
			}
			if us.PriceGrowth != nil && *us.PriceGrowth > 1 && !math.IsInf(*us.PriceGrowth, 1) {
				u.PriceGrowth = *us.PriceGrowth
			}
			if us.EligibilityDwell != nil {
				u.Eligibility = economy.EligibilityFromSentinel(*us.EligibilityDwell)
			}
		}
		if i < len(snap.BoostLevels) {
			u.BoostLevel = max(snap.BoostLevels[i], 0)
		}
		if i < len(snap.BoostPrices) {
			u.BoostPrice = max(snap.BoostPrices[i], economy.BaseBoostPrice)
		}
	}

	var rep Report
	claimed := make([]bool, len(s.Upgrades))
	for _, saved := range snap.Upgrades {
		k := matchUpgrade(s.Upgrades, claimed, saved)
		if k < 0 {
			rep.Dropped = append(rep.Dropped, saved.Name)
			continue
		}
		claimed[k] = true
		s.Upgrades[k].Replay(saved.Count)
		rep.Matched = append(rep.Matched, saved.Name)
	}
	for k, up := range s.Upgrades {
		if !claimed[k] {
			rep.Added = append(rep.Added, up.Def.Name)
		}
	}
	return s, rep
}

func matchUpgrade(ups []*economy.Upgrade, claimed []bool, saved UpgradeSnapshot) int {
	for k, up := range ups {
		if !claimed[k] && up.Def.Name == saved.Name && up.Def.MaxCount == saved.MaxCount {
			return k
		}
	}
	return -1
}

// Encode marshals the snapshot of s as JSON.
func Encode(s *economy.State) ([]byte, error) {
	data, err := json.Marshal(Save(s))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses JSON snapshot data. Data that does not parse yields a new
// game and an error wrapping ErrMalformedSnapshot; nothing is partially applied.
func Decode(data []byte, catalog economy.Catalog) (*economy.State, Report, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return economy.NewState(catalog), Report{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	s, rep := Reconcile(snap, catalog)
	return s, rep, nil
}

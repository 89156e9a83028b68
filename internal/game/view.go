package game

import (
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/sutki/internal/daywindow"
	"github.com/talgya/sutki/internal/economy"
)

// View is everything a front end needs to draw the game.
type View struct {
	Currency         float64 `json:"currency"`
	CurrencyText     string  `json:"currency_text"`
	PerSecond        float64 `json:"per_second"`
	PerSecondText    string  `json:"per_second_text"`
	PrestigeCurrency float64 `json:"prestige_currency"`
	PrestigeUnlocked bool    `json:"prestige_unlocked"`
	PrestigePayout   float64 `json:"prestige_payout"`
	CanPrestige      bool    `json:"can_prestige"`
	TotalOwned       int     `json:"total_owned"`

	Day              int   `json:"day"` // zero-based slot of today
	DayWindowWidth   int   `json:"day_window_width"`
	ActiveSlots      []int `json:"active_slots"`
	SecondsUntilNext int64 `json:"seconds_until_tomorrow"`

	Units    []UnitView    `json:"units"`
	Upgrades []UpgradeView `json:"upgrades"`

	Status    string `json:"status"`
	StatusAge int64  `json:"status_age_seconds"`
}

// UnitView is one day slot as displayed.
type UnitView struct {
	Day         int     `json:"day"` // one-based, as shown to players
	Owned       int     `json:"owned"`
	Multiplier  float64 `json:"multiplier"`
	Price       float64 `json:"price"`
	PriceGrowth float64 `json:"price_growth"`
	Affordable  bool    `json:"affordable"`
	Eligible    bool    `json:"eligible"`
	Dwell       float64 `json:"eligibility_dwell"` // negative when not eligible
	BoostLevel  int     `json:"boost_level"`
	BoostCost   float64 `json:"boost_cost"`
}

// UpgradeView is one catalog entry as displayed.
type UpgradeView struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	PriceGrowth float64 `json:"price_growth"`
	Count       int     `json:"owned_count"`
	MaxCount    int     `json:"max_count"`
	Affordable  bool    `json:"affordable"`
	// SecondsToAfford is 0 when affordable and -1 when income is zero or
	// the cap is reached.
	SecondsToAfford float64 `json:"seconds_to_afford"`
}

// View snapshots the game for display.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	st := s.state
	day := s.day(now)
	cps := s.result.PerSecond

	v := View{
		Currency:         st.Currency,
		CurrencyText:     FormatAmount(st.Currency),
		PerSecond:        cps,
		PerSecondText:    humanize.FormatFloat("#,###.##", cps),
		PrestigeCurrency: st.PrestigeCurrency,
		PrestigeUnlocked: st.PrestigeUnlocked,
		PrestigePayout:   st.PrestigePayout(),
		CanPrestige:      st.CheckPrestige() == nil,
		TotalOwned:       st.TotalOwned(),
		Day:              day,
		DayWindowWidth:   st.DayWindowWidth,
		ActiveSlots:      daywindow.ActiveSlots(day, st.DayWindowWidth),
		SecondsUntilNext: int64(daywindow.UntilRollover(now, s.dayOffset).Seconds()),
		Units:            make([]UnitView, 0, len(st.Units)),
		Upgrades:         make([]UpgradeView, 0, len(st.Upgrades)),
		Status:           s.status,
		StatusAge:        int64(now.Sub(s.statusAt).Seconds()),
	}

	for i, u := range st.Units {
		v.Units = append(v.Units, UnitView{
			Day:         i + 1,
			Owned:       u.Owned,
			Multiplier:  u.Multiplier,
			Price:       u.Price,
			PriceGrowth: u.PriceGrowth,
			Affordable:  st.CheckUnit(i) == nil,
			Eligible:    u.Eligibility.Eligible,
			Dwell:       u.Eligibility.Sentinel(),
			BoostLevel:  u.BoostLevel,
			BoostCost:   u.BoostCost(),
		})
	}

	for _, up := range st.Upgrades {
		v.Upgrades = append(v.Upgrades, UpgradeView{
			Name:            up.Def.Name,
			Description:     up.Def.Description,
			Price:           up.Price,
			PriceGrowth:     up.Def.PriceGrowth,
			Count:           up.Count,
			MaxCount:        up.Def.MaxCount,
			Affordable:      !up.Maxed() && st.Currency >= up.Price,
			SecondsToAfford: secondsToAfford(up, st.Currency, cps),
		})
	}
	return v
}

func secondsToAfford(up *economy.Upgrade, currency, cps float64) float64 {
	switch {
	case up.Maxed():
		return -1
	case currency >= up.Price:
		return 0
	case cps <= 0:
		return -1
	}
	return math.Ceil((up.Price - currency) / cps)
}

// FormatAmount renders a currency amount for people: whole units with
// thousands separators, switching to SI prefixes once numbers get huge.
func FormatAmount(x float64) string {
	if math.Abs(x) < 1e9 {
		return humanize.Commaf(math.Round(x))
	}
	return humanize.SIWithDigits(x, 2, "")
}

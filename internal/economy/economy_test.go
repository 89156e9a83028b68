package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := DefaultCatalog()
	require.NotEmpty(t, c)
	require.NoError(t, c.Validate())
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState(DefaultCatalog())

	assert.Equal(t, StartCurrency, s.Currency)
	assert.Zero(t, s.PrestigeCurrency)
	assert.False(t, s.PrestigeUnlocked)
	assert.Zero(t, s.DayWindowWidth)
	for i, u := range s.Units {
		assert.Equal(t, BasePrice, u.Price, "unit %d", i)
		assert.Equal(t, BasePriceGrowth, u.PriceGrowth, "unit %d", i)
		assert.Equal(t, 1.0, u.Multiplier, "unit %d", i)
		assert.Equal(t, BaseBoostPrice, u.BoostPrice, "unit %d", i)
	}
	for _, up := range s.Upgrades {
		assert.Zero(t, up.Count)
		assert.Equal(t, up.Def.Price, up.Price)
	}
}

func TestBuyUnit_Monotonic(t *testing.T) {
	s := NewState(nil)
	s.Currency = 100

	before := s.Units[3]
	require.True(t, s.BuyUnit(3))

	assert.Equal(t, before.Owned+1, s.Units[3].Owned)
	assert.Greater(t, s.Units[3].Price, before.Price)
	assert.InDelta(t, 100-before.Price, s.Currency, 1e-9)
}

func TestBuyUnit_InsufficientFunds(t *testing.T) {
	s := NewState(nil)
	s.Currency = 0.5
	snapshot := *s

	assert.False(t, s.BuyUnit(0))
	assert.ErrorIs(t, s.CheckUnit(0), ErrInsufficientFunds)
	assert.Equal(t, snapshot.Units, s.Units)
	assert.Equal(t, snapshot.Currency, s.Currency)
}

func TestBuyUnit_BadIndex(t *testing.T) {
	s := NewState(nil)
	s.Currency = 1000
	assert.False(t, s.BuyUnit(-1))
	assert.False(t, s.BuyUnit(31))
	assert.ErrorIs(t, s.CheckUnit(31), ErrBadIndex)
}

func TestBuyUnit_FirstMoverPenaltyOncePerUnit(t *testing.T) {
	s := NewState(nil)
	s.Currency = 1000

	require.True(t, s.BuyUnit(0))
	assert.Equal(t, 1.5, s.Units[0].Price)
	assert.Equal(t, 5.0, s.Units[1].Price)
	assert.Equal(t, 5.0, s.Units[2].Price)

	// Unit 1's first purchase penalizes the remaining unbought units but
	// leaves the already-owned unit 0 alone.
	require.True(t, s.BuyUnit(1))
	assert.Equal(t, 1.5, s.Units[0].Price)
	assert.Equal(t, 7.5, s.Units[1].Price)
	assert.Equal(t, 25.0, s.Units[2].Price)

	// Repeat purchases of an owned unit do not penalize anyone.
	require.True(t, s.BuyUnit(1))
	assert.Equal(t, 25.0, s.Units[2].Price)
	assert.Equal(t, 1.5, s.Units[0].Price)
}

func TestBuyUpgrade(t *testing.T) {
	c := Catalog{{Name: "x", Price: 10, PriceGrowth: 2, MaxCount: 2, Effect: Effect{Kind: EffectAll, Factor: 2}}}
	s := NewState(c)
	s.Currency = 100

	require.True(t, s.BuyUpgrade(0))
	assert.Equal(t, 1, s.Upgrades[0].Count)
	assert.Equal(t, 20.0, s.Upgrades[0].Price)
	assert.Equal(t, 90.0, s.Currency)

	require.True(t, s.BuyUpgrade(0))
	assert.Equal(t, 70.0, s.Currency)

	assert.False(t, s.BuyUpgrade(0))
	assert.ErrorIs(t, s.CheckUpgrade(0), ErrCapReached)
	assert.Equal(t, 70.0, s.Currency)
	assert.Equal(t, 2, s.Upgrades[0].Count)
}

func TestBuyUpgrade_InsufficientFunds(t *testing.T) {
	c := Catalog{{Name: "x", Price: 10, PriceGrowth: 2, MaxCount: 2, Effect: Effect{Kind: EffectAll, Factor: 2}}}
	s := NewState(c)
	s.Currency = 9

	assert.False(t, s.BuyUpgrade(0))
	assert.ErrorIs(t, s.CheckUpgrade(0), ErrInsufficientFunds)
	assert.Zero(t, s.Upgrades[0].Count)
	assert.Equal(t, 9.0, s.Currency)
}

func TestBuyUpgrade_WindowWidens(t *testing.T) {
	c := Catalog{{Name: "cal", Price: 1, PriceGrowth: 2, MaxCount: 3, Effect: Effect{Kind: EffectWindow}}}
	s := NewState(c)
	s.Currency = 100

	require.True(t, s.BuyUpgrade(0))
	require.True(t, s.BuyUpgrade(0))
	assert.Equal(t, 2, s.DayWindowWidth)
}

func TestBuyBoost(t *testing.T) {
	s := NewState(nil)
	s.PrestigeCurrency = 10

	assert.False(t, s.BuyBoost(4))
	assert.ErrorIs(t, s.CheckBoost(4), ErrLocked)

	s.PrestigeUnlocked = true
	require.True(t, s.BuyBoost(4)) // costs 1
	require.True(t, s.BuyBoost(4)) // costs 4
	assert.Equal(t, 5.0, s.PrestigeCurrency)
	assert.Equal(t, 2, s.Units[4].BoostLevel)
	assert.Equal(t, 3, s.Units[4].BoostPrice)

	assert.False(t, s.BuyBoost(4)) // costs 9
	assert.ErrorIs(t, s.CheckBoost(4), ErrInsufficientFunds)
	assert.Equal(t, 5.0, s.PrestigeCurrency)
}

func TestPrestige_BelowThreshold(t *testing.T) {
	s := NewState(DefaultCatalog())
	s.Units[0].Owned = 59
	s.Currency = 123

	assert.False(t, s.Prestige(DefaultCatalog()))
	assert.ErrorIs(t, s.CheckPrestige(), ErrPrestigeThreshold)
	assert.Equal(t, 123.0, s.Currency)
	assert.Equal(t, 59, s.Units[0].Owned)
}

func TestPrestige_ResetsRunKeepsMeta(t *testing.T) {
	catalog := DefaultCatalog()
	s := NewState(catalog)
	for i := 0; i < 30; i++ {
		s.Units[i].Owned = 3
		s.Units[i].Price = 42
	}
	s.Units[7].BoostLevel = 2
	s.Units[7].BoostPrice = 3
	s.Upgrades[0].Replay(4)
	s.Currency = 9999
	s.DayWindowWidth = 3
	s.PrestigeCurrency = 0.5

	require.Equal(t, 90, s.TotalOwned())
	require.True(t, s.Prestige(catalog))

	assert.InDelta(t, 2.5, s.PrestigeCurrency, 1e-9)
	assert.True(t, s.PrestigeUnlocked)
	assert.Equal(t, StartCurrency, s.Currency)
	assert.Zero(t, s.DayWindowWidth)
	assert.Zero(t, s.TotalOwned())
	for _, u := range s.Units {
		assert.Equal(t, BasePrice, u.Price)
	}
	assert.Equal(t, 2, s.Units[7].BoostLevel)
	assert.Equal(t, 3, s.Units[7].BoostPrice)
	for _, up := range s.Upgrades {
		assert.Zero(t, up.Count)
	}
}

func TestReset(t *testing.T) {
	s := NewState(DefaultCatalog())
	s.PrestigeUnlocked = true
	s.PrestigeCurrency = 4
	s.Units[1].BoostLevel = 1

	s.Reset(DefaultCatalog())
	assert.Equal(t, NewState(DefaultCatalog()), s)
}

func TestEligibilitySentinel(t *testing.T) {
	assert.Equal(t, IneligibleSentinel, Eligibility{}.Sentinel())
	assert.Equal(t, 2.5, Eligibility{Eligible: true, Dwell: 2.5}.Sentinel())
	assert.Equal(t, Eligibility{}, EligibilityFromSentinel(-0.05))
	assert.Equal(t, Eligibility{Eligible: true}, EligibilityFromSentinel(0))
}

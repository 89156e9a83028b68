package economy

import "errors"

// Refusal reasons. Commands never fail loudly; these only explain why a
// Check returned false.
var (
	ErrBadIndex          = errors.New("no such item")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCapReached        = errors.New("upgrade cap reached")
	ErrLocked            = errors.New("prestige tier locked")
	ErrPrestigeThreshold = errors.New("not enough units owned to prestige")
)

func validSlot(i int) bool { return i >= 0 && i < len(Units{}) }

// CheckUnit reports why BuyUnit(i) would be refused, or nil.
func (s *State) CheckUnit(i int) error {
	if !validSlot(i) {
		return ErrBadIndex
	}
	if s.Currency < s.Units[i].Price {
		return ErrInsufficientFunds
	}
	return nil
}

// BuyUnit hires one more unit in slot i. The first unit bought in a slot
// makes every still-unowned slot five times more expensive.
func (s *State) BuyUnit(i int) bool {
	if s.CheckUnit(i) != nil {
		return false
	}
	u := &s.Units[i]
	s.Currency -= u.Price
	if u.Owned == 0 {
		for j := range s.Units {
			if j != i && s.Units[j].Owned == 0 {
				s.Units[j].Price *= FirstMoverFactor
			}
		}
	}
	u.Owned++
	u.Price *= u.PriceGrowth
	return true
}

// CheckUpgrade reports why BuyUpgrade(k) would be refused, or nil.
func (s *State) CheckUpgrade(k int) error {
	if k < 0 || k >= len(s.Upgrades) {
		return ErrBadIndex
	}
	up := s.Upgrades[k]
	if up.Maxed() {
		return ErrCapReached
	}
	if s.Currency < up.Price {
		return ErrInsufficientFunds
	}
	return nil
}

// BuyUpgrade buys one level of the k-th upgrade.
func (s *State) BuyUpgrade(k int) bool {
	if s.CheckUpgrade(k) != nil {
		return false
	}
	up := s.Upgrades[k]
	s.Currency -= up.Price
	up.Price *= up.Def.PriceGrowth
	up.Count++
	up.Def.Effect.onPurchase(s)
	return true
}

// CheckBoost reports why BuyBoost(i) would be refused, or nil.
func (s *State) CheckBoost(i int) error {
	if !validSlot(i) {
		return ErrBadIndex
	}
	if !s.PrestigeUnlocked {
		return ErrLocked
	}
	if s.PrestigeCurrency < s.Units[i].BoostCost() {
		return ErrInsufficientFunds
	}
	return nil
}

// BuyBoost spends prestige currency on a permanent x1.5 step for slot i.
func (s *State) BuyBoost(i int) bool {
	if s.CheckBoost(i) != nil {
		return false
	}
	u := &s.Units[i]
	s.PrestigeCurrency -= u.BoostCost()
	u.BoostLevel++
	u.BoostPrice++
	return true
}

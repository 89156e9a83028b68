package economy

// CheckPrestige reports why Prestige would be refused, or nil.
func (s *State) CheckPrestige() error {
	if s.TotalOwned() < PrestigeMinOwned {
		return ErrPrestigeThreshold
	}
	return nil
}

// Prestige trades every owned unit for prestige currency and starts the run
// over with catalog. Prestige currency, boosts and the unlocked tier carry over.
func (s *State) Prestige(catalog Catalog) bool {
	if s.CheckPrestige() != nil {
		return false
	}
	s.PrestigeCurrency += s.PrestigePayout()
	for i := range s.Units {
		u := &s.Units[i]
		u.Owned = 0
		u.Price = BasePrice
	}
	s.Upgrades = catalog.Instances()
	s.Currency = StartCurrency
	s.DayWindowWidth = 0
	s.PrestigeUnlocked = true
	return true
}

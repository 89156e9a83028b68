package economy

// Prestige thresholds.
const (
	PrestigeMinOwned = 60
	PrestigeDivisor  = 30.0
	StartCurrency    = 1.0
)

// State is the whole economy of one game session. It has no internal
// locking; callers serialize access.
type State struct {
	Units    Units
	Currency float64
	Upgrades []*Upgrade

	// Survive prestige.
	PrestigeCurrency float64
	PrestigeUnlocked bool

	// Widened by upgrades, cleared by prestige.
	DayWindowWidth int

	// LastDelta is the most recent tick delta in seconds.
	LastDelta float64
}

// NewState returns a fresh game using catalog for the upgrade list.
func NewState(catalog Catalog) *State {
	return &State{
		Units:    newUnits(),
		Currency: StartCurrency,
		Upgrades: catalog.Instances(),
	}
}

// TotalOwned is the number of units owned across all slots.
func (s *State) TotalOwned() int {
	n := 0
	for i := range s.Units {
		n += s.Units[i].Owned
	}
	return n
}

// PrestigePayout is the prestige currency a prestige would grant now.
func (s *State) PrestigePayout() float64 {
	return float64(s.TotalOwned())/PrestigeDivisor - 1
}

// Upgrade looks up an owned upgrade instance by name.
func (s *State) Upgrade(name string) (*Upgrade, bool) {
	for _, u := range s.Upgrades {
		if u.Def.Name == name {
			return u, true
		}
	}
	return nil, false
}

// Reset restores every field, prestige progress included, to a new game.
func (s *State) Reset(catalog Catalog) {
	*s = *NewState(catalog)
}

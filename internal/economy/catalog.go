package economy

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Definition is an immutable upgrade template. Name is unique within a catalog.
type Definition struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
	PriceGrowth float64 `yaml:"price_growth"`
	MaxCount    int     `yaml:"max_count"`
	Effect      Effect  `yaml:"effect"`
}

// Catalog is the ordered list of upgrades offered by this build.
type Catalog []Definition

// Upgrade pairs a definition with how many the player owns and the price
// currently quoted for the next one.
type Upgrade struct {
	Def   Definition
	Count int
	Price float64
}

// Maxed reports whether the cap has been reached.
func (u *Upgrade) Maxed() bool {
	return u.Count >= u.Def.MaxCount
}

// Replay sets the owned count and derives the quoted price in closed form.
func (u *Upgrade) Replay(count int) {
	if count < 0 {
		count = 0
	}
	if count > u.Def.MaxCount {
		count = u.Def.MaxCount
	}
	u.Count = count
	u.Price = u.Def.Price * math.Pow(u.Def.PriceGrowth, float64(count))
}

// Instances returns fresh, unowned upgrades in catalog order.
func (c Catalog) Instances() []*Upgrade {
	ups := make([]*Upgrade, 0, len(c))
	for _, d := range c {
		ups = append(ups, &Upgrade{Def: d, Price: d.Price})
	}
	return ups
}

// Validate reports every problem in the catalog at once.
func (c Catalog) Validate() error {
	seen := make(map[string]bool, len(c))
	var errs []error
	for i, d := range c {
		name := strings.TrimSpace(d.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("upgrade %d: name is required", i))
		case seen[name]:
			errs = append(errs, fmt.Errorf("upgrade %q: duplicate name", name))
		}
		seen[name] = true
		if d.MaxCount < 1 {
			errs = append(errs, fmt.Errorf("upgrade %q: max_count must be at least 1", name))
		}
		if d.Price <= 0 {
			errs = append(errs, fmt.Errorf("upgrade %q: price must be positive", name))
		}
		if d.PriceGrowth <= 1 {
			errs = append(errs, fmt.Errorf("upgrade %q: price_growth must exceed 1", name))
		}
		if err := d.Effect.validate(); err != nil {
			errs = append(errs, fmt.Errorf("upgrade %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

type catalogFile struct {
	Upgrades []Definition `yaml:"upgrades"`
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := Catalog(f.Upgrades)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

// DefaultCatalog returns the catalog embedded in this build.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

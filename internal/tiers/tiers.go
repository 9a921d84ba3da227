// Package tiers holds the conversion tier catalog: the named quantities units
// are packaged in, which tiers each may be split into, and where they may live.
package tiers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	"github.com/angelmondragon/packfinderz-inventory/pkg/qr"
)

// Tier is one packaging size.
type Tier struct {
	ID               string               `json:"id"`
	Label            string               `json:"label"`
	Quantity         decimal.Decimal      `json:"quantity"`
	Level            int                  `json:"level"`
	QRPrefix         qr.Class             `json:"qr_prefix"`
	LabelTemplate    string               `json:"label_template"`
	AllowedLocations []enums.LocationType `json:"allowed_locations"`
	ConvertsTo       []string             `json:"converts_to"`
}

// CanConvertTo reports whether units of this tier may be split into target.
func (t Tier) CanConvertTo(target string) bool {
	for _, id := range t.ConvertsTo {
		if id == target {
			return true
		}
	}
	return false
}

// AllowsLocation reports whether a location of the given type may hold this tier.
func (t Tier) AllowsLocation(locationType enums.LocationType) bool {
	for _, allowed := range t.AllowedLocations {
		if allowed == locationType {
			return true
		}
	}
	return false
}

// Catalog is an immutable, validated set of tiers.
type Catalog struct {
	byID  map[string]Tier
	order []string
}

// NewCatalog validates the tiers and indexes them by id.
func NewCatalog(list []Tier) (*Catalog, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("tier catalog is empty")
	}
	c := &Catalog{byID: make(map[string]Tier, len(list))}
	for _, t := range list {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("tier id is required")
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tier %q", t.ID)
		}
		if !t.Quantity.IsPositive() {
			return nil, fmt.Errorf("tier %q quantity must be positive", t.ID)
		}
		if t.QRPrefix == "" {
			t.QRPrefix = qr.ClassForQuantity(t.Quantity)
		}
		if !t.QRPrefix.IsValid() {
			return nil, fmt.Errorf("tier %q has invalid qr prefix %q", t.ID, t.QRPrefix)
		}
		for _, loc := range t.AllowedLocations {
			if !loc.IsValid() {
				return nil, fmt.Errorf("tier %q allows unknown location type %q", t.ID, loc)
			}
		}
		c.byID[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	for _, t := range c.byID {
		for _, target := range t.ConvertsTo {
			child, ok := c.byID[target]
			if !ok {
				return nil, fmt.Errorf("tier %q converts to unknown tier %q", t.ID, target)
			}
			if !child.Quantity.LessThan(t.Quantity) {
				return nil, fmt.Errorf("tier %q may only convert into smaller tiers, %q is not", t.ID, target)
			}
		}
	}
	sort.SliceStable(c.order, func(i, j int) bool {
		return c.byID[c.order[i]].Level < c.byID[c.order[j]].Level
	})
	return c, nil
}

// Get returns the tier with the given id.
func (c *Catalog) Get(id string) (Tier, bool) {
	t, ok := c.byID[strings.TrimSpace(id)]
	return t, ok
}

// All returns the tiers ordered from largest to smallest.
func (c *Catalog) All() []Tier {
	out := make([]Tier, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Load reads a JSON array of tiers.
func Load(r io.Reader) (*Catalog, error) {
	var list []Tier
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode tier catalog: %w", err)
	}
	return NewCatalog(list)
}

// LoadFile reads the catalog from path, or returns the default catalog when path is empty.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tier catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

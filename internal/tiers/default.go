package tiers

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
)

const (
	Pound        = "pound"
	HalfPound    = "half_pound"
	QuarterPound = "quarter_pound"
	Ounce        = "ounce"
	QuarterOunce = "quarter_ounce"
	Eighth       = "eighth"
	Gram         = "gram"
)

var (
	bulkLocations   = []enums.LocationType{enums.LocationWarehouse, enums.LocationDistributionCenter}
	retailLocations = []enums.LocationType{enums.LocationDistributionCenter, enums.LocationRetailStore}
)

// DefaultTiers returns the gram-based catalog used when no file is configured.
func DefaultTiers() []Tier {
	return []Tier{
		{ID: Pound, Label: "Pound", Quantity: decimal.NewFromInt(448), Level: 0, QRPrefix: "B",
			LabelTemplate: "bulk", AllowedLocations: bulkLocations,
			ConvertsTo: []string{HalfPound, QuarterPound, Ounce}},
		{ID: HalfPound, Label: "Half Pound", Quantity: decimal.NewFromInt(224), Level: 1, QRPrefix: "B",
			LabelTemplate: "bulk", AllowedLocations: bulkLocations,
			ConvertsTo: []string{QuarterPound, Ounce}},
		{ID: QuarterPound, Label: "Quarter Pound", Quantity: decimal.NewFromInt(112), Level: 2, QRPrefix: "D",
			LabelTemplate: "distribution", AllowedLocations: enums.AllLocationTypes(),
			ConvertsTo: []string{Ounce, QuarterOunce}},
		{ID: Ounce, Label: "Ounce", Quantity: decimal.NewFromInt(28), Level: 3, QRPrefix: "D",
			LabelTemplate: "distribution", AllowedLocations: enums.AllLocationTypes(),
			ConvertsTo: []string{QuarterOunce, Eighth, Gram}},
		{ID: QuarterOunce, Label: "Quarter Ounce", Quantity: decimal.NewFromInt(7), Level: 4, QRPrefix: "I",
			LabelTemplate: "retail", AllowedLocations: retailLocations,
			ConvertsTo: []string{Eighth, Gram}},
		{ID: Eighth, Label: "Eighth", Quantity: decimal.RequireFromString("3.5"), Level: 5, QRPrefix: "I",
			LabelTemplate: "retail", AllowedLocations: retailLocations,
			ConvertsTo: []string{Gram}},
		{ID: Gram, Label: "Gram", Quantity: decimal.NewFromInt(1), Level: 6, QRPrefix: "S",
			LabelTemplate: "sale", AllowedLocations: []enums.LocationType{enums.LocationRetailStore}},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(DefaultTiers())
	if err != nil {
		panic(err)
	}
	return c
}

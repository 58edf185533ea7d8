// Package testutil provides common fixtures for testing.
package testutil

import (
	"fmt"

	"github.com/iwvelando/scheme-engine/pkg/records"
)

// Flavours cycles through every divisor class plus one unlisted flavour.
var Flavours = []string{"JUICE", "SPARKLING", "WATER", "SODA RGB", "ENERGY"}

// Brands cycles through a handful of brand names.
var Brands = []string{"Maaza", "Sprite", "Kinley", "Thums Up"}

// Products builds n product records with deterministic field values.
func Products(n int) []records.Record {
	raw := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		raw[i] = map[string]interface{}{
			"_id":               fmt.Sprintf("p%04d", i),
			"ITEMID":            fmt.Sprintf("FG%04d", i),
			"ITEMNAME":          fmt.Sprintf("Item %d", i),
			"FLAVOURTYPE":       Flavours[i%len(Flavours)],
			"BRANDNAME":         Brands[i%len(Brands)],
			"PACKTYPEGROUPNAME": fmt.Sprintf("PG%d", i%3),
			"Style":             fmt.Sprintf("S%d", i%7),
			"PACKTYPE":          "PET",
			"NOB":               float64(6 * (1 + i%4)),
			"Configuration":     float64(10 * (1 + i%9)),
		}
	}
	return records.FromRawProducts(raw)
}

// Distributors builds n distributor records spread over four groups.
func Distributors(n int) []records.Record {
	cities := []string{"Delhi", "Pune", "Jaipur", "Nagpur", "Surat"}
	raw := make([]map[string]interface{}, n)
	for i := 0; i < n; i++ {
		raw[i] = map[string]interface{}{
			"_id":              fmt.Sprintf("d%04d", i),
			"CUSTOMERACCOUNT":  fmt.Sprintf("C%04d", i),
			"ORGANIZATIONNAME": fmt.Sprintf("Distributor %d", i),
			"ADDRESSCITY":      cities[i%len(cities)],
			"CUSTOMERGROUPID":  fmt.Sprintf("G%d", i%4),
			"SMCODE":           fmt.Sprintf("SM%d", i%2),
		}
	}
	return records.FromRawDistributors(raw)
}

// FindRecord finds a record by key in the slice.
// Returns a pointer to the record if found, nil otherwise.
func FindRecord(recs []records.Record, key string) *records.Record {
	for i := range recs {
		if recs[i].Key == key {
			return &recs[i]
		}
	}
	return nil
}

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/iwvelando/scheme-engine/internal/config"
	"github.com/iwvelando/scheme-engine/internal/duplicates"
	"github.com/iwvelando/scheme-engine/internal/filter"
	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/internal/workspace"
	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/testutil"
)

const largeCatalog = 50000

func largePage(t *testing.T) (*workspace.Page, *config.Configuration) {
	t.Helper()
	conf, err := config.LoadConfiguration("../test_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	strategy, err := conf.Strategy(scheme.Base)
	if err != nil {
		t.Fatalf("Strategy failed: %v", err)
	}
	page := workspace.NewPage(scheme.Base, testutil.Products(largeCatalog), testutil.Distributors(2000), strategy, workspace.Options{
		OptionSampleLimit: conf.Engine.OptionSampleLimit,
		ChunkSize:         conf.Engine.FilterChunkSize,
		DeferThreshold:    conf.Engine.DeferThreshold,
		Logger:            zap.NewNop(),
	})
	return page, conf
}

// TestFilterPerformance checks chunked filtering against the single pass
// and times both on a large catalog.
func TestFilterPerformance(t *testing.T) {
	products := testutil.Products(largeCatalog)
	state := filter.State{
		records.FieldFlavour:   filter.OneOf("JUICE"),
		records.FieldBrandName: filter.Text("maa"),
	}

	start := time.Now()
	direct := filter.Apply(products, state)
	directTime := time.Since(start)

	start = time.Now()
	chunked, err := filter.ApplyContext(context.Background(), products, state, 250)
	if err != nil {
		t.Fatalf("ApplyContext failed: %v", err)
	}
	chunkedTime := time.Since(start)

	t.Logf("Performance metrics:")
	t.Logf("  Single pass filter: %v", directTime)
	t.Logf("  Chunked filter: %v", chunkedTime)

	// JUICE is every fifth product and Maaza every fourth
	if len(direct) != largeCatalog/20 {
		t.Errorf("Expected %d matches, got %d", largeCatalog/20, len(direct))
	}
	if len(chunked) != len(direct) {
		t.Fatalf("Chunked filter returned %d records, single pass %d", len(chunked), len(direct))
	}
	for i := range direct {
		if direct[i].Key != chunked[i].Key {
			t.Fatalf("Order differs at %d: %s vs %s", i, direct[i].Key, chunked[i].Key)
		}
	}
	if directTime+chunkedTime > 5*time.Second {
		t.Errorf("Filtering took %v, exceeds 5 second threshold", directTime+chunkedTime)
	}
}

// TestFilterCancellation checks that a cancelled context stops a chunked
// filter.
func TestFilterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := filter.ApplyContext(ctx, testutil.Products(largeCatalog), filter.State{
		records.FieldFlavour: filter.OneOf("WATER"),
	}, 250)
	if err == nil {
		t.Fatal("Expected an error from a cancelled filter")
	}
}

// TestBulkDiscountPerformance times a bulk discount over the filtered rows of
// a large product table.
func TestBulkDiscountPerformance(t *testing.T) {
	page, _ := largePage(t)
	ctx := context.Background()

	start := time.Now()
	res, err := page.Products.Dispatch(ctx, workspace.Action{
		Type: workspace.ApplyFilter, Field: records.FieldFlavour, Constraint: filter.OneOf("JUICE"),
	})
	if err != nil {
		t.Fatalf("Filter dispatch failed: %v", err)
	}
	filterTime := time.Since(start)

	start = time.Now()
	res, err = page.Products.Dispatch(ctx, workspace.Action{Type: workspace.ApplyDiscount, Value: "100"})
	if err != nil {
		t.Fatalf("Discount dispatch failed: %v", err)
	}
	discountTime := time.Since(start)

	start = time.Now()
	res, err = page.Products.Dispatch(ctx, workspace.Action{Type: workspace.SelectAll})
	if err != nil {
		t.Fatalf("Select dispatch failed: %v", err)
	}
	selectTime := time.Since(start)

	t.Logf("Performance metrics:")
	t.Logf("  Filter: %v", filterTime)
	t.Logf("  Bulk discount: %v", discountTime)
	t.Logf("  Select all: %v", selectTime)

	if res.Selected != largeCatalog/5 {
		t.Errorf("Expected %d selected products, got %d", largeCatalog/5, res.Selected)
	}
	for _, r := range page.Products.Selected() {
		if got := r.Float(records.FieldDiscountPrice); got != 89.29 {
			t.Fatalf("Product %s priced %v, expected 89.29", r.Key, got)
		}
	}
	for _, r := range page.Products.Records() {
		if r.Text(records.FieldFlavour) != "JUICE" && r.Float(records.FieldDiscountPrice) != 0 {
			t.Fatalf("Product %s outside the filter was priced", r.Key)
		}
	}
	if total := filterTime + discountTime + selectTime; total > 10*time.Second {
		t.Errorf("Total processing time %v exceeds 10 second threshold", total)
	}
}

// TestOptionSampling checks that filter options on a large table are
// sampled until a search term is given.
func TestOptionSampling(t *testing.T) {
	page, conf := largePage(t)

	start := time.Now()
	sampled := page.Products.Options(records.FieldBrandName, "")
	sampleTime := time.Since(start)

	start = time.Now()
	searched := page.Products.Options(records.FieldBrandName, "spr")
	searchTime := time.Since(start)

	t.Logf("Performance metrics:")
	t.Logf("  Sampled options: %v", sampleTime)
	t.Logf("  Searched options: %v", searchTime)

	if !sampled.Truncated || sampled.Scanned != conf.Engine.OptionSampleLimit {
		t.Errorf("Expected a truncated sample of %d, got truncated=%v scanned=%d",
			conf.Engine.OptionSampleLimit, sampled.Truncated, sampled.Scanned)
	}
	if len(sampled.Options) != len(testutil.Brands) {
		t.Errorf("Expected %d brand options, got %d", len(testutil.Brands), len(sampled.Options))
	}
	if searched.Truncated || searched.Scanned != largeCatalog {
		t.Errorf("Search should scan every record, got truncated=%v scanned=%d", searched.Truncated, searched.Scanned)
	}
	if len(searched.Options) != 1 || searched.Options[0].Label != "Sprite" {
		t.Errorf("Expected only Sprite, got %+v", searched.Options)
	}
}

// TestDuplicateDetectionPerformance times duplicate grouping on a catalog
// where the first hundred products were imported twice.
func TestDuplicateDetectionPerformance(t *testing.T) {
	products := testutil.Products(largeCatalog)
	for i := 0; i < 100; i++ {
		dup := products[i].Clone()
		dup.Key = records.ProductKey(len(products))
		dup.ID = fmt.Sprintf("dup%04d", i)
		products = append(products, dup)
	}

	start := time.Now()
	groups, stats, err := duplicates.Find(products, duplicates.ByItemID)
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	findTime := time.Since(start)
	t.Logf("Performance metrics:")
	t.Logf("  Find duplicates: %v", findTime)

	if len(groups) != 100 || stats.UniqueGroupsCount != 100 {
		t.Errorf("Expected 100 groups, got %d (stats %d)", len(groups), stats.UniqueGroupsCount)
	}
	if stats.TotalDuplicates != 200 || stats.Removable != 100 {
		t.Errorf("Unexpected stats %+v", stats)
	}
	if findTime > 5*time.Second {
		t.Errorf("Duplicate detection took %v, exceeds 5 second threshold", findTime)
	}
}

// TestRepeatedLoadConsistency builds the page repeatedly and checks the
// results do not drift between runs.
func TestRepeatedLoadConsistency(t *testing.T) {
	var first workspace.Result
	for i := 0; i < 5; i++ {
		page, _ := largePage(t)
		res, err := page.Groups.Dispatch(context.Background(), workspace.Action{Type: workspace.SelectAll})
		if err != nil {
			t.Fatalf("Select dispatch failed on iteration %d: %v", i, err)
		}
		if i == 0 {
			first = res
			continue
		}
		if res.Total != first.Total || res.Selected != first.Selected {
			t.Errorf("Iteration %d differs: %+v vs %+v", i, res, first)
		}
	}
	if first.Total != 4 {
		t.Errorf("Expected 4 distributor groups, got %d", first.Total)
	}
}

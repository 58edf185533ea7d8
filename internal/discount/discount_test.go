package discount

import (
	"errors"
	"strings"
	"testing"

	"github.com/iwvelando/scheme-engine/internal/filter"
	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/testutil"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

func TestComputeDiscountPrice(t *testing.T) {
	tests := []struct {
		flavour  string
		amount   float64
		expected float64
	}{
		{"JUICE", 100, 89.29},
		{"juice rgb", 100, 89.29},
		{"SPARKLING RGB", 140, 100.00},
		{"Sparkle Juice", 70, 50.00},
		{"SPARKLING", 10, 7.14},
		{"WATER", 118, 100.00},
		{" soda ", 59, 50.00},
		{"SMART WATER", 118, 100.00},
		{"SODA RGB", 236, 200.00},
		{"SCHWEPPES", 1, 0.85},
		{"UNKNOWN_FLAVOUR", 50, 50.00},
		{"", 50, 50.00},
		{"JUICE", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.flavour, func(t *testing.T) {
			if got := ComputeDiscountPrice(tt.flavour, tt.amount); got != tt.expected {
				t.Errorf("ComputeDiscountPrice(%q, %v) = %v, expected %v", tt.flavour, tt.amount, got, tt.expected)
			}
		})
	}
}

func TestStrategies(t *testing.T) {
	flavour, err := StrategyByName("Flavour")
	if err != nil {
		t.Fatalf("StrategyByName(flavour) error = %v", err)
	}
	flat, err := StrategyByName("flat")
	if err != nil {
		t.Fatalf("StrategyByName(flat) error = %v", err)
	}
	if _, err := StrategyByName("percent"); err == nil {
		t.Errorf("expected an error for an unknown strategy")
	}

	if got := flavour.Price("JUICE", 100); got != 89.29 {
		t.Errorf("flavour.Price() = %v", got)
	}
	if got := flat.Price("JUICE", 100); got != 100 {
		t.Errorf("flat.Price() = %v", got)
	}
	if flavour.Name() != "flavour" || flat.Name() != "flat" {
		t.Errorf("unexpected names %q, %q", flavour.Name(), flat.Name())
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input     string
		amount    float64
		clear     bool
		expectErr bool
	}{
		{"100", 100, false, false},
		{" 12.5 ", 12.5, false, false},
		{"0", 0, false, false},
		{"", 0, true, false},
		{"   ", 0, true, false},
		{"ten", 0, false, true},
		{"10%", 0, false, true},
	}

	for _, tt := range tests {
		amount, clear, err := ParseAmount(tt.input)
		if (err != nil) != tt.expectErr {
			t.Errorf("ParseAmount(%q) error = %v, expectErr %v", tt.input, err, tt.expectErr)
			continue
		}
		if tt.expectErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ParseAmount(%q) error should wrap ErrInvalidAmount", tt.input)
			}
			continue
		}
		if amount != tt.amount || clear != tt.clear {
			t.Errorf("ParseAmount(%q) = (%v, %v), expected (%v, %v)", tt.input, amount, clear, tt.amount, tt.clear)
		}
	}
}

func TestApplyBulkOnlyTouchesFilteredRecords(t *testing.T) {
	all := testutil.Products(1000)
	for i := range all {
		all[i].Set(records.FieldDiscountPrice, 1.0)
	}

	state := filter.State{records.FieldItemCode: filter.OneOf(
		"FG0000", "FG0001", "FG0002", "FG0003", "FG0004",
		"FG0005", "FG0006", "FG0007", "FG0008", "FG0009",
	)}
	stateBefore := state.Clone()
	targets := records.Keys(filter.Apply(all, state))
	if len(targets) != 10 {
		t.Fatalf("expected 10 filtered records, got %d", len(targets))
	}

	res, err := ApplyBulk(all, targets, FlavourDivisor{}, "100")
	if err != nil {
		t.Fatalf("ApplyBulk() error = %v", err)
	}
	if res.Updated != 10 || res.Cleared {
		t.Errorf("unexpected result %+v", res)
	}

	targeted := make(map[string]bool, len(targets))
	for _, k := range targets {
		targeted[k] = true
	}
	for _, r := range all {
		price := r.Float(records.FieldDiscountPrice)
		if targeted[r.Key] {
			expected := ComputeDiscountPrice(r.Text(records.FieldFlavour), 100)
			if price != expected {
				t.Errorf("%s price = %v, expected %v", r.Key, price, expected)
			}
			continue
		}
		if price != 1.0 {
			t.Errorf("untargeted %s price changed to %v", r.Key, price)
		}
	}

	if len(filter.Apply(all, state)) != 10 || len(state) != len(stateBefore) {
		t.Errorf("filtered view changed after the bulk write")
	}
}

func TestApplyBulkClearAndInvalid(t *testing.T) {
	all := testutil.Products(5)
	targets := []string{"prod-1", "prod-3"}

	if _, err := ApplyBulk(all, targets, Flat{}, "250"); err != nil {
		t.Fatalf("ApplyBulk() error = %v", err)
	}
	if all[1].Float(records.FieldDiscountPrice) != 250 {
		t.Errorf("flat strategy should assign the amount, got %v", all[1].Float(records.FieldDiscountPrice))
	}

	_, err := ApplyBulk(all, targets, Flat{}, "abc")
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if all[1].Float(records.FieldDiscountPrice) != 250 {
		t.Errorf("invalid input must not mutate records")
	}

	res, err := ApplyBulk(all, targets, nil, "")
	if err != nil {
		t.Fatalf("ApplyBulk(clear) error = %v", err)
	}
	if !res.Cleared || res.Updated != 2 {
		t.Errorf("unexpected clear result %+v", res)
	}
	if all[1].Float(records.FieldDiscountPrice) != 0 || all[3].Float(records.FieldDiscountPrice) != 0 {
		t.Errorf("clear should reset targeted prices to zero")
	}
}

func TestBulkOverwritesManualEdits(t *testing.T) {
	all := testutil.Products(2)
	if _, err := SetPrice(&all[0], "42.129"); err != nil {
		t.Fatalf("SetPrice() error = %v", err)
	}
	if all[0].Float(records.FieldDiscountPrice) != 42.13 {
		t.Errorf("SetPrice() should round, got %v", all[0].Float(records.FieldDiscountPrice))
	}

	if _, err := ApplyBulk(all, records.Keys(all), Flat{}, "10"); err != nil {
		t.Fatalf("ApplyBulk() error = %v", err)
	}
	if all[0].Float(records.FieldDiscountPrice) != 10 {
		t.Errorf("bulk pass should win over the manual edit")
	}

	if _, err := SetPrice(&all[1], "n/a"); err == nil || !strings.Contains(err.Error(), "discountPrice") {
		t.Errorf("expected a discountPrice validation error, got %v", err)
	}
}

package columns

import (
	"errors"
	"reflect"
	"testing"

	"github.com/iwvelando/scheme-engine/internal/filter"
	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/testutil"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

func strPtr(s string) *string { return &s }

func TestCoerce(t *testing.T) {
	tests := []struct {
		dataType DataType
		raw      string
		expected interface{}
	}{
		{Number, "12.5", 12.5},
		{Number, " 3 ", 3.0},
		{Number, "abc", 0.0},
		{Number, "", 0.0},
		{Boolean, "true", true},
		{Boolean, "TRUE", false},
		{Boolean, "", false},
		{Date, "2024-01-31", "2024-01-31"},
		{Date, "", nil},
		{Text, "hello", "hello"},
		{Text, "", ""},
	}

	for _, tt := range tests {
		if got := Coerce(tt.dataType, tt.raw); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("Coerce(%s, %q) = %#v, expected %#v", tt.dataType, tt.raw, got, tt.expected)
		}
	}
}

func TestAddColumn(t *testing.T) {
	products := testutil.Products(20)
	m := NewManager(records.ProductColumns)

	err := m.Add(Definition{Title: "Slab", Key: "slab_1", DataType: Number, DefaultValue: "5"}, products)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	for _, r := range products {
		if v, _ := r.Get("slab_1"); v != 5.0 {
			t.Fatalf("%s slab_1 = %#v, expected 5", r.Key, v)
		}
	}
	if !m.IsVisible("slab_1") {
		t.Errorf("new column should be visible")
	}
	if got := m.CustomKeys(); !reflect.DeepEqual(got, []string{"slab_1"}) {
		t.Errorf("CustomKeys() = %v", got)
	}
}

func TestAddColumnRejectsBadDefinitions(t *testing.T) {
	tests := []struct {
		name  string
		def   Definition
		field string
	}{
		{"Invalid key", Definition{Title: "X", Key: "bad key!", DataType: Text}, "key"},
		{"Missing title", Definition{Title: "  ", Key: "ok", DataType: Text}, "title"},
		{"Unknown type", Definition{Title: "X", Key: "ok", DataType: "money"}, "dataType"},
		{"Duplicate custom key", Definition{Title: "X", Key: "remark", DataType: Text}, "key"},
		{"Built-in key", Definition{Title: "X", Key: records.FieldFlavour, DataType: Text}, "key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := testutil.Products(3)
			m := NewManager(records.ProductColumns)
			if err := m.Add(Definition{Title: "Remark", Key: "remark", DataType: Text}, products); err != nil {
				t.Fatalf("seed Add() error = %v", err)
			}
			before := products[0].Clone()

			err := m.Add(tt.def, products)
			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validation.Error, got %v", err)
			}
			if _, ok := verr.Messages()[tt.field]; !ok {
				t.Errorf("expected a problem on %q, got %v", tt.field, verr.Messages())
			}
			if !reflect.DeepEqual(products[0].Fields, before.Fields) {
				t.Errorf("records changed after a rejected Add")
			}
			if len(m.Custom()) != 1 {
				t.Errorf("rejected column was registered")
			}
		})
	}
}

func TestEditBackfillsOnlyBlanks(t *testing.T) {
	products := testutil.Products(6)
	m := NewManager(records.ProductColumns)
	if err := m.Add(Definition{Title: "Remark", Key: "remark", DataType: Text}, products); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	products[0].Set("remark", "hand edited")
	products[1].Set("remark", nil)
	products[2].Delete("remark")

	filled, err := m.Edit("remark", Edit{Title: strPtr("Remarks"), DefaultValue: strPtr("n/a")}, products)
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if filled != 6-1 {
		t.Errorf("first Edit() filled %d, expected 5", filled)
	}
	if products[0].Text("remark") != "hand edited" {
		t.Errorf("edited value was overwritten: %q", products[0].Text("remark"))
	}
	for _, r := range products[1:] {
		if r.Text("remark") != "n/a" {
			t.Errorf("%s remark = %q, expected n/a", r.Key, r.Text("remark"))
		}
	}

	filled, err = m.Edit("remark", Edit{DefaultValue: strPtr("other")}, products)
	if err != nil {
		t.Fatalf("second Edit() error = %v", err)
	}
	if filled != 0 {
		t.Errorf("second Edit() filled %d records, expected 0", filled)
	}
	for _, r := range products[1:] {
		if r.Text("remark") != "n/a" {
			t.Errorf("second edit clobbered %s", r.Key)
		}
	}

	def, _ := m.Find("remark")
	if def.Title != "Remarks" || def.DefaultValue != "other" {
		t.Errorf("definition not updated: %+v", def)
	}
}

func TestEditErrors(t *testing.T) {
	m := NewManager(records.ProductColumns)
	if _, err := m.Edit("missing", Edit{}); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}

	if err := m.Add(Definition{Title: "Flag", Key: "flag", DataType: Boolean}, nil); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	bad := DataType("currency")
	if _, err := m.Edit("flag", Edit{DataType: &bad}); err == nil {
		t.Errorf("expected an error for an invalid data type")
	}
	if def, _ := m.Find("flag"); def.DataType != Boolean {
		t.Errorf("rejected edit changed the definition: %+v", def)
	}
}

func TestDeleteRemovesFieldEverywhere(t *testing.T) {
	products := testutil.Products(30)
	m := NewManager(records.ProductColumns)
	if err := m.Add(Definition{Title: "Target", Key: "target", DataType: Number, DefaultValue: "1"}, products); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	filtered := filter.Apply(products, filter.State{records.FieldFlavour: filter.OneOf("JUICE")})
	if len(filtered) == 0 {
		t.Fatalf("fixture should contain juice products")
	}

	if err := m.Delete("target", products, filtered); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, recs := range [][]records.Record{products, filtered} {
		for _, r := range recs {
			if r.Has("target") {
				t.Errorf("%s still has the deleted field", r.Key)
			}
		}
	}
	if m.IsVisible("target") {
		t.Errorf("deleted column still visible")
	}
	if err := m.Delete("target"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("second Delete() should fail, got %v", err)
	}
}

func TestVisibility(t *testing.T) {
	m := NewManager([]string{"a", "b", "c"})

	m.SetVisible([]string{"c", "a", "c", "zzz"})
	if got := m.Visible(); !reflect.DeepEqual(got, []string{"c", "a"}) {
		t.Errorf("Visible() = %v", got)
	}

	m.Toggle("a")
	m.Toggle("b")
	m.Toggle("unknown")
	if got := m.Visible(); !reflect.DeepEqual(got, []string{"c", "b"}) {
		t.Errorf("Visible() after toggles = %v", got)
	}
}

func TestCustomValues(t *testing.T) {
	products := testutil.Products(1)
	m := NewManager(records.ProductColumns)
	_ = m.Add(Definition{Title: "Flag", Key: "flag", DataType: Boolean, DefaultValue: "true"}, products)
	_ = m.Add(Definition{Title: "When", Key: "when", DataType: Date}, products)

	got := m.CustomValues(products[0])
	if !reflect.DeepEqual(got, map[string]interface{}{"flag": true}) {
		t.Errorf("CustomValues() = %v", got)
	}
}

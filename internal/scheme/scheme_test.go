package scheme

import (
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/testutil"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

func validDraft(kind Kind) Draft {
	products := testutil.Products(3)
	products[0].Set(records.FieldDiscountPrice, 89.29)
	products[0].Set("slab", 5.0)
	distributors := testutil.Distributors(8)
	return Draft{
		Kind:          kind,
		Code:          "SCHM00000042",
		StartDate:     "2024-04-01",
		EndDate:       "2024-06-30",
		Distributors:  distributors[:2],
		Groups:        records.DeriveGroups(distributors)[:1],
		Products:      products,
		CustomColumns: []string{"slab"},
	}
}

func TestGenerateCode(t *testing.T) {
	pattern := regexp.MustCompile(`^SCHM\d{8}$`)
	for i := 0; i < 50; i++ {
		if code := GenerateCode(); !pattern.MatchString(code) {
			t.Fatalf("GenerateCode() = %q", code)
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" BASE "); err != nil || k != Base {
		t.Errorf("ParseKind(BASE) = %v, %v", k, err)
	}
	if _, err := ParseKind("bonus"); err == nil {
		t.Errorf("expected an error for an unknown kind")
	}
}

func TestPayloadAdditional(t *testing.T) {
	p, err := validDraft(Additional).Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if p.DistributorType != "" {
		t.Errorf("additional payloads carry no distributor type, got %q", p.DistributorType)
	}
	if len(p.Distributors) != 2 || p.Distributors[0] != "d0000" {
		t.Errorf("distributors = %v", p.Distributors)
	}
	line := p.Products[0]
	if line.ItemCode != "FG0000" || line.DiscountPrice != 89.29 || line.CustomFields["slab"] != 5.0 {
		t.Errorf("unexpected product line %+v", line)
	}
	if len(p.Products[1].CustomFields) != 0 {
		t.Errorf("products without the custom field should send an empty map")
	}

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)
	first := decoded["products"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"Style", "NOB", "Configuration", "customFields"} {
		if _, ok := first[key]; !ok {
			t.Errorf("product line JSON missing %q", key)
		}
	}
	if _, ok := decoded["distributorType"]; ok {
		t.Errorf("distributorType should be omitted for additional schemes")
	}
}

func TestPayloadBase(t *testing.T) {
	d := validDraft(Base)
	p, err := d.Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if p.DistributorType != Group || len(p.Distributors) != 1 || p.Distributors[0] != "G0" {
		t.Errorf("group payload = %s %v", p.DistributorType, p.Distributors)
	}

	d.Groups = nil
	p, err = d.Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if p.DistributorType != Individual || len(p.Distributors) != 2 {
		t.Errorf("individual payload = %s %v", p.DistributorType, p.Distributors)
	}
}

func TestPayloadValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Draft)
		field  string
	}{
		{"Missing code", func(d *Draft) { d.Code = " " }, "schemeCode"},
		{"Missing start", func(d *Draft) { d.StartDate = "" }, "startDate"},
		{"End before start", func(d *Draft) { d.EndDate = "2024-03-01" }, "endDate"},
		{"Bad date", func(d *Draft) { d.StartDate = "01/04/2024" }, "startDate"},
		{"No distributors", func(d *Draft) { d.Distributors = nil }, "distributors"},
		{"No products", func(d *Draft) { d.Products = nil }, "products"},
		{"Unknown kind", func(d *Draft) { d.Kind = "bonus" }, "kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft(Additional)
			tt.mutate(&d)
			err := d.Validate()
			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validation.Error, got %v", err)
			}
			if _, ok := verr.Messages()[tt.field]; !ok {
				t.Errorf("expected a problem on %q, got %v", tt.field, verr.Messages())
			}
		})
	}
}

func TestExportFileName(t *testing.T) {
	if got := ExportFileName("Summer", "excel"); got != "Scheme_Summer.xlsx" {
		t.Errorf("ExportFileName(excel) = %q", got)
	}
	if got := ExportFileName("Summer", "pdf"); got != "Scheme_Summer.pdf" {
		t.Errorf("ExportFileName(pdf) = %q", got)
	}
}

// Package scheme composes scheme drafts from the selected table rows and
// turns them into the payload the backend accepts.
package scheme

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/iwvelando/scheme-engine/pkg/datetime"
	"github.com/iwvelando/scheme-engine/pkg/records"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// Kind distinguishes individually targeted schemes from group-based ones.
type Kind string

const (
	// Additional schemes target individual distributors.
	Additional Kind = "additional"
	// Base schemes target distributor groups, or individual distributors
	// when no group is chosen.
	Base Kind = "base"
)

// ParseKind validates a scheme kind name.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case Additional, Base:
		return k, nil
	default:
		return "", fmt.Errorf("unknown scheme kind %q, expected %s or %s", name, Additional, Base)
	}
}

// DistributorType tells the backend how to read the distributor list of a
// base scheme.
type DistributorType string

const (
	Group      DistributorType = "group"
	Individual DistributorType = "individual"
)

// GenerateCode returns a fresh scheme code such as SCHM00042137.
func GenerateCode() string {
	limit := 1
	for i := 0; i < constants.SchemeCodeDigits; i++ {
		limit *= 10
	}
	return fmt.Sprintf("%s%0*d", constants.SchemeCodePrefix, constants.SchemeCodeDigits, rand.IntN(limit))
}

// Draft is a scheme being authored.
type Draft struct {
	Kind          Kind
	Code          string
	StartDate     string
	EndDate       string
	Distributors  []records.Record
	Groups        []records.Record
	Products      []records.Record
	CustomColumns []string
}

// ProductLine is one priced product of the payload. Raw backend names are
// kept for the style, NOB and MRP fields.
type ProductLine struct {
	ItemCode      string                 `json:"itemCode"`
	ItemName      string                 `json:"itemName"`
	BrandName     string                 `json:"brandName"`
	Flavour       string                 `json:"flavour"`
	PackType      string                 `json:"packType"`
	PackGroup     string                 `json:"packGroup"`
	Style         string                 `json:"Style"`
	NOB           interface{}            `json:"NOB"`
	Configuration interface{}            `json:"Configuration"`
	DiscountPrice float64                `json:"discountPrice"`
	CustomFields  map[string]interface{} `json:"customFields"`
}

// Payload is the body of a scheme create request.
type Payload struct {
	SchemeCode      string          `json:"schemeCode" validate:"required"`
	StartDate       string          `json:"startDate" validate:"required"`
	EndDate         string          `json:"endDate" validate:"required"`
	DistributorType DistributorType `json:"distributorType,omitempty"`
	Distributors    []string        `json:"distributors" validate:"min=1"`
	Products        []ProductLine   `json:"products" validate:"min=1"`
}

// Receipt is what the backend returns for a created scheme.
type Receipt struct {
	ID         string `json:"_id"`
	SchemeCode string `json:"schemeCode"`
	Status     string `json:"status,omitempty"`
}

// Validate checks the draft before anything is sent.
func (d Draft) Validate() error {
	_, err := d.Payload()
	return err
}

// Payload builds and validates the create request. Base drafts with chosen
// groups send group names; every other draft sends distributor ids.
func (d Draft) Payload() (Payload, error) {
	p := Payload{
		SchemeCode: strings.TrimSpace(d.Code),
		StartDate:  strings.TrimSpace(d.StartDate),
		EndDate:    strings.TrimSpace(d.EndDate),
	}

	switch {
	case d.Kind == Base && len(d.Groups) > 0:
		p.DistributorType = Group
		for _, g := range d.Groups {
			p.Distributors = append(p.Distributors, g.Text(records.FieldGroup))
		}
	default:
		if d.Kind == Base {
			p.DistributorType = Individual
		}
		for _, r := range d.Distributors {
			p.Distributors = append(p.Distributors, distributorID(r))
		}
	}

	for _, r := range d.Products {
		p.Products = append(p.Products, productLine(r, d.CustomColumns))
	}

	problems := &validation.Error{}
	problems.Merge(validation.Struct(p))
	if d.Kind != Additional && d.Kind != Base {
		problems.Add("kind", fmt.Sprintf("unknown scheme kind %q", d.Kind))
	}
	checkDates(problems, p.StartDate, p.EndDate)
	if err := problems.OrNil(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

func checkDates(problems *validation.Error, start, end string) {
	if start == "" || end == "" {
		return
	}
	from, err := datetime.ParseDate(start)
	if err != nil {
		problems.Add("startDate", err.Error())
	}
	to, err2 := datetime.ParseDate(end)
	if err2 != nil {
		problems.Add("endDate", err2.Error())
	}
	if err == nil && err2 == nil && to.Before(from) {
		problems.Add("endDate", "must not be before startDate")
	}
}

func distributorID(r records.Record) string {
	if r.ID != "" {
		return r.ID
	}
	return r.Text(records.FieldCode)
}

func productLine(r records.Record, custom []string) ProductLine {
	nob, _ := r.Get(records.FieldNOB)
	mrp, _ := r.Get(records.FieldMRP)
	fields := make(map[string]interface{}, len(custom))
	for _, key := range custom {
		if v, ok := r.Get(key); ok {
			fields[key] = v
		}
	}
	return ProductLine{
		ItemCode:      r.Text(records.FieldItemCode),
		ItemName:      r.Text(records.FieldItemName),
		BrandName:     r.Text(records.FieldBrandName),
		Flavour:       r.Text(records.FieldFlavour),
		PackType:      r.Text(records.FieldPackType),
		PackGroup:     r.Text(records.FieldPackGroup),
		Style:         r.Text(records.FieldStyle),
		NOB:           nob,
		Configuration: mrp,
		DiscountPrice: r.Float(records.FieldDiscountPrice),
		CustomFields:  fields,
	}
}

// ExportFileName is the download name of an exported scheme.
func ExportFileName(name, format string) string {
	ext := "pdf"
	if format == constants.ExportFormatExcel {
		ext = "xlsx"
	}
	return fmt.Sprintf("Scheme_%s.%s", name, ext)
}

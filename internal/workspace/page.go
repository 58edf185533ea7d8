package workspace

import (
	"fmt"
	"sort"

	"github.com/iwvelando/scheme-engine/internal/discount"
	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/pkg/records"
)

// Table names used by a page.
const (
	ProductsTable     = "products"
	DistributorsTable = "distributors"
	GroupsTable       = "groups"
)

// Page is the scheme creation screen: a product table plus either a
// distributor table (additional schemes) or distributor and group tables
// (base schemes).
type Page struct {
	Kind         scheme.Kind
	Products     *Table
	Distributors *Table
	Groups       *Table
}

// NewPage builds the tables for kind. The product table prices with
// strategy; a nil strategy keeps the Options default.
func NewPage(kind scheme.Kind, products, distributors []records.Record, strategy discount.Strategy, opts Options) *Page {
	productOpts := opts
	if strategy != nil {
		productOpts.Strategy = strategy
	}
	p := &Page{
		Kind:         kind,
		Products:     NewTable(ProductsTable, products, records.ProductColumns, productOpts),
		Distributors: NewTable(DistributorsTable, distributors, records.DistributorColumns, opts),
	}
	if kind == scheme.Base {
		p.Groups = NewTable(GroupsTable, records.DeriveGroups(distributors), records.GroupColumns, opts)
	}
	return p
}

// Table returns the table called name.
func (p *Page) Table(name string) (*Table, error) {
	switch name {
	case ProductsTable:
		return p.Products, nil
	case DistributorsTable:
		return p.Distributors, nil
	case GroupsTable:
		if p.Groups != nil {
			return p.Groups, nil
		}
	}
	return nil, fmt.Errorf("page has no %q table", name)
}

// TableNames lists the tables of the page.
func (p *Page) TableNames() []string {
	names := []string{ProductsTable, DistributorsTable}
	if p.Groups != nil {
		names = append(names, GroupsTable)
	}
	sort.Strings(names)
	return names
}

// Draft composes a scheme draft from the current selections.
func (p *Page) Draft(code, startDate, endDate string) scheme.Draft {
	d := scheme.Draft{
		Kind:          p.Kind,
		Code:          code,
		StartDate:     startDate,
		EndDate:       endDate,
		Distributors:  p.Distributors.Selected(),
		Products:      p.Products.Selected(),
		CustomColumns: p.Products.CustomColumnKeys(),
	}
	if p.Groups != nil {
		d.Groups = p.Groups.Selected()
	}
	return d
}

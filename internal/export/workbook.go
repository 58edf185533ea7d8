// Package export renders a scheme payload as an Excel workbook for local
// preview before it is submitted.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/iwvelando/scheme-engine/internal/columns"
	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/pkg/datetime"
	"github.com/iwvelando/scheme-engine/pkg/mathutil"
	"github.com/iwvelando/scheme-engine/pkg/records"
)

// Sheet names.
const (
	SummarySheet  = "Scheme"
	ProductsSheet = "Products"
)

var productHeadings = []string{
	"Item Code", "Item Name", "Brand", "Flavour", "Pack Group", "Style",
	"Pack Type", "NOB", "MRP", "Discount Price", "Discount %",
}

// Workbook builds the workbook of p. Custom columns are appended after the
// fixed product columns in definition order.
func Workbook(p scheme.Payload, custom []columns.Definition) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := fill(f, p, custom); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func fill(f *excelize.File, p scheme.Payload, custom []columns.Definition) error {
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Scheme Code", p.SchemeCode},
		{"Start Date", datetime.FormatDisplay(p.StartDate)},
		{"End Date", datetime.FormatDisplay(p.EndDate)},
		{"Distributor Type", distributorType(p)},
		{"Distributors", strings.Join(p.Distributors, ", ")},
		{"Products", len(p.Products)},
	}
	for i, row := range summary {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(ProductsSheet); err != nil {
		return fmt.Errorf("failed to add products sheet: %w", err)
	}
	headings := make([]interface{}, 0, len(productHeadings)+len(custom))
	for _, h := range productHeadings {
		headings = append(headings, h)
	}
	for _, c := range custom {
		headings = append(headings, c.Title)
	}
	if err := setRow(f, ProductsSheet, 1, headings); err != nil {
		return err
	}

	for i, line := range p.Products {
		mrp, _ := records.ToFloat(line.Configuration)
		row := []interface{}{
			line.ItemCode, line.ItemName, line.BrandName, line.Flavour, line.PackGroup,
			line.Style, line.PackType, line.NOB, line.Configuration, line.DiscountPrice,
			mathutil.DiscountPercentage(mrp, line.DiscountPrice),
		}
		for _, c := range custom {
			row = append(row, line.CustomFields[c.Key])
		}
		if err := setRow(f, ProductsSheet, i+2, row); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create heading style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headings), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(ProductsSheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style %s headings: %w", ProductsSheet, err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(summary)), style); err != nil {
		return fmt.Errorf("failed to style %s labels: %w", SummarySheet, err)
	}
	return nil
}

// Write renders the workbook of p to w.
func Write(w io.Writer, p scheme.Payload, custom []columns.Definition) error {
	f, err := Workbook(p, custom)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveAs renders the workbook of p to path.
func SaveAs(path string, p scheme.Payload, custom []columns.Definition) error {
	f, err := Workbook(p, custom)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func distributorType(p scheme.Payload) string {
	if p.DistributorType == "" {
		return string(scheme.Individual)
	}
	return string(p.DistributorType)
}

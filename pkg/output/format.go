// Package output provides utilities for formatting and displaying table
// views and scheme drafts.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/internal/workspace"
	"github.com/iwvelando/scheme-engine/pkg/datetime"
	"github.com/iwvelando/scheme-engine/pkg/format"
	"github.com/iwvelando/scheme-engine/pkg/mathutil"
	"github.com/iwvelando/scheme-engine/pkg/records"
)

var priceFields = map[string]bool{
	records.FieldMRP:           true,
	records.FieldDiscountPrice: true,
}

// PrettyFormat writes a human-readable rather than machine-readable table of
// the visible rows of v.
func PrettyFormat(w io.Writer, v workspace.View) error {
	p := message.NewPrinter(language.English)

	if _, err := fmt.Fprintf(w, "--- %s: %d of %d rows, %d selected ---\n",
		v.Name, v.VisibleCount, v.Total, len(v.Selected)); err != nil {
		return err
	}
	if len(v.Filters) > 0 {
		parts := make([]string, 0, len(v.Filters))
		for _, field := range v.Filters.Fields() {
			parts = append(parts, field+"="+describeConstraint(v.Filters[field].Values, v.Filters[field].Text))
		}
		if _, err := fmt.Fprintf(w, "Filters: %s\n", strings.Join(parts, "; ")); err != nil {
			return err
		}
	}

	selected := make(map[string]bool, len(v.Selected))
	for _, k := range v.Selected {
		selected[k] = true
	}

	rows := make([][]string, 0, len(v.Rows)+2)
	header := append([]string{" "}, v.Columns...)
	rows = append(rows, header)
	separator := make([]string, len(header))
	rows = append(rows, separator)
	for _, r := range v.Rows {
		mark := " "
		if selected[r.Key] {
			mark = "*"
		}
		row := []string{mark}
		for _, col := range v.Columns {
			row = append(row, prettyCell(p, r, col))
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if n := len([]rune(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	for i := range separator {
		separator[i] = strings.Repeat("_", widths[i])
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell + strings.Repeat(" ", widths[i]-len([]rune(cell)))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " | "), " ")); err != nil {
			return err
		}
	}
	return nil
}

// CsvFormat writes the visible rows of v in comma-separated value format
// with a leading selected column.
func CsvFormat(w io.Writer, v workspace.View) error {
	selected := make(map[string]bool, len(v.Selected))
	for _, k := range v.Selected {
		selected[k] = true
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"selected"}, v.Columns...)); err != nil {
		return err
	}
	for _, r := range v.Rows {
		row := []string{fmt.Sprintf("%t", selected[r.Key])}
		for _, col := range v.Columns {
			value, _ := r.Get(col)
			if f, ok := value.(float64); ok && priceFields[col] {
				row = append(row, fmt.Sprintf("%.2f", f))
				continue
			}
			row = append(row, records.ValueString(value))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PrettyPayload writes a summary of a scheme payload with one line per
// product.
func PrettyPayload(w io.Writer, payload scheme.Payload) error {
	p := message.NewPrinter(language.English)

	distributorType := string(payload.DistributorType)
	if distributorType == "" {
		distributorType = string(scheme.Individual)
	}
	header := []string{
		fmt.Sprintf("--- Scheme %s ---", payload.SchemeCode),
		fmt.Sprintf("Period: %s to %s", datetime.FormatDisplay(payload.StartDate), datetime.FormatDisplay(payload.EndDate)),
		fmt.Sprintf("Distributors (%s): %s", distributorType, strings.Join(payload.Distributors, ", ")),
		"Item Code | Item Name | Flavour | MRP | Discount Price | Discount %",
		"_________ | _________ | _______ | ___ | ______________ | __________",
	}
	for _, line := range header {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	var total float64
	for _, line := range payload.Products {
		mrp, _ := records.ToFloat(line.Configuration)
		total += line.DiscountPrice
		if _, err := p.Fprintf(w, "%s | %s | %s | %s | %s | %.2f%%\n",
			line.ItemCode, line.ItemName, line.Flavour,
			format.Currency(mrp), format.Currency(line.DiscountPrice),
			mathutil.DiscountPercentage(mrp, line.DiscountPrice)); err != nil {
			return err
		}
	}
	_, err := p.Fprintf(w, "%d products, total discount price %s\n", len(payload.Products), format.Currency(total))
	return err
}

func prettyCell(p *message.Printer, r records.Record, col string) string {
	value, ok := r.Get(col)
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case float64:
		if priceFields[col] {
			return format.Currency(v)
		}
		return p.Sprintf("%v", v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	}
	return records.ValueString(value)
}

func describeConstraint(values []interface{}, text string) string {
	if len(values) == 0 {
		return fmt.Sprintf("%q", text)
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = records.ValueString(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

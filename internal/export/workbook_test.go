package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/iwvelando/scheme-engine/internal/columns"
	"github.com/iwvelando/scheme-engine/internal/scheme"
)

func samplePayload() scheme.Payload {
	return scheme.Payload{
		SchemeCode:      "SCHM00000007",
		StartDate:       "2024-04-01",
		EndDate:         "2024-04-30",
		DistributorType: scheme.Group,
		Distributors:    []string{"G1", "G2"},
		Products: []scheme.ProductLine{
			{
				ItemCode:      "FG1",
				ItemName:      "Maaza 600",
				Flavour:       "JUICE",
				NOB:           24.0,
				Configuration: 40.0,
				DiscountPrice: 30,
				CustomFields:  map[string]interface{}{"slab": 5.0},
			},
			{ItemCode: "FG2", ItemName: "Kinley", Flavour: "WATER"},
		},
	}
}

func TestWorkbook(t *testing.T) {
	custom := []columns.Definition{{Title: "Slab", Key: "slab", DataType: columns.Number}}

	var buf bytes.Buffer
	if err := Write(&buf, samplePayload(), custom); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	tests := []struct {
		sheet    string
		cell     string
		expected string
	}{
		{SummarySheet, "B1", "SCHM00000007"},
		{SummarySheet, "B2", "01-04-2024"},
		{SummarySheet, "B3", "30-04-2024"},
		{SummarySheet, "B4", "group"},
		{SummarySheet, "B5", "G1, G2"},
		{SummarySheet, "B6", "2"},
		{ProductsSheet, "A1", "Item Code"},
		{ProductsSheet, "L1", "Slab"},
		{ProductsSheet, "A2", "FG1"},
		{ProductsSheet, "J2", "30"},
		{ProductsSheet, "K2", "25"},
		{ProductsSheet, "L2", "5"},
		{ProductsSheet, "A3", "FG2"},
		{ProductsSheet, "K3", "0"},
		{ProductsSheet, "L3", ""},
	}

	for _, tt := range tests {
		got, err := f.GetCellValue(tt.sheet, tt.cell)
		if err != nil {
			t.Errorf("GetCellValue(%s, %s) error = %v", tt.sheet, tt.cell, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%s!%s = %q, expected %q", tt.sheet, tt.cell, got, tt.expected)
		}
	}
}

func TestSaveAs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.xlsx")
	if err := SaveAs(path, samplePayload(), nil); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != SummarySheet || sheets[1] != ProductsSheet {
		t.Errorf("GetSheetList() = %v", sheets)
	}
}

func TestWorkbookHeadingStyle(t *testing.T) {
	custom := []columns.Definition{{Title: "Slab", Key: "slab", DataType: columns.Number}}
	f, err := Workbook(samplePayload(), custom)
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}
	defer f.Close()

	for _, c := range []struct{ sheet, cell string }{
		{ProductsSheet, "A1"},
		{ProductsSheet, "L1"},
		{SummarySheet, "A6"},
	} {
		style, err := f.GetCellStyle(c.sheet, c.cell)
		if err != nil || style == 0 {
			t.Errorf("%s!%s style = %d, %v, expected the heading style", c.sheet, c.cell, style, err)
		}
	}
	if style, _ := f.GetCellStyle(ProductsSheet, "A2"); style != 0 {
		t.Errorf("data rows should not be styled, got %d", style)
	}
}

func TestWorkbookTooManyColumns(t *testing.T) {
	custom := make([]columns.Definition, excelize.MaxColumns)
	for i := range custom {
		custom[i] = columns.Definition{Title: "c", Key: "c", DataType: columns.Text}
	}
	if _, err := Workbook(samplePayload(), custom); err == nil {
		t.Fatal("expected an error for headings past the last sheet column")
	}
}

package validation

import (
	"fmt"

	"github.com/iwvelando/scheme-engine/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateExportFormat checks the format requested from the export service.
func ValidateExportFormat(format string) error {
	if format != constants.ExportFormatExcel && format != constants.ExportFormatPDF {
		return NewError("format", fmt.Sprintf("must be %s or %s, got %q",
			constants.ExportFormatExcel, constants.ExportFormatPDF, format))
	}
	return nil
}

// ValidateColumnKey checks a custom column key against ColumnKeyPattern.
func ValidateColumnKey(key string) error {
	if key == "" {
		return NewError("key", "is required")
	}
	if !ColumnKeyPattern.MatchString(key) {
		return NewError("key", "can only contain letters, numbers and underscore")
	}
	return nil
}

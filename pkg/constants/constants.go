// Package constants provides shared constants for the scheme-engine application.
package constants

// DateLayout is the scheme date format exchanged with the backend.
const DateLayout = "2006-01-02"

// DisplayDateLayout is the DD-MM-YYYY format used in printed output.
const DisplayDateLayout = "02-01-2006"

// Pricing constants
const (
	// DecimalPlaces is the number of decimals kept on discount prices
	DecimalPlaces = 2

	// DefaultDiscountDivisor applies to any flavour without a dedicated divisor
	DefaultDiscountDivisor = 100.0

	// JuiceDivisor applies to juice flavours
	JuiceDivisor = 112.0

	// SparklingDivisor applies to sparkling flavours
	SparklingDivisor = 140.0

	// WaterDivisor applies to water and soda flavours
	WaterDivisor = 118.0

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Discount strategy names accepted in configuration
const (
	// StrategyFlavour computes prices through the flavour divisor table
	StrategyFlavour = "flavour"

	// StrategyFlat assigns the entered amount unchanged
	StrategyFlat = "flat"
)

// Engine tuning defaults
const (
	// DefaultOptionSampleLimit caps the distinct-value scan for filter options
	DefaultOptionSampleLimit = 1000

	// DefaultFilterChunkSize is the number of records filtered between yields
	DefaultFilterChunkSize = 500

	// DefaultDeferThreshold is the collection size above which filtering is chunked
	DefaultDeferThreshold = 2000
)

// Scheme code generation
const (
	// SchemeCodePrefix prefixes every generated scheme code
	SchemeCodePrefix = "SCHM"

	// SchemeCodeDigits is the number of random digits after the prefix
	SchemeCodeDigits = 8
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Export formats understood by the backend export service
const (
	// ExportFormatExcel requests an xlsx workbook
	ExportFormatExcel = "excel"

	// ExportFormatPDF requests a pdf document
	ExportFormatPDF = "pdf"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. SCHEME_API_TOKEN
	EnvPrefix = "SCHEME"
)

// API client defaults
const (
	// DefaultAPIBaseURL is the backend base URL used when none is configured
	DefaultAPIBaseURL = "http://localhost:8000/api"

	// DefaultAPITimeout is the HTTP client timeout
	DefaultAPITimeout = "30s"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the workspace API
	DefaultServerAddress = ":8080"

	// DefaultMaxRequestSizeBytes is the default maximum request body size (1 MB)
	DefaultMaxRequestSizeBytes int64 = 1024 * 1024

	// DefaultPreviewRowLimit caps the rows returned by a table view request
	DefaultPreviewRowLimit = 200
)

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iwvelando/scheme-engine/internal/config"
	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var config zap.Config
	switch format {
	case "console":
		config = zap.NewDevelopmentConfig()
	case "json":
		config = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	// Printed tables go to stdout, so logs default to stderr
	config.OutputPaths = []string{"stderr"}
	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		// Test if we can create/write to the file
		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		config.OutputPaths = []string{loggingConfig.OutputFile}
		config.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return config.Build()
}

func main() {
	var opts options
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.BoolVar(&opts.serve, "serve", false, "serve the workspace JSON API instead of running a batch preview")
	flag.StringVar(&opts.serverConfig, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flag.StringVar(&opts.kind, "kind", "additional", "scheme kind: additional or base")
	flag.StringVar(&opts.role, "role", "", "role for an opaque (non-JWT) api token: viewer, verifier, creator, admin")
	flag.StringVar(&opts.preset, "preset", "", "product filter preset to apply")
	flag.StringVar(&opts.discount, "discount", "", "discount amount applied to every filtered product")
	flag.StringVar(&opts.code, "code", "", "scheme code (generated when empty)")
	flag.StringVar(&opts.startDate, "start", "", "scheme start date, YYYY-MM-DD")
	flag.StringVar(&opts.endDate, "end", "", "scheme end date, YYYY-MM-DD")
	flag.StringVar(&opts.xlsxPath, "xlsx", "", "write a local Excel preview of the draft to this path")
	flag.BoolVar(&opts.submit, "submit", false, "submit the draft to the backend")
	flag.StringVar(&opts.exportID, "export-id", "", "download the export of this scheme id and exit")
	flag.StringVar(&opts.exportFormat, "export-format", constants.ExportFormatExcel, "export format: excel or pdf")
	flag.Parse()

	// A missing default config file means built-in defaults plus environment
	configPath := *configLocation
	if _, statErr := os.Stat(configPath); configPath == constants.DefaultConfigFile && errors.Is(statErr, fs.ErrNotExist) {
		configPath = ""
	}
	conf, err := config.LoadConfiguration(configPath)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	opts.outputFormat = conf.Output.Format
	if *outputFormatFlag != "" {
		opts.outputFormat = *outputFormatFlag
	}
	if opts.outputFormat == "" {
		opts.outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(opts.outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(conf, opts, logger)
	if err != nil {
		logger.Fatal("failed to initialize",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if opts.exportID != "" {
		err = app.downloadExport(ctx)
	} else if opts.serve {
		err = app.serve(ctx)
	} else {
		err = app.batch(ctx, os.Stdout)
	}
	if err != nil {
		logger.Error("scheme-engine failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
		_ = logger.Sync()
		os.Exit(1)
	}
}

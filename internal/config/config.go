// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/iwvelando/scheme-engine/internal/discount"
	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/pkg/constants"
	"github.com/iwvelando/scheme-engine/pkg/validation"
)

// Configuration holds all configuration for scheme-engine.
type Configuration struct {
	API      APIConfig      `yaml:"api,omitempty"`
	Engine   EngineConfig   `yaml:"engine,omitempty"`
	Discount DiscountConfig `yaml:"discount,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
}

// APIConfig locates the scheme backend.
type APIConfig struct {
	BaseURL string `yaml:"baseURL,omitempty"`
	Token   string `yaml:"token,omitempty"`   // bearer token, usually from SCHEME_API_TOKEN
	Timeout string `yaml:"timeout,omitempty"` // Go duration, e.g. 30s
}

// EngineConfig tunes filtering on large collections.
type EngineConfig struct {
	OptionSampleLimit int `yaml:"optionSampleLimit,omitempty"`
	FilterChunkSize   int `yaml:"filterChunkSize,omitempty"`
	DeferThreshold    int `yaml:"deferThreshold,omitempty"`
}

// DiscountConfig picks the pricing strategy per scheme kind.
type DiscountConfig struct {
	Base       string `yaml:"base,omitempty"`       // flavour, flat
	Additional string `yaml:"additional,omitempty"` // flavour, flat
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.baseURL", constants.DefaultAPIBaseURL)
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", constants.DefaultAPITimeout)
	v.SetDefault("engine.optionSampleLimit", constants.DefaultOptionSampleLimit)
	v.SetDefault("engine.filterChunkSize", constants.DefaultFilterChunkSize)
	v.SetDefault("engine.deferThreshold", constants.DefaultDeferThreshold)
	v.SetDefault("discount.base", constants.StrategyFlavour)
	v.SetDefault("discount.additional", constants.StrategyFlat)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. An empty path loads defaults only. A .env file in the
// working directory is read first when present, and SCHEME_* environment
// variables (SCHEME_API_TOKEN, SCHEME_ENGINE_DEFERTHRESHOLD, ...) override
// file values.
func LoadConfiguration(configPath string) (*Configuration, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file, %s", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// Timeout returns the parsed API timeout.
func (c *Configuration) Timeout() (time.Duration, error) {
	raw := c.API.Timeout
	if raw == "" {
		raw = constants.DefaultAPITimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid api timeout %q: %w", raw, err)
	}
	return d, nil
}

// Strategy resolves the discount strategy configured for kind.
func (c *Configuration) Strategy(kind scheme.Kind) (discount.Strategy, error) {
	name := c.Discount.Additional
	if kind == scheme.Base {
		name = c.Discount.Base
	}
	if name == "" {
		name = constants.StrategyFlavour
		if kind == scheme.Additional {
			name = constants.StrategyFlat
		}
	}
	return discount.StrategyByName(name)
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if strings.TrimSpace(c.API.BaseURL) == "" {
		warnings = append(warnings, "api.baseURL is empty; remote calls will fail")
	} else if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		warnings = append(warnings, fmt.Sprintf("api.baseURL %q has no http(s) scheme", c.API.BaseURL))
	}
	if _, err := c.Timeout(); err != nil {
		warnings = append(warnings, err.Error())
	}

	for _, kind := range []scheme.Kind{scheme.Base, scheme.Additional} {
		if _, err := c.Strategy(kind); err != nil {
			warnings = append(warnings, fmt.Sprintf("discount.%s: %v", kind, err))
		}
	}

	if c.Engine.OptionSampleLimit < 0 || c.Engine.FilterChunkSize < 0 || c.Engine.DeferThreshold < 0 {
		warnings = append(warnings, "engine limits must not be negative; defaults will be used")
	}
	if c.Engine.FilterChunkSize > 0 && c.Engine.DeferThreshold > 0 && c.Engine.FilterChunkSize > c.Engine.DeferThreshold {
		warnings = append(warnings, fmt.Sprintf("engine.filterChunkSize %d exceeds engine.deferThreshold %d; chunking has no effect",
			c.Engine.FilterChunkSize, c.Engine.DeferThreshold))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown logging.level %q; info will be used", c.Logging.Level))
	}
	if c.Output.Format != "" {
		if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	return warnings
}

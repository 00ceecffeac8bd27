// Package config loads the CLI configuration: defaults, layered under an
// optional YAML file, layered under TESSKIT_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wudi/tesskit/engine"
	"github.com/wudi/tesskit/tessdata"
)

// Config holds everything the CLI needs to run.
type Config struct {
	OCR      OCRConfig      `yaml:"ocr"`
	Tessdata TessdataConfig `yaml:"tessdata"`
	Library  LibraryConfig  `yaml:"library"`
	Log      LogConfig      `yaml:"log"`
}

// OCRConfig holds recognition settings.
type OCRConfig struct {
	// Languages are joined with "+" when the engine is initialized.
	Languages []string `yaml:"languages"`
	// Formats names the output formats to render, see engine.Formats.
	Formats []string `yaml:"formats"`
	// DPI is assumed for input images that carry no resolution.
	DPI int `yaml:"dpi"`
	// PSM is the page segmentation mode, 0 through 13.
	PSM int `yaml:"psm"`
}

// TessdataConfig holds language data cache settings.
type TessdataConfig struct {
	// Dir is the cache directory; empty means the per-user default.
	Dir    string `yaml:"dir"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
}

// LibraryConfig holds native library override paths.
type LibraryConfig struct {
	Tesseract string `yaml:"tesseract"`
	Leptonica string `yaml:"leptonica"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		OCR: OCRConfig{
			Languages: []string{"eng"},
			Formats:   []string{"text"},
			DPI:       300,
			PSM:       3,
		},
		Tessdata: TessdataConfig{
			Repo:   tessdata.DefaultRepo,
			Branch: tessdata.DefaultBranch,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TESSKIT_LANGUAGES"); v != "" {
		cfg.OCR.Languages = splitList(v)
	}
	if v := os.Getenv("TESSKIT_FORMATS"); v != "" {
		cfg.OCR.Formats = splitList(v)
	}
	if v := os.Getenv("TESSKIT_DPI"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OCR.DPI = n
		}
	}
	if v := os.Getenv("TESSKIT_PSM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OCR.PSM = n
		}
	}
	if v := os.Getenv("TESSKIT_TESSDATA_DIR"); v != "" {
		cfg.Tessdata.Dir = v
	}
	if v := os.Getenv("TESSKIT_TESSDATA_REPO"); v != "" {
		cfg.Tessdata.Repo = v
	}
	if v := os.Getenv("TESSKIT_TESSDATA_BRANCH"); v != "" {
		cfg.Tessdata.Branch = v
	}
	if v := os.Getenv("TESSKIT_TESSERACT_LIB"); v != "" {
		cfg.Library.Tesseract = v
	}
	if v := os.Getenv("TESSKIT_LEPTONICA_LIB"); v != "" {
		cfg.Library.Leptonica = v
	}
	if v := os.Getenv("TESSKIT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TESSKIT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// splitList accepts both comma and plus separators, so language lists can
// be written the way tesseract itself takes them ("eng+deu").
func splitList(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == '+'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.OCR.Languages) == 0 {
		return fmt.Errorf("at least one language is required")
	}
	for _, name := range c.OCR.Formats {
		if _, err := engine.ParseFormat(name); err != nil {
			return err
		}
	}
	if c.OCR.DPI < 0 {
		return fmt.Errorf("invalid dpi: %d", c.OCR.DPI)
	}
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		return fmt.Errorf("invalid page segmentation mode: %d", c.OCR.PSM)
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	return nil
}

// OutputFormats resolves the configured format names.
func (c *Config) OutputFormats() ([]engine.Format, error) {
	formats := make([]engine.Format, 0, len(c.OCR.Formats))
	for _, name := range c.OCR.Formats {
		f, err := engine.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// DataDir resolves the language data directory, falling back to the
// per-user cache location when unset.
func (c *Config) DataDir() (string, error) {
	if c.Tessdata.Dir != "" {
		return c.Tessdata.Dir, nil
	}
	return tessdata.DefaultDir()
}

// Language returns the configured languages in tesseract's "+" form.
func (c *Config) Language() string {
	return strings.Join(c.OCR.Languages, "+")
}

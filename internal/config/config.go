package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcncl/keycase/internal/fileinfo"
	"github.com/mcncl/keycase/internal/formatter"
	"github.com/mcncl/keycase/internal/normalizer"
	"github.com/mcncl/keycase/internal/parser"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for keycase
type Config struct {
	Normalize NormalizeConfig `yaml:"normalize"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Files     FilesConfig     `yaml:"files"`
	Watch     WatchConfig     `yaml:"watch"`
	Dev       DevConfig       `yaml:"dev"`
}

// NormalizeConfig controls key rewriting
type NormalizeConfig struct {
	Case    string   `yaml:"case"`
	Exclude []string `yaml:"exclude"`
}

// InputConfig controls how documents are read
type InputConfig struct {
	Format string `yaml:"format"` // auto, json or yaml
}

// OutputConfig controls how documents are written
type OutputConfig struct {
	Format string `yaml:"format"` // json or yaml; empty means same as input
	Indent int    `yaml:"indent"`
}

// FilesConfig controls the file helpers
type FilesConfig struct {
	SizeUnits         string   `yaml:"size_units"`
	MaxSize           string   `yaml:"max_size"` // e.g. "10 MiB"; empty means unlimited
	AllowedExtensions []string `yaml:"allowed_extensions"`
	FilenamePrefix    string   `yaml:"filename_prefix"`

	// parsed MaxSize (not serialized)
	maxSizeBytes int64
}

// WatchConfig controls watch mode
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Normalize: NormalizeConfig{
			Case:    string(normalizer.Lower),
			Exclude: []string{},
		},
		Input: InputConfig{
			Format: string(parser.FormatAuto),
		},
		Output: OutputConfig{
			Format: "",
			Indent: formatter.DefaultIndent,
		},
		Files: FilesConfig{
			SizeUnits:         string(fileinfo.Binary),
			AllowedExtensions: []string{},
		},
		Watch: WatchConfig{
			Debounce: 200 * time.Millisecond,
		},
		Dev: DevConfig{
			Debug: false,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file '%s': %w", path, err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findConfigFrom(currentDir)
}

func findConfigFrom(dir string) string {
	configNames := []string{".keycase.yml", ".keycase.yaml", "keycase.yml", "keycase.yaml"}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			// Reached root directory
			return ""
		}
		dir = parentDir
	}
}

// Validate checks enumerated values and parses sizes
func (c *Config) Validate() error {
	if _, err := normalizer.ParseCase(c.Normalize.Case); err != nil {
		return fmt.Errorf("normalize.case: %w", err)
	}
	if _, err := parser.ParseFormat(c.Input.Format); err != nil {
		return fmt.Errorf("input.format: %w", err)
	}
	if c.Output.Format != "" {
		if _, err := formatter.NewFormatter(c.Output.Format, c.Output.Indent); err != nil {
			return fmt.Errorf("output.format: %w", err)
		}
	}
	if c.Output.Indent < 0 {
		return fmt.Errorf("output.indent: must not be negative, got %d", c.Output.Indent)
	}
	if _, err := fileinfo.ParseUnits(c.Files.SizeUnits); err != nil {
		return fmt.Errorf("files.size_units: %w", err)
	}

	c.Files.maxSizeBytes = 0
	if strings.TrimSpace(c.Files.MaxSize) != "" {
		n, err := fileinfo.ParseSize(c.Files.MaxSize)
		if err != nil {
			return fmt.Errorf("files.max_size: %w", err)
		}
		c.Files.maxSizeBytes = n
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce: must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}

// Case returns the configured key case
func (c *Config) Case() normalizer.Case {
	nc, err := normalizer.ParseCase(c.Normalize.Case)
	if err != nil {
		return normalizer.Lower
	}
	return nc
}

// SizeUnits returns the configured unit system for file sizes
func (c *Config) SizeUnits() fileinfo.Units {
	u, err := fileinfo.ParseUnits(c.Files.SizeUnits)
	if err != nil {
		return fileinfo.Binary
	}
	return u
}

// FilePolicy returns the file acceptance policy. Validate must have run for
// max_size to be applied.
func (c *Config) FilePolicy() fileinfo.Policy {
	return fileinfo.Policy{
		MaxSize:           c.Files.maxSizeBytes,
		AllowedExtensions: c.Files.AllowedExtensions,
	}
}

// Overrides holds CLI values that take precedence over the config file.
// Empty strings and nil pointers leave the file value in place.
type Overrides struct {
	Case         string
	Exclude      []string
	InputFormat  string
	OutputFormat string
	Indent       *int
	Debug        bool
}

// ApplyOverrides copies the set fields of o into c and validates the result
func (c *Config) ApplyOverrides(o Overrides) error {
	if o.Case != "" {
		c.Normalize.Case = o.Case
	}
	if len(o.Exclude) > 0 {
		// Copies of c may share the old backing array.
		exclude := make([]string, 0, len(c.Normalize.Exclude)+len(o.Exclude))
		c.Normalize.Exclude = append(append(exclude, c.Normalize.Exclude...), o.Exclude...)
	}
	if o.InputFormat != "" {
		c.Input.Format = o.InputFormat
	}
	if o.OutputFormat != "" {
		c.Output.Format = o.OutputFormat
	}
	if o.Indent != nil {
		c.Output.Indent = *o.Indent
	}
	if o.Debug {
		c.Dev.Debug = true
	}
	return c.Validate()
}

// LoadConfigWithCLI loads config with CLI argument precedence.
// An empty configPath falls back to FindConfigFile, then to defaults.
func LoadConfigWithCLI(configPath string, o Overrides) (*Config, error) {
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg := NewConfig()
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if err := cfg.ApplyOverrides(o); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Package config loads the batch driver configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults reproduce the DECC GC-MD deployment.
var (
	DefaultSites   = []string{"BSD", "HFD", "RGL"}
	DefaultSpecies = []string{"n2o", "sf6"}
)

const (
	DefaultStdsFile    = "{SITE}_GCMD_stds.dat"
	DefaultDatasetFile = "DECC-GCMD_{SITE}_{species}.nc"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Config is the explicit configuration of one batch run. Fields map 1:1 to
// the YAML keys.
type Config struct {
	// Sites and Species are crossed to form the (site, species) pairs.
	Sites   []string `yaml:"sites"`
	Species []string `yaml:"species"`

	// StdsDir holds the instrument standards logs.
	StdsDir string `yaml:"stds_dir"`
	// SourceDir holds the pristine datasets. They are never modified.
	SourceDir string `yaml:"source_dir"`
	// WorkDir receives the staged copies that get rewritten.
	WorkDir string `yaml:"work_dir"`

	// StdsFile and DatasetFile are file name templates. Placeholders:
	// {site}, {SITE}, {species}, {SPECIES}.
	StdsFile    string `yaml:"stds_file"`
	DatasetFile string `yaml:"dataset_file"`

	// FailFast stops the run at the first failing pair.
	FailFast bool `yaml:"fail_fast"`

	// MetricsTextfile, when set, receives the run metrics in Prometheus text
	// format after the run.
	MetricsTextfile string `yaml:"metrics_textfile"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`
	// Format is one of: text | json.
	Format string `yaml:"format"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Sites:       append([]string(nil), DefaultSites...),
		Species:     append([]string(nil), DefaultSpecies...),
		StdsFile:    DefaultStdsFile,
		DatasetFile: DefaultDatasetFile,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

func validate(cfg *Config) error {
	if len(cfg.Sites) == 0 {
		return fmt.Errorf("sites must not be empty")
	}
	if len(cfg.Species) == 0 {
		return fmt.Errorf("species must not be empty")
	}
	for i, s := range cfg.Sites {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("sites[%d] is empty", i)
		}
	}
	for i, s := range cfg.Species {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("species[%d] is empty", i)
		}
	}
	if cfg.StdsDir == "" {
		return fmt.Errorf("stds_dir is required")
	}
	if cfg.SourceDir == "" {
		return fmt.Errorf("source_dir is required")
	}
	if cfg.WorkDir == "" {
		return fmt.Errorf("work_dir is required")
	}
	if filepath.Clean(cfg.WorkDir) == filepath.Clean(cfg.SourceDir) {
		return fmt.Errorf("work_dir must differ from source_dir")
	}
	for key, tmpl := range map[string]string{"stds_file": cfg.StdsFile, "dataset_file": cfg.DatasetFile} {
		if !strings.Contains(strings.ToLower(tmpl), "{site}") {
			return fmt.Errorf("%s %q has no {site} placeholder", key, tmpl)
		}
		if strings.ContainsRune(tmpl, filepath.Separator) {
			return fmt.Errorf("%s %q must be a file name", key, tmpl)
		}
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}
	return nil
}

// FileName expands a file name template for one pair.
func FileName(tmpl, site, species string) string {
	return strings.NewReplacer(
		"{site}", strings.ToLower(site),
		"{SITE}", strings.ToUpper(site),
		"{species}", strings.ToLower(species),
		"{SPECIES}", strings.ToUpper(species),
	).Replace(tmpl)
}

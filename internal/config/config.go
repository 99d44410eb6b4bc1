// Package config provides the Config struct and loader for .crucible.yaml
// project-level configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for configuration. New() references them and no other
// code should duplicate them.
const (
	DefaultModel             = "gemini-2.5-flash"
	DefaultTemperature       = 0.9
	DefaultScoreTemperature  = 0.3
	DefaultMaxOutputTokens   = 1024
	DefaultRequestTimeoutSec = 60

	DefaultStoreBackend = "file"
	DefaultStoreDir     = "data"

	DefaultServerPort = 8080

	// APIKeyEnv is the environment variable holding the generation API key.
	APIKeyEnv = "GEMINI_API_KEY"
)

// GenerationConfig holds model call parameters.
type GenerationConfig struct {
	Model string `yaml:"model,omitempty"`
	// Temperature applies to conversational generation; ScoreTemperature to
	// analysis, which wants less variance.
	Temperature       *float64 `yaml:"temperature,omitempty"`
	ScoreTemperature  *float64 `yaml:"score_temperature,omitempty"`
	MaxOutputTokens   int      `yaml:"max_output_tokens,omitempty"`
	RequestTimeoutSec int      `yaml:"request_timeout,omitempty"`
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Backend is "file" or "badger".
	Backend string `yaml:"backend,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// Config is the top-level configuration loaded from .crucible.yaml.
type Config struct {
	Generation GenerationConfig `yaml:"generation,omitempty"`
	Store      StoreConfig      `yaml:"store,omitempty"`
	Server     ServerConfig     `yaml:"server,omitempty"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	temp := DefaultTemperature
	scoreTemp := DefaultScoreTemperature
	return &Config{
		Generation: GenerationConfig{
			Model:             DefaultModel,
			Temperature:       &temp,
			ScoreTemperature:  &scoreTemp,
			MaxOutputTokens:   DefaultMaxOutputTokens,
			RequestTimeoutSec: DefaultRequestTimeoutSec,
		},
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
			Dir:     DefaultStoreDir,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
	}
}

// Load finds .crucible.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults. If no config
// file is found, returns defaults with a nil error. Real I/O errors (e.g.
// permission denied) are returned to the caller.
func Load(startDir string) (*Config, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading .crucible.yaml: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .crucible.yaml: %w", err)
	}

	mergeConfig(cfg, &fileCfg)

	if cfg.Store.Backend != "file" && cfg.Store.Backend != "badger" {
		return nil, fmt.Errorf("unknown store backend %q (want file or badger)", cfg.Store.Backend)
	}
	return cfg, nil
}

// APIKey reads the generation API key from the environment. The service
// fails startup when it is absent rather than failing on the first request.
func APIKey() (string, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s is not set", APIKeyEnv)
	}
	return key, nil
}

// findConfigFile walks up from dir looking for .crucible.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".crucible.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero file values onto the defaults.
func mergeConfig(dst, src *Config) {
	if src.Generation.Model != "" {
		dst.Generation.Model = src.Generation.Model
	}
	if src.Generation.Temperature != nil {
		dst.Generation.Temperature = src.Generation.Temperature
	}
	if src.Generation.ScoreTemperature != nil {
		dst.Generation.ScoreTemperature = src.Generation.ScoreTemperature
	}
	if src.Generation.MaxOutputTokens != 0 {
		dst.Generation.MaxOutputTokens = src.Generation.MaxOutputTokens
	}
	if src.Generation.RequestTimeoutSec != 0 {
		dst.Generation.RequestTimeoutSec = src.Generation.RequestTimeoutSec
	}
	if src.Store.Backend != "" {
		dst.Store.Backend = src.Store.Backend
	}
	if src.Store.Dir != "" {
		dst.Store.Dir = src.Store.Dir
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if len(src.Server.CORSOrigins) > 0 {
		dst.Server.CORSOrigins = src.Server.CORSOrigins
	}
}

// CLAUDE:SUMMARY Service configuration (YAML) with defaults and validation for the moulinette upload API.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full moulinette service configuration.
type Config struct {
	Listen         string        `yaml:"listen"`
	UploadDir      string        `yaml:"upload_dir"`
	MaxFileMB      int           `yaml:"max_file_mb"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	ExtractTimeout time.Duration `yaml:"extract_timeout"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
	OCRLang        string        `yaml:"ocr_lang"`
	LogLevel       string        `yaml:"log_level"`
	LogDir         string        `yaml:"log_dir"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:         ":8086",
		UploadDir:      filepath.Join(os.TempDir(), "moulinette"),
		MaxFileMB:      50,
		MaxConcurrent:  4,
		ExtractTimeout: 2 * time.Minute,
		RateLimit:      10,
		RateWindow:     time.Minute,
		OCRLang:        "vie+eng",
		LogLevel:       "info",
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file; a missing file (including path == "") yields
// plain defaults so the binary runs without any config at all.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(os.TempDir(), "moulinette")
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be > 0")
	}
	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("extract_timeout must be > 0")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate_limit must be > 0")
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("rate_window must be > 0")
	}
	return nil
}

// MaxFileBytes returns max file size in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }

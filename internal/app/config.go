package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/implgrid/internal/publish"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string            // .hcl file or directory
	Vars         map[string]string // exposed to manifest expressions

	OutDir string           // directory sink; empty disables it
	S3     publish.S3Config // bucket sink; empty bucket disables it

	CITemplatePath string
	DryRun         bool
	WorkerCount    int

	Port      int // HTTP server; 0 disables it outside of serve
	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy with defaults applied.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		errs = append(errs, errors.New("invalid log-format: must be 'text' or 'json'"))
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'"))
	}

	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 1
	}
	if cfg.WorkerCount < 0 {
		errs = append(errs, fmt.Errorf("invalid workers: %d must be positive", cfg.WorkerCount))
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %d", cfg.Port))
	}
	if cfg.S3.Bucket != "" && cfg.S3.Region == "" {
		errs = append(errs, errors.New("s3-region is required when s3-bucket is set"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	vars := make(map[string]string, len(cfg.Vars)+1)
	vars["docs_root"] = ".."
	for k, v := range cfg.Vars {
		vars[k] = v
	}
	cfg.Vars = vars

	return &cfg, nil
}

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults] to zero-valued fields.
const (
	DefaultListenAddr       = ":8080"
	DefaultTimeout          = 8 * time.Second
	DefaultMaxItems         = 15
	DefaultTimezone         = "UTC"
	DefaultContainmentRatio = 0.9
	DefaultMaxExtraTokens   = 2
	DefaultStorePath        = "data/queue.json"
	DefaultMaxRetries       = 3
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields in cfg with sensible defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Classifier.Timeout <= 0 {
		cfg.Classifier.Timeout = DefaultTimeout
	}
	if cfg.Classifier.MaxItems <= 0 {
		cfg.Classifier.MaxItems = DefaultMaxItems
	}
	if cfg.Classifier.Timezone == "" {
		cfg.Classifier.Timezone = DefaultTimezone
	}
	if cfg.Pipeline.ContainmentRatio <= 0 {
		cfg.Pipeline.ContainmentRatio = DefaultContainmentRatio
	}
	if cfg.Pipeline.MaxExtraTokens <= 0 {
		cfg.Pipeline.MaxExtraTokens = DefaultMaxExtraTokens
	}
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = BackendFile
	}
	if cfg.Queue.StorePath == "" {
		cfg.Queue.StorePath = DefaultStorePath
	}
	if cfg.Queue.MaxRetries <= 0 {
		cfg.Queue.MaxRetries = DefaultMaxRetries
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	if cfg.Classifier.BaseURL == "" {
		slog.Warn("classifier.base_url is empty; running local-only, captures will not use the remote classifier")
	} else if cfg.Classifier.APIKey == "" {
		slog.Warn("classifier.base_url is set but classifier.api_key is empty; requests will be sent unauthenticated")
	}
	if _, err := time.LoadLocation(cfg.Classifier.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("classifier.timezone %q is not a valid IANA zone: %w", cfg.Classifier.Timezone, err))
	}

	if cfg.Pipeline.ContainmentRatio > 1 {
		errs = append(errs, fmt.Errorf("pipeline.containment_ratio %.2f is out of range (0, 1]", cfg.Pipeline.ContainmentRatio))
	}

	if !cfg.Queue.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("queue.backend %q is invalid; valid values: file, postgres", cfg.Queue.Backend))
	}
	if cfg.Queue.Backend == BackendPostgres && cfg.Queue.PostgresDSN == "" {
		errs = append(errs, errors.New("queue.postgres_dsn is required when queue.backend is postgres"))
	}

	return errors.Join(errs...)
}

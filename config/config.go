// Package config loads the server configuration from YAML, applies
// SCIGOLAB_* environment overrides and validates the result.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
)

// Config is the full configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Auth        AuthConfig        `yaml:"auth"`
	Experiments ExperimentsConfig `yaml:"experiments"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
}

type StorageConfig struct {
	Path     string `yaml:"path" validate:"required_unless=InMemory true"`
	InMemory bool   `yaml:"in_memory"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" validate:"required,min=32"`
	TokenTTL  time.Duration `yaml:"token_ttl" validate:"gt=0"`
}

type ExperimentsConfig struct {
	MaxConcurrentRuns int64         `yaml:"max_concurrent_runs" validate:"gte=1,lte=256"`
	Seed              int64         `yaml:"seed"`
	RunTimeout        time.Duration `yaml:"run_timeout" validate:"gte=0"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when nothing is overridden. It
// has no JWT secret and so does not validate on its own.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8000",
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{Path: "data"},
		Auth:    AuthConfig{TokenTTL: 30 * time.Minute},
		Experiments: ExperimentsConfig{
			MaxConcurrentRuns: 2,
			Seed:              42,
			RunTimeout:        5 * time.Minute,
		},
		Log: LogConfig{Level: "info"},
	}
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed "+fe.Tag()+" check", fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}
	return nil
}

// Load reads path (optional), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("SCIGOLAB_SERVER_ADDR", &cfg.Server.Addr)
	str("SCIGOLAB_STORAGE_PATH", &cfg.Storage.Path)
	str("SCIGOLAB_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("SCIGOLAB_LOG_LEVEL", &cfg.Log.Level)

	if v, ok := lookup("SCIGOLAB_CORS_ORIGINS"); ok {
		cfg.Server.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.Server.CORSOrigins = append(cfg.Server.CORSOrigins, o)
			}
		}
	}
	if v, ok := lookup("SCIGOLAB_STORAGE_IN_MEMORY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.NewValidationError("SCIGOLAB_STORAGE_IN_MEMORY", "not a boolean", v)
		}
		cfg.Storage.InMemory = b
	}
	for key, dst := range map[string]*time.Duration{
		"SCIGOLAB_TOKEN_TTL":   &cfg.Auth.TokenTTL,
		"SCIGOLAB_RUN_TIMEOUT": &cfg.Experiments.RunTimeout,
	} {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.NewValidationError(key, "not a duration", v)
			}
			*dst = d
		}
	}
	for key, dst := range map[string]*int64{
		"SCIGOLAB_MAX_CONCURRENT_RUNS": &cfg.Experiments.MaxConcurrentRuns,
		"SCIGOLAB_SEED":                &cfg.Experiments.Seed,
	} {
		if v, ok := lookup(key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return errors.NewValidationError(key, "not an integer", v)
			}
			*dst = n
		}
	}
	return nil
}

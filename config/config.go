// Package config loads agentdesk settings from a YAML file, an optional .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/log"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

// Config is the complete application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	LLM    llm.Config   `yaml:"llm"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
	Agents AgentsConfig `yaml:"agents"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
	// Mode is the gin mode: debug, release or test.
	Mode            string        `yaml:"mode" validate:"omitempty,oneof=debug release test"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
	// TurnRate limits chat turns per second; 0 disables the limit.
	TurnRate  float64 `yaml:"turn_rate" validate:"gte=0"`
	TurnBurst int     `yaml:"turn_burst" validate:"gte=0"`
}

// StoreConfig selects where conversations are checkpointed.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory file badger redis postgres sqlite"`
	// Dir is the directory of the file and badger drivers.
	Dir string `yaml:"dir"`
	// DSN is the connection string of the postgres driver or the database
	// path of the sqlite driver.
	DSN            string      `yaml:"dsn"`
	Table          string      `yaml:"table"`
	Redis          RedisConfig `yaml:"redis"`
	MaxCheckpoints int         `yaml:"max_checkpoints" validate:"gte=0"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AgentsConfig bounds agent execution.
type AgentsConfig struct {
	MaxIterations  int `yaml:"max_iterations" validate:"min=1"`
	RecursionLimit int `yaml:"recursion_limit" validate:"min=1"`
	// Retries re-runs a node after an upstream model failure; 0 disables it.
	Retries int `yaml:"retries" validate:"gte=0"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", Mode: "release", ShutdownTimeout: 10 * time.Second},
		LLM:    llm.Config{Provider: llm.ProviderOpenAI, Model: llm.DefaultModel},
		Store:  StoreConfig{Driver: DriverMemory, Dir: "data/checkpoints", MaxCheckpoints: 20},
		Log:    LogConfig{Level: "info"},
		Agents: AgentsConfig{MaxIterations: 10, RecursionLimit: 25},
	}
}

// Load reads path on top of the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	num := func(dst *int, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str(&c.LLM.APIKey, "OPENAI_API_KEY")
	str(&c.LLM.Model, "AGENTDESK_MODEL", "OPENAI_MODEL")
	str(&c.LLM.BaseURL, "AGENTDESK_BASE_URL", "OPENAI_BASE_URL")
	str(&c.LLM.Provider, "AGENTDESK_PROVIDER")
	str(&c.Server.Addr, "AGENTDESK_ADDR")
	str(&c.Server.Mode, "AGENTDESK_MODE")
	str(&c.Log.Level, "AGENTDESK_LOG_LEVEL")
	str(&c.Store.Driver, "AGENTDESK_STORE")
	str(&c.Store.Dir, "AGENTDESK_STORE_DIR")
	str(&c.Store.DSN, "AGENTDESK_STORE_DSN")
	str(&c.Store.Redis.Addr, "AGENTDESK_REDIS_ADDR")
	str(&c.Store.Redis.Password, "AGENTDESK_REDIS_PASSWORD")

	if v, ok := lookup("AGENTDESK_TEMPERATURE"); ok && v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid AGENTDESK_TEMPERATURE: %w", err)
		}
		c.LLM.Temperature = t
	}
	return errors.Join(
		num(&c.Agents.MaxIterations, "AGENTDESK_MAX_ITERATIONS"),
		num(&c.Agents.RecursionLimit, "AGENTDESK_RECURSION_LIMIT"),
		num(&c.Store.MaxCheckpoints, "AGENTDESK_MAX_CHECKPOINTS"),
		num(&c.Agents.Retries, "AGENTDESK_RETRIES"),
	)
}

var validate = newValidator()

// newValidator reports fields by their yaml names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldErrors(err error) []error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{err}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required":
			out = append(out, fmt.Errorf("%s is required", field))
		case "oneof":
			out = append(out, fmt.Errorf("unknown %s %q, want one of: %s", field, fe.Value(), fe.Param()))
		case "min":
			out = append(out, fmt.Errorf("%s must be at least %s", field, fe.Param()))
		default:
			out = append(out, fmt.Errorf("%s: %v fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	return out
}

// Validate checks the values that cannot be defaulted. A missing API key is
// not an error: the web UI lets users supply their own.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		errs = append(errs, fieldErrors(err)...)
	}
	switch c.Store.Driver {
	case DriverFile, DriverBadger:
		if c.Store.Dir == "" {
			errs = append(errs, fmt.Errorf("store.dir is required for the %s driver", c.Store.Driver))
		}
	case DriverRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis driver"))
		}
	case DriverPostgres, DriverSqlite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver))
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadDotEnv sets variables from a dotenv file without overriding ones
// already in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

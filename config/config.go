// Package config provides seed file parsing for tinystore.
//
// A seed file describes a store's initial state and its options. It enables
// running the tinystore CLI against a file, as an alternative to constructing
// stores programmatically.
//
// Example YAML seed:
//
//	name: session
//	log_level: debug
//	recover_panics: true
//
//	state:
//	  user: ${USER:-anonymous}
//	  count: 0
//	  theme:
//	    mode: dark
//
// The same seed in TOML:
//
//	name = "session"
//	log_level = "debug"
//	recover_panics = true
//
//	[state]
//	user = "${USER:-anonymous}"
//	count = 0
//
//	[state.theme]
//	mode = "dark"
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/tinystore"
)

// defaultLogLevel is applied when a seed does not set log_level.
const defaultLogLevel = "info"

// Config is the root structure of a seed file.
//
// It maps directly to the YAML or TOML file structure. Use [Load], [Parse]
// or [ParseTOML] to create a Config.
type Config struct {
	// Name is the store name attached to logs and metrics. Optional.
	Name string `yaml:"name" toml:"name"`

	// LogLevel is one of "debug", "info", "warn", "error". Defaults to "info".
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// RecoverPanics enables panic recovery for effects and updaters.
	RecoverPanics bool `yaml:"recover_panics" toml:"recover_panics"`

	// State is the store's initial state.
	// String values support environment variable substitution: ${VAR} or ${VAR:-default}
	State map[string]any `yaml:"state" toml:"state"`
}

// Load reads and parses a seed file.
//
// Files with a ".toml" extension are parsed as TOML; everything else is
// parsed as YAML. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// Parse parses YAML seed data.
//
// Environment variables are expanded in string state values, including
// values nested in maps and lists. Defaults are applied for LogLevel.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return finish(&cfg)
}

// ParseTOML parses TOML seed data.
//
// Behaves like [Parse]. Note that TOML integers decode as int64.
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.State == nil {
		cfg.State = make(map[string]any)
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	for key, value := range c.State {
		if strings.TrimSpace(key) == "" {
			return errors.New("state: key cannot be empty")
		}
		if key == tinystore.All {
			return fmt.Errorf("state: key %q is reserved for the wildcard subscription", key)
		}

		expanded, err := expandValue(fmt.Sprintf("state[%s]", key), value)
		if err != nil {
			return err
		}
		c.State[key] = expanded
	}

	return nil
}

// Level returns the configured log level as a [slog.Level].
func (c *Config) Level() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn, or error, got %q", s)
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} references.
// Group 1 is the variable name, group 2 the ":-default" part and group 3 the
// default value, which may be empty.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandValue expands environment references in every string inside v,
// descending into maps and lists. path locates v in the seed and prefixes
// errors, e.g. "state[theme].mode" or "state[hosts][1]".
func expandValue(path string, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return expandString(path, val)
	case map[string]any:
		for k, nested := range val {
			expanded, err := expandValue(path+"."+k, nested)
			if err != nil {
				return nil, err
			}
			val[k] = expanded
		}
		return val, nil
	case []any:
		for i, nested := range val {
			expanded, err := expandValue(fmt.Sprintf("%s[%d]", path, i), nested)
			if err != nil {
				return nil, err
			}
			val[i] = expanded
		}
		return val, nil
	default:
		return v, nil
	}
}

// expandString replaces ${VAR} and ${VAR:-default} references in s.
//
// A set variable wins over its default, even when set to "". Every unset
// variable without a default is reported in one error.
func expandString(path, s string) (string, error) {
	var missing []string

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(m[1]); ok {
			return value
		}
		if m[2] != "" {
			return m[3]
		}
		missing = append(missing, strconv.Quote(m[1]))
		return match
	})

	switch len(missing) {
	case 0:
		return result, nil
	case 1:
		return "", fmt.Errorf("%s: environment variable %s is not set", path, missing[0])
	default:
		return "", fmt.Errorf("%s: environment variables %s are not set", path, strings.Join(missing, ", "))
	}
}

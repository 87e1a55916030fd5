// internal/config/load.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// EnvPrefix marks variables that map onto config keys:
// LIBRA_STORE_DATABASE_URL -> store.database_url.
const EnvPrefix = "LIBRA_"

var defaultPaths = []string{"config.yaml", "config.yml"}

// legacyEnv keeps the variable names the service has always read.
var legacyEnv = map[string]string{
	"DATABASE_URL": "store.database_url",
	"PORT":         "server.port",
	"LOG_LEVEL":    "logging.level",
	"JWT_SECRET":   "auth.jwt_secret",
}

var sections = map[string]bool{
	"server": true, "store": true, "breaker": true, "discovery": true,
	"report": true, "auth": true, "tracing": true, "logging": true,
}

var slicePaths = []string{"server.cors_origins"}

// Load builds the configuration: defaults, then the YAML file, then the environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFile() string {
	if path := os.Getenv(PathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envKey maps an environment variable to a config key. An empty result skips it.
func envKey(name string) string {
	if key, ok := legacyEnv[name]; ok {
		return key
	}
	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}

	rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, field, ok := strings.Cut(rest, "_")
	if !ok || !sections[section] || field == "" {
		return ""
	}
	return section + "." + field
}

// splitSlices turns comma-separated environment values into lists.
func splitSlices(k *koanf.Koanf) error {
	for _, path := range slicePaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "WIRECHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
// An empty path means no config file was used.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("topic", cfg.Topic)
	v.SetDefault("alias", cfg.Alias)
	v.SetDefault("listen_addrs", cfg.ListenAddrs)
	v.SetDefault("service_name", cfg.ServiceName)
	v.SetDefault("domain", cfg.Domain)
	v.SetDefault("record_ttl", cfg.RecordTTL)
	v.SetDefault("browse_interval", cfg.BrowseInterval)
	v.SetDefault("browse_timeout", cfg.BrowseTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("http_addr", cfg.HTTPAddr)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)

	v.SetEnvPrefix("WIRECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, create := resolveConfigPath(explicitPath)
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, configPath, fmt.Errorf("read config: %w", err)
			}
			if !create {
				configPath = ""
			} else {
				if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
					logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
				} else if logger != nil {
					logger.Info().Str("path", configPath).Msg("created default config")
				}
				// try reading again in case it was just written
				if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
					logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
				}
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// resolveConfigPath picks the config file location and reports whether a
// missing file at that location should be created with defaults.
func resolveConfigPath(explicitPath string) (string, bool) {
	if explicitPath != "" {
		return explicitPath, true
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName), true
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	return filepath.Join(cwd, defaultConfigName), false
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

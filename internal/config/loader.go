// Package config provides configuration loading for hubsync.
// Layers, lowest first: built-in defaults, a YAML config file, HUBSYNC_* environment variables
// (plus the conventional HUBSPOT_API_KEY), and runtime overrides from flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	AppName   = "hubsync"
	EnvPrefix = "HUBSYNC"

	// APIKeyEnv is honored when HUBSYNC_HUBSPOT_API_KEY and the config file leave the key empty.
	APIKeyEnv = "HUBSPOT_API_KEY"
)

// Load reads configuration. An explicit path must exist; with no path the XDG config directory and
// ./config are searched for config.yaml and a missing file is not an error.
func Load(path string, runtimeOverrides ...map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		if dir := gfconfig.GetAppConfigDir(AppName); strings.TrimSpace(dir) != "" {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if strings.TrimSpace(v.GetString("hubspot.api_key")) == "" {
		if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
			v.Set("hubspot.api_key", key)
		}
	}

	for _, overrides := range runtimeOverrides {
		applyOverrides(v, "", overrides)
	}

	// Unmarshal into typed config struct
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyOverrides sets every leaf of a nested override map so sibling keys keep their lower layers.
func applyOverrides(v *viper.Viper, prefix string, overrides map[string]any) {
	for key, value := range overrides {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			applyOverrides(v, path, nested)
			continue
		}
		v.Set(path, value)
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// HubSpot defaults
	v.SetDefault("hubspot.api_key", "")
	v.SetDefault("hubspot.base_url", "https://api.hubapi.com")
	v.SetDefault("hubspot.default_owner_id", "")
	v.SetDefault("hubspot.default_pipeline_id", "default")
	v.SetDefault("hubspot.timeout", "30s")

	// Rate limit defaults (HubSpot private app limits)
	v.SetDefault("rate_limit.burst_capacity", 100)
	v.SetDefault("rate_limit.burst_window", "10s")
	v.SetDefault("rate_limit.daily_capacity", 150000)
	v.SetDefault("rate_limit.daily_window", "24h")
	v.SetDefault("rate_limit.max_daily_wait", "1h")

	// Retry defaults
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_backoff", "1s")
	v.SetDefault("retry.retry_after_default", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

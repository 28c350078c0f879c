package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override, e.g. STOREFRONT_PORT.
const envPrefix = "STOREFRONT"

// Settings are the process settings of the storefront binary.
type Settings struct {
	Port       string        `mapstructure:"port"`
	BasePath   string        `mapstructure:"base_path"`
	ShopsFile  string        `mapstructure:"shops_file"`
	CacheDir   string        `mapstructure:"cache_dir"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	RedisURL   string        `mapstructure:"redis_url"`
	APIGateway string        `mapstructure:"api_gateway"`
	APIToken   string        `mapstructure:"api_token"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
	LogLevel   string        `mapstructure:"log_level"`
	LogPretty  bool          `mapstructure:"log_pretty"`
}

var defaults = map[string]any{
	"port":        "8080",
	"base_path":   "",
	"shops_file":  "shops.yaml",
	"cache_dir":   "cache",
	"cache_ttl":   "10m",
	"redis_url":   "",
	"api_gateway": "",
	"api_token":   "",
	"api_timeout": "30s",
	"log_level":   "info",
	"log_pretty":  false,
}

// loadSettings reads storefront.yaml (or configFile) and environment
// overrides. A missing default config file is not an error.
func loadSettings(configFile string) (*Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}

// mountPath normalizes base_path to the prefix the router strips: "" or "/dir".
func (s *Settings) mountPath() string {
	base := strings.Trim(s.BasePath, "/")
	if base == "" {
		return ""
	}
	return "/" + base
}

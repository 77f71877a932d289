package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional YAML file at path (pass ""
// to skip file loading), then applies environment overrides where a
// dotted key a.b.c is overridable by the env var A_B_C (spec.md §6),
// and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			BaseURL: v.GetString("server.base_url"),
			Port:    v.GetInt("server.port"),
		},
		Store: StoreConfig{
			Type:     StoreType(v.GetString("store.type")),
			Driver:   v.GetString("store.driver"),
			Host:     v.GetString("store.host"),
			Port:     v.GetInt("store.port"),
			User:     v.GetString("store.user"),
			Password: v.GetString("store.password"),
			Database: v.GetString("store.database"),
			SSLMode:  v.GetString("store.ssl_mode"),
			Schema:   v.GetString("store.schema"),
		},
		Auth: AuthConfig{
			Secret:    v.GetString("auth.secret"),
			SecretRef: v.GetString("auth.secret_ref"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", "http://localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.type", string(StoreTypeMemory))
	v.SetDefault("store.ssl_mode", "disable")
}

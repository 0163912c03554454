package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// defaultAuthSecret is a development sentinel. Startup aborts when it
// survives into production mode.
const defaultAuthSecret = "app-secret-change-in-production"

type Config struct {
	Port                      int      `koanf:"port"`
	AuthSecret                string   `koanf:"auth_secret"`
	WSPath                    string   `koanf:"ws_path"`
	AllowedOrigins            []string `koanf:"allowed_origins"`
	ConnectionLimitPerIP      int      `koanf:"connection_limit_per_ip"`
	ChannelLimitPerConnection int      `koanf:"channel_limit_per_connection"`
	MessageRateLimit          int      `koanf:"message_rate_limit"`
	MessageRateWindowMS       int      `koanf:"message_rate_window_ms"`
	Environment               string   `koanf:"environment"`
	LogLevel                  string   `koanf:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		Port:                      3000,
		AuthSecret:                defaultAuthSecret,
		WSPath:                    "/ws",
		AllowedOrigins:            []string{"*"},
		ConnectionLimitPerIP:      10,
		ChannelLimitPerConnection: 50,
		MessageRateLimit:          100,
		MessageRateWindowMS:       60000,
		Environment:               "development",
		LogLevel:                  "info",
	}
}

func (c *Config) messageRateWindow() time.Duration {
	return time.Duration(c.MessageRateWindowMS) * time.Millisecond
}

// envMappings maps environment variables to config paths. Unmapped
// variables are ignored so unrelated environment noise cannot reach the
// config.
var envMappings = map[string]string{
	"port":                         "port",
	"auth_secret":                  "auth_secret",
	"ws_path":                      "ws_path",
	"allowed_origins":              "allowed_origins",
	"connection_limit_per_ip":      "connection_limit_per_ip",
	"channel_limit_per_connection": "channel_limit_per_connection",
	"message_rate_limit":           "message_rate_limit",
	"message_rate_window_ms":       "message_rate_window_ms",
	"environment":                  "environment",
	"log_level":                    "log_level",
}

func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// loadConfig layers environment variables over built-in defaults.
func loadConfig() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	// Origins arrive as one comma separated string.
	if v, ok := k.Get("allowed_origins").(string); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if err := k.Set("allowed_origins", origins); err != nil {
			return nil, fmt.Errorf("set allowed_origins: %w", err)
		}
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("ws_path %q must start with /", c.WSPath)
	}
	if c.ConnectionLimitPerIP < 1 || c.ChannelLimitPerConnection < 1 ||
		c.MessageRateLimit < 1 || c.MessageRateWindowMS < 1 {
		return fmt.Errorf("limits must be positive")
	}
	if c.Environment == "production" && c.AuthSecret == defaultAuthSecret {
		return fmt.Errorf("AUTH_SECRET must be set in production")
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	SingleSession bool   `env:"SINGLE_SESSION" envDefault:"true"`
	HostUser      string `env:"HOST_USER"`
	HostPass      string `env:"HOST_PASS"`
	ExportDir     string `env:"EXPORT_DIR" envDefault:"./exports"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"console"`
}

// HostAuth reports whether session creation is behind basic auth.
func (c Config) HostAuth() bool {
	return c.HostUser != "" && c.HostPass != ""
}

func FromEnv() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return Config{}, fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return c, nil
}

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/himanshub16/patchbay/patchbay"
)

// Config is read from an optional YAML file, then overridden by the
// environment and finally by flags.
type Config struct {
	Addr      string            `yaml:"addr"`
	DBURL     string            `yaml:"db_url"`
	Page      string            `yaml:"page"`
	JWTSecret string            `yaml:"jwt_secret"`
	LogLevel  string            `yaml:"log_level"`
	Patchbay  patchbay.Settings `yaml:"patchbay"`
}

func defaultConfig() Config {
	return Config{
		Addr:      ":3000",
		DBURL:     "sqlite://patchbay.sqlite3",
		JWTSecret: "secret",
		LogLevel:  "info",
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("DB_URL"); v != "" {
		cfg.DBURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("PATCHBAY_SERVER"); v != "" {
		cfg.Patchbay.Server = v
	}
	cfg.Patchbay = cfg.Patchbay.Merge(patchbay.DefaultSettings())
	return cfg, nil
}

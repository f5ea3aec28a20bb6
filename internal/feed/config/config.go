package config

import (
	"errors"
	"fmt"
	feedconfig "github.com/Borislavv/infinite-feed/pkg/config"
	httpserver "github.com/Borislavv/infinite-feed/pkg/http/server"
	"github.com/Borislavv/infinite-feed/pkg/k8s/probe/liveness"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"io/fs"
	"time"
)

type Metrics struct {
	Enabled bool `mapstructure:"METRICS_ENABLED"`
}

// Config composes the yaml feed config with process level sections read from the environment.
type Config struct {
	*feedconfig.Feed `mapstructure:"-"` // loads from yaml
	Metrics          `mapstructure:",squash"`
	Server           httpserver.Config `mapstructure:",squash"`
	Probe            liveness.Config   `mapstructure:",squash"`
}

var envKeys = map[string]any{
	"SERVER_NAME":             "infinite-feed",
	"SERVER_PORT":             "8020",
	"SERVER_SHUTDOWN_TIMEOUT": 10 * time.Second,
	"LIVENESS_PROBE_TIMEOUT":  5 * time.Second,
	"METRICS_ENABLED":         true,
}

// Load reads .env (if present) and the environment on top of the given feed config.
func Load(feed *feedconfig.Feed) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("[config] failed to load .env file")
	}

	v := viper.New()
	for key, def := range envKeys {
		v.SetDefault(key, def)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal env config: %w", err)
	}
	cfg.Feed = feed

	return cfg, nil
}

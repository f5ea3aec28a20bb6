package httpserver

import "time"

// Config is read from the environment.
type Config struct {
	Name            string        `mapstructure:"SERVER_NAME"`
	Port            string        `mapstructure:"SERVER_PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SERVER_SHUTDOWN_TIMEOUT"`
}

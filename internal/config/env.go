// Package config reads runtime settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Server is the configuration of cmd/api.
type Server struct {
	// PORT wins over API_PORT so the binary runs unchanged on PaaS hosts.
	Port    string `env:"PORT"`
	APIPort string `env:"API_PORT" envDefault:"8080"`

	WahapediaDir string `env:"WAHAPEDIA_DIR" envDefault:"data/wahapedia"`

	// At most one of these selects a session persister; SESSION_DB wins.
	SessionDir string `env:"SESSION_DIR"`
	SessionDB  string `env:"SESSION_DB"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// ListenAddr returns the address the HTTP server binds.
func (s Server) ListenAddr() string {
	if s.Port != "" {
		return ":" + s.Port
	}
	return ":" + s.APIPort
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer parses the server configuration.
func LoadServer() (Server, error) {
	var cfg Server
	err := ParseEnv(&cfg)
	return cfg, err
}

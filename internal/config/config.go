// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Client configures the terminal client.
type Client struct {
	ServerURL   string `env:"STORYSYNC_SERVER_URL" envDefault:"http://localhost:8080"`
	PlayerName  string `env:"STORYSYNC_PLAYER_NAME" envDefault:"Adventurer"`
	PlayerClass string `env:"STORYSYNC_PLAYER_CLASS" envDefault:"Wanderer"`
	LogLevel    string `env:"STORYSYNC_LOG_LEVEL" envDefault:"info"`
}

// Server configures the reference game server.
type Server struct {
	Addr     string `env:"STORYSYNC_ADDR" envDefault:":8080"`
	LogLevel string `env:"STORYSYNC_LOG_LEVEL" envDefault:"info"`
}

// Load fills target from the environment. A missing .env file is not an
// error; a malformed environment value is.
func Load(target any) error {
	_ = godotenv.Load()
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

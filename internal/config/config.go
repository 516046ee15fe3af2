package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr                string   `env:"ADDR" envDefault:":8080"`
	DiscordClientID     string   `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string   `env:"DISCORD_CLIENT_SECRET"`
	AllowedOrigins      []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads configuration from the environment, with a .env file as an
// optional local source. A missing .env is fine; deployments set real
// environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

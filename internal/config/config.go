package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Config is filled from flags, then environment variables (optionally seeded
// from a .env file), then defaults.
type Config struct {
	Addr           string        `kong:"default=':8080',env='ADDR',help='HTTP listen address'"`
	TurnTimeout    time.Duration `kong:"default='0s',env='TURN_TIMEOUT',help='Deadline for each turn before the player is stood (0 disables)'"`
	Seed           int64         `kong:"default='0',env='SEED',help='Shuffle seed (0 for random)'"`
	DatabaseURL    string        `kong:"env='DATABASE_URL',help='Postgres DSN for round history (optional)'"`
	AllowedOrigins []string      `kong:"env='ALLOWED_ORIGINS',help='Extra websocket origin patterns'"`
	LogLevel       string        `kong:"default='info',env='LOG_LEVEL',enum='debug,info,warn,error',help='Log level'"`
	Dev            bool          `kong:"env='DEV',help='Human-readable development logging'"`
}

// Load reads envFiles (".env" when none are given) and parses args.
// Missing env files are not an error.
func Load(args []string, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	parser, err := kong.New(&cfg,
		kong.Name("blackjack-server"),
		kong.Description("Authoritative multi-player blackjack session server"),
		kong.UsageOnError(),
	)
	if err != nil {
		return Config{}, fmt.Errorf("build flag parser: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.TurnTimeout < 0 {
		return fmt.Errorf("turn timeout must not be negative, got %s", c.TurnTimeout)
	}
	return nil
}

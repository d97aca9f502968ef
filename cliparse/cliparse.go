// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// Database types accepted in DATABASE_TYPE.
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
	DatabaseMemory   = "memory"
)

type Config struct {
	Port         int    `env:"PORT" envDefault:"3318"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	AdminKeySalt string `env:"ADMIN_KEY_SALT"`

	TelegramToken   string `env:"TELEGRAM_TOKEN"`
	RequireProposer bool   `env:"REQUIRE_PROPOSER" envDefault:"true"`

	AIAPIKey string `env:"AI_API_KEY"`
	AIModel  string `env:"AI_MODEL"`
	AIURL    string `env:"AI_URL"`
}

// LoadEnv reads files into the process environment (default ".env"; missing
// files are ignored) and parses Config from it. Variables already set win
// over the files.
func LoadEnv(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Flags are the command-line overrides for Config.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP listen port"},
		&cli.StringFlag{Name: "database-url", Aliases: []string{"d"}, Usage: "database URL or SQLite file"},
		&cli.StringFlag{Name: "database-type", Aliases: []string{"t"}, Usage: "sqlite, postgres or memory"},
		&cli.StringFlag{Name: "admin-salt", Usage: "admin key salt (prefer env)"},
		&cli.StringFlag{Name: "telegram-token", Usage: "Telegram bot token (prefer env)"},
		&cli.BoolFlag{Name: "require-proposer", Usage: "wait for a proposer before the next question"},
		&cli.StringFlag{Name: "ai-model", Usage: "model for /post announcements"},
	}
}

// FromCommand loads the environment and applies any flags set on cmd.
func FromCommand(cmd *cli.Command) (Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return Config{}, err
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("database-url") {
		cfg.DatabaseURL = cmd.String("database-url")
	}
	if cmd.IsSet("database-type") {
		cfg.DatabaseType = cmd.String("database-type")
	}
	if cmd.IsSet("admin-salt") {
		cfg.AdminKeySalt = cmd.String("admin-salt")
	}
	if cmd.IsSet("telegram-token") {
		cfg.TelegramToken = cmd.String("telegram-token")
	}
	if cmd.IsSet("require-proposer") {
		cfg.RequireProposer = cmd.Bool("require-proposer")
	}
	if cmd.IsSet("ai-model") {
		cfg.AIModel = cmd.String("ai-model")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.DatabaseType {
	case DatabaseSQLite, DatabasePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL required (use -d or DATABASE_URL env)")
		}
	case DatabaseMemory:
	default:
		return fmt.Errorf("unknown database type %q", c.DatabaseType)
	}
	// Secrets - MUST be provided
	if c.AdminKeySalt == "" {
		return errors.New("ADMIN_KEY_SALT required")
	}
	return nil
}

// ParseFlags parses args (without the program name) against Flags on top of
// the environment.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	cmd := &cli.Command{
		Name:  "councilvote",
		Flags: Flags(),
		Action: func(_ context.Context, c *cli.Command) error {
			var err error
			cfg, err = FromCommand(c)
			return err
		},
	}
	if err := cmd.Run(context.Background(), append([]string{cmd.Name}, args...)); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

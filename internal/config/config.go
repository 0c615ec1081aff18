// Package config loads tracker settings from the environment, command-line
// flags and an optional YAML seed of watched configurations.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ton-buy-tracker/internal/dexscreener"
	"ton-buy-tracker/internal/notify"
	"ton-buy-tracker/internal/tonapi"
)

// Config is the process configuration.
type Config struct {
	BotToken        string
	TrendingChannel notify.Destination
	ChannelTitle    string
	BookTrendingURL string

	TonAPIBase      string
	TonAPIKey       string
	DexScreenerBase string

	PollInterval         time.Duration
	LeaderboardInterval  time.Duration
	LeaderboardWindow    time.Duration
	LeaderboardMessageID int

	DatabaseURL   string
	ClickhouseDSN string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel    string
	LogEncoding string
	AdminAddr   string

	UseMemory bool
	SeedPath  string
}

// Flags are the command-line switches.
type Flags struct {
	UseMemory bool
	EnvFile   string
	SeedPath  string
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string, output io.Writer) (Flags, error) {
	var f Flags
	fs := flag.NewFlagSet("tracker", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&f.UseMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL")
	fs.StringVar(&f.EnvFile, "env-file", ".env", "Path to a .env file (ignored if missing)")
	fs.StringVar(&f.SeedPath, "seed", "", "YAML file with watched configurations to upsert at startup")
	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads settings through getenv and applies flags.
func Load(getenv func(string) string, flags Flags) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		BotToken:        r.str("BOT_TOKEN", ""),
		ChannelTitle:    r.str("TRENDING_TITLE", "TON Trending"),
		BookTrendingURL: r.str("BOOK_TRENDING_URL", ""),

		TonAPIBase:      strings.TrimRight(r.str("TONAPI_BASE", tonapi.DefaultBaseURL), "/"),
		TonAPIKey:       r.str("TONAPI_KEY", ""),
		DexScreenerBase: strings.TrimRight(r.str("DEXSCREENER_BASE", dexscreener.DefaultBaseURL), "/"),

		PollInterval:         r.seconds("POLL_INTERVAL_SECONDS", 1),
		LeaderboardInterval:  r.seconds("LEADERBOARD_INTERVAL_SECONDS", 10),
		LeaderboardWindow:    time.Duration(r.int64("LEADERBOARD_WINDOW_MINUTES", 15)) * time.Minute,
		LeaderboardMessageID: int(r.int64("LEADERBOARD_MESSAGE_ID", 0)),

		DatabaseURL:   r.str("DATABASE_URL", ""),
		ClickhouseDSN: r.str("CLICKHOUSE_DSN", ""),
		RedisAddr:     r.str("REDIS_ADDR", ""),
		RedisPassword: r.str("REDIS_PASSWORD", ""),
		RedisDB:       int(r.int64("REDIS_DB", 0)),

		LogLevel:    r.str("LOG_LEVEL", "info"),
		LogEncoding: r.str("LOG_ENCODING", "json"),
		AdminAddr:   r.str("ADMIN_ADDR", ":8080"),

		UseMemory: flags.UseMemory,
		SeedPath:  flags.SeedPath,
	}

	if id := r.str("TRENDING_CHANNEL_ID", ""); id != "" {
		dest, err := notify.ParseDestination(id)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("TRENDING_CHANNEL_ID: %w", err))
		}
		cfg.TrendingChannel = dest
	} else if name := r.str("TRENDING_CHANNEL_USERNAME", ""); name != "" {
		cfg.TrendingChannel = notify.Destination{Username: "@" + strings.TrimPrefix(name, "@")}
	}

	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if !c.UseMemory && c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required unless -use-memory is set"))
	}
	if c.PollInterval < time.Second {
		errs = append(errs, errors.New("POLL_INTERVAL_SECONDS must be >= 1"))
	}
	if c.LeaderboardInterval < time.Second {
		errs = append(errs, errors.New("LEADERBOARD_INTERVAL_SECONDS must be >= 1"))
	}
	if c.LeaderboardWindow <= 0 {
		errs = append(errs, errors.New("LEADERBOARD_WINDOW_MINUTES must be > 0"))
	}
	return errors.Join(errs...)
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int64(key string, def int64) int64 {
	raw := strings.TrimSpace(r.getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return v
}

func (r *reader) seconds(key string, def int64) time.Duration {
	return time.Duration(r.int64(key, def)) * time.Second
}

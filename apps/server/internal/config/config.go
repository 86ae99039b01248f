package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"baccarat-road/road"
)

const (
	StoreModeMemory   = "memory"
	StoreModeSQLite   = "sqlite"
	StoreModePostgres = "postgres"

	PrefsModeMemory = "memory"
	PrefsModeRedis  = "redis"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Prefs  PrefsConfig  `yaml:"prefs"`
	Road   RoadConfig   `yaml:"road"`
	Timer  TimerConfig  `yaml:"timer"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StoreConfig struct {
	Mode       string `yaml:"mode"`
	DSN        string `yaml:"dsn"`
	SQLitePath string `yaml:"sqlite_path"`
}

type PrefsConfig struct {
	Mode          string `yaml:"mode"`
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

type RoadConfig struct {
	MinColumns      int `yaml:"min_columns"`
	MinTrackColumns int `yaml:"min_track_columns"`
}

type TimerConfig struct {
	// Reminder is the pacing interval after which the timer flags a reminder.
	Reminder time.Duration `yaml:"reminder"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"*"},
		},
		Store: StoreConfig{
			Mode: StoreModeSQLite,
		},
		Prefs: PrefsConfig{
			Mode:      PrefsModeMemory,
			RedisURL:  "localhost:6379",
			KeyPrefix: "baccarat",
		},
		Road: RoadConfig{
			MinColumns:      road.DefaultMinColumns,
			MinTrackColumns: road.DefaultMinTrackColumns,
		},
		Timer: TimerConfig{
			Reminder: 45 * time.Second,
		},
	}
}

// Load reads .env, then the YAML file at path (optional), then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	if v := getEnv("ALLOWED_ORIGINS", ""); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	cfg.Store.Mode = normalizeStoreMode(getEnv("STORE_MODE", cfg.Store.Mode))
	cfg.Store.DSN = getEnv("DATABASE_URL", cfg.Store.DSN)
	cfg.Store.SQLitePath = getEnv("LOCAL_DATABASE_PATH", cfg.Store.SQLitePath)

	cfg.Prefs.Mode = strings.ToLower(getEnv("PREFS_MODE", cfg.Prefs.Mode))
	cfg.Prefs.RedisURL = getEnv("REDIS_URL", cfg.Prefs.RedisURL)
	cfg.Prefs.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Prefs.RedisPassword)
	cfg.Prefs.RedisDB = getEnvInt("REDIS_DB", cfg.Prefs.RedisDB)

	cfg.Road.MinColumns = getEnvInt("ROAD_MIN_COLUMNS", cfg.Road.MinColumns)
	cfg.Road.MinTrackColumns = getEnvInt("ROAD_MIN_TRACK_COLUMNS", cfg.Road.MinTrackColumns)

	if v := getEnv("TIMER_REMINDER", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timer.Reminder = d
		}
	}
}

func (c *Config) Validate() error {
	switch c.Store.Mode {
	case StoreModeMemory, StoreModeSQLite, StoreModePostgres:
	default:
		return fmt.Errorf("invalid store mode %q (supported: %s, %s, %s)",
			c.Store.Mode, StoreModeMemory, StoreModeSQLite, StoreModePostgres)
	}
	switch c.Prefs.Mode {
	case PrefsModeMemory, PrefsModeRedis:
	default:
		return fmt.Errorf("invalid prefs mode %q (supported: %s, %s)", c.Prefs.Mode, PrefsModeMemory, PrefsModeRedis)
	}
	if c.Timer.Reminder < 0 {
		return fmt.Errorf("timer reminder must be >= 0")
	}
	if _, err := road.NewEngine(c.EngineConfig()); err != nil {
		return fmt.Errorf("invalid road config: %w", err)
	}
	return nil
}

func (c *Config) EngineConfig() road.Config {
	return road.Config{
		MinColumns:      c.Road.MinColumns,
		MinTrackColumns: c.Road.MinTrackColumns,
	}
}

func normalizeStoreMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "local", StoreModeSQLite:
		return StoreModeSQLite
	case "db", "postgresql", StoreModePostgres:
		return StoreModePostgres
	case "mem", StoreModeMemory:
		return StoreModeMemory
	default:
		return strings.ToLower(strings.TrimSpace(raw))
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

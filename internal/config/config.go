// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kmein/menstruation-telegram/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token        string  `yaml:"token"`
	Workers      int     `yaml:"workers"` // update + delivery workers
	ModeratorIDs []int64 `yaml:"moderator_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MensaConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	MenuTTL      time.Duration `yaml:"menu_ttl"`
	TablesTTL    time.Duration `yaml:"tables_ttl"`
	Retries      int           `yaml:"retries"`        // attempts per delivery
	RatePerSec   float64       `yaml:"rate_per_sec"`   // shared upstream limit
	RateBurst    int           `yaml:"rate_burst"`
}

type SchedulerConfig struct {
	DefaultTime string `yaml:"default_time"` // "HH:MM"
	Timezone    string `yaml:"timezone"`     // IANA TZ, e.g. "Europe/Berlin"
}

type AdminConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	Mensa     MensaConfig     `yaml:"mensa"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminConfig     `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file, applies MENSTRUATION_* environment
// overrides, fills defaults and validates. A missing file is fine when the
// environment provides everything (container deployments).
func LoadConfig(path string, dev bool) (*Config, error) {
	// Local .env for development; absence is not an error.
	_ = godotenv.Load()

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// env-only configuration
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Mensa.Endpoint == "" {
		cfg.Mensa.Endpoint = "http://127.0.0.1:80"
	}
	if cfg.Mensa.Timeout <= 0 {
		cfg.Mensa.Timeout = 10 * time.Second
	}
	if cfg.Mensa.MenuTTL <= 0 {
		cfg.Mensa.MenuTTL = 450 * time.Second
	}
	if cfg.Mensa.TablesTTL <= 0 {
		cfg.Mensa.TablesTTL = time.Hour
	}
	if cfg.Mensa.Retries <= 0 {
		cfg.Mensa.Retries = 5
	}
	if cfg.Mensa.RatePerSec <= 0 {
		cfg.Mensa.RatePerSec = 5
	}
	if cfg.Mensa.RateBurst <= 0 {
		cfg.Mensa.RateBurst = 10
	}
	if cfg.Scheduler.DefaultTime == "" {
		cfg.Scheduler.DefaultTime = "09:00"
	}
	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = "Europe/Berlin"
	}

	// Minimal validation
	if _, _, err := model.ParseTime(cfg.Scheduler.DefaultTime); err != nil {
		return nil, fmt.Errorf("scheduler.default_time %q: %w", cfg.Scheduler.DefaultTime, err)
	}
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("bot.token is required (or MENSTRUATION_TOKEN)")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv layers the original deployment's environment variables over the
// file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("MENSTRUATION_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}
	if v := os.Getenv("MENSTRUATION_ENDPOINT"); v != "" {
		cfg.Mensa.Endpoint = v
	}
	if v := os.Getenv("MENSTRUATION_REDIS"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("MENSTRUATION_MODERATORS"); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err == nil {
				ids = append(ids, id)
			}
		}
		cfg.Bot.ModeratorIDs = ids
	}
	if v := os.Getenv("MENSTRUATION_TIME"); v != "" {
		cfg.Scheduler.DefaultTime = v
	}
	if _, ok := os.LookupEnv("MENSTRUATION_DEBUG"); ok {
		cfg.Log.Level = "debug"
	}
}

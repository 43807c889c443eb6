package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	Env            string
	LogLevel       string
	JWTSecret      string
	DatabaseURL    string
	MaxScore       int
	TickRate       int
	AllowedOrigins []string
}

// Load reads an optional .env file and then the process environment.
// A missing .env is not an error; malformed values are.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Addr:        orDefault(getenv("ADDR"), ":8080"),
		Env:         orDefault(getenv("ENV"), "development"),
		LogLevel:    orDefault(getenv("LOG_LEVEL"), "info"),
		JWTSecret:   getenv("JWT_SECRET"),
		DatabaseURL: getenv("DATABASE_URL"),
	}

	var err error
	if cfg.MaxScore, err = positiveInt(getenv, "MAX_SCORE", 5); err != nil {
		return Config{}, err
	}
	if cfg.TickRate, err = positiveInt(getenv, "TICK_RATE", 60); err != nil {
		return Config{}, err
	}

	for _, o := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET must be set")
	}
	return cfg, nil
}

func (c Config) Production() bool { return c.Env == "production" }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func positiveInt(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

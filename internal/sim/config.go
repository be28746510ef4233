// Package sim seeds a synthetic transfer market through the public API and
// keeps it moving with periodic transfer rounds.
package sim

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	APIBaseURL   string
	APIKey       string
	Clubs        int
	SquadSize    int
	Interval     time.Duration
	HTTPTimeout  time.Duration
	AskQuestions bool
	Seed         int64
}

func DefaultConfig() Config {
	return Config{
		APIBaseURL:   "http://localhost:8080",
		APIKey:       "",
		Clubs:        6,
		SquadSize:    8,
		Interval:     2 * time.Second,
		HTTPTimeout:  10 * time.Second,
		AskQuestions: false,
		Seed:         time.Now().UTC().UnixNano(),
	}
}

func LoadConfigFromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := DefaultConfig()
	if err := applyString(lookup, "MERCATO_SIM_API_URL", &cfg.APIBaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "MERCATO_SIM_API_KEY", &cfg.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "MERCATO_SIM_CLUBS", &cfg.Clubs); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "MERCATO_SIM_SQUAD_SIZE", &cfg.SquadSize); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "MERCATO_SIM_INTERVAL", &cfg.Interval); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "MERCATO_SIM_HTTP_TIMEOUT", &cfg.HTTPTimeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "MERCATO_SIM_ASK_QUESTIONS", &cfg.AskQuestions); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "MERCATO_SIM_SEED", &cfg.Seed); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return Config{}, fmt.Errorf("MERCATO_SIM_API_URL is required")
	}
	if cfg.Clubs < 2 {
		return Config{}, fmt.Errorf("MERCATO_SIM_CLUBS must be >= 2")
	}
	if cfg.SquadSize <= 0 {
		return Config{}, fmt.Errorf("MERCATO_SIM_SQUAD_SIZE must be > 0")
	}
	if cfg.Interval <= 0 {
		return Config{}, fmt.Errorf("MERCATO_SIM_INTERVAL must be > 0")
	}
	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("MERCATO_SIM_HTTP_TIMEOUT must be > 0")
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg, nil
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

package cliparse

import (
	"errors"
	"flag"
	"os"
	"strconv"
)

type Config struct {
	Port      int
	StoreURL  string
	StoreType string
}

// ParseFlags validates flags and sets the listen port and store settings
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("specvote", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.StoreURL, "s", "", "Store URL (redis:// or postgres://)")
	fs.StringVar(&cfg.StoreType, "t", "", "Store type (redis or postgres)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3419 // default
		}
	}
	if cfg.StoreURL == "" {
		cfg.StoreURL = os.Getenv("STORE_URL")
	}
	if cfg.StoreURL == "" {
		return Config{}, errors.New("store URL required (use -s or STORE_URL env)")
	}

	if cfg.StoreType == "" {
		cfg.StoreType = os.Getenv("STORE_TYPE")
		if cfg.StoreType == "" {
			cfg.StoreType = "redis"
		}
	}
	if cfg.StoreType != "redis" && cfg.StoreType != "postgres" {
		return Config{}, errors.New("store type must be redis or postgres")
	}

	return cfg, nil
}

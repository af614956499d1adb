package cliparse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const DefaultPort = 3318

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	IPHashSalt   string
	CORSOrigins  []string

	// Password for the super_admin created on an empty database
	BootstrapAdminPassword string
}

// LoadDotEnv loads variables from .env files into the environment.
// Variables already set are not overridden and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// BindDatabaseFlags registers the database flags on fs
func BindDatabaseFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.DatabaseURL, "database-url", "d", "", "Database URL or SQLite file path")
	fs.StringVarP(&cfg.DatabaseType, "database-type", "t", "", "Database type (sqlite or postgres)")
}

// BindFlags registers every server flag on fs
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	// Network config (can be CLI args or env)
	fs.IntVarP(&cfg.Port, "port", "p", 0, "Server port")
	BindDatabaseFlags(fs, cfg)
	fs.StringSliceVar(&cfg.CORSOrigins, "cors-origins", nil, "Allowed CORS origins (comma separated)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.IPHashSalt, "ip-salt", "", "Salt for hashing client IPs in the audit log (prefer env)")
	fs.StringVar(&cfg.BootstrapAdminPassword, "bootstrap-admin-password", "", "Password for the first super_admin (prefer env)")
}

// ResolveDatabase fills database settings from the environment and
// validates them
func (cfg *Config) ResolveDatabase() error {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	switch cfg.DatabaseType {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}
	return nil
}

// Resolve fills every unset value from the environment and validates
func (cfg *Config) Resolve() error {
	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}

	if err := cfg.ResolveDatabase(); err != nil {
		return err
	}

	if len(cfg.CORSOrigins) == 0 {
		for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if cfg.BootstrapAdminPassword == "" {
		cfg.BootstrapAdminPassword = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	}

	// Secrets - MUST be provided
	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	}
	if cfg.IPHashSalt == "" {
		return errors.New("IP_HASH_SALT required")
	}

	return nil
}

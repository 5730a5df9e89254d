// Package config resolves the environment/flag surface the outer CLI
// consumes: DATABASE_URL, DATABASE_API_KEY, MIGRATION_DIR, plus a lease
// toggle. Precedence is explicit flag > environment variable > default.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultDatabaseURL  = "http://localhost:6334"
	defaultMigrationDir = "./"
)

// Config is the resolved set of values the CLI needs to wire a backend
// and locate migration source files.
type Config struct {
	DatabaseURL  string
	DatabaseKey  string
	MigrationDir string
	UseLease     bool
}

// Load builds viper bindings for the vectorctl environment surface and
// returns the resolved Config from environment and defaults only. Callers
// overlay explicitly-set flags afterwards with ApplyFlags.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VECTORCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// DATABASE_URL/DATABASE_API_KEY are consumed without the VECTORCTL_
	// prefix, since they name a connection any tool in the stack shares.
	_ = v.BindEnv("database-url", "DATABASE_URL")
	_ = v.BindEnv("database-api-key", "DATABASE_API_KEY")
	_ = v.BindEnv("migration-dir", "MIGRATION_DIR")
	_ = v.BindEnv("lease", "VECTORCTL_LEASE")

	v.SetDefault("database-url", defaultDatabaseURL)
	v.SetDefault("database-api-key", "")
	v.SetDefault("migration-dir", defaultMigrationDir)
	v.SetDefault("lease", true)

	return &Config{
		DatabaseURL:  v.GetString("database-url"),
		DatabaseKey:  v.GetString("database-api-key"),
		MigrationDir: v.GetString("migration-dir"),
		UseLease:     v.GetBool("lease"),
	}, nil
}

// ApplyFlags overlays explicitly-set cobra/pflag flags on top of a
// loaded Config, giving the precedence order flag > env > default.
// Flags the user never passed are left untouched, so env/default
// values underneath still apply.
func (c *Config) ApplyFlags(flags *pflag.FlagSet) {
	if flags == nil {
		return
	}
	if flags.Changed("database-url") {
		c.DatabaseURL, _ = flags.GetString("database-url")
	}
	if flags.Changed("database-api-key") {
		c.DatabaseKey, _ = flags.GetString("database-api-key")
	}
	if flags.Changed("migration-dir") {
		c.MigrationDir, _ = flags.GetString("migration-dir")
	}
	if flags.Changed("lease") {
		c.UseLease, _ = flags.GetBool("lease")
	}
}

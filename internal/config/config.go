// Package config loads gymdesk settings from defaults, an optional YAML
// file, .env files and GYMDESK_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. GYMDESK_HTTP_ADDR.
const EnvPrefix = "GYMDESK"

// Config is the full service configuration.
type Config struct {
	App struct {
		Env      string `mapstructure:"env"`
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr          string `mapstructure:"addr"`
		SlowRequestMs int    `mapstructure:"slow_request_ms"`
	} `mapstructure:"http"`

	DB struct {
		Path        string `mapstructure:"path"`
		SlowQueryMs int    `mapstructure:"slow_query_ms"`
	} `mapstructure:"db"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`

	Security struct {
		CSRFKey        string        `mapstructure:"csrf_key"`
		SessionTTL     time.Duration `mapstructure:"session_ttl"`
		TrustedOrigins []string      `mapstructure:"trusted_origins"`
	} `mapstructure:"security"`

	Email struct {
		ResendKey string `mapstructure:"resend_key"`
		From      string `mapstructure:"from"`
		ReplyTo   string `mapstructure:"reply_to"`
	} `mapstructure:"email"`

	Admin struct {
		Email    string `mapstructure:"email"`
		Password string `mapstructure:"password"`
	} `mapstructure:"admin"`

	Attendance struct {
		RequireActiveMembership bool `mapstructure:"require_active_membership"`
	} `mapstructure:"attendance"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.slow_request_ms", 200)
	v.SetDefault("db.path", "gymdesk.db")
	v.SetDefault("db.slow_query_ms", 50)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("security.csrf_key", "")
	v.SetDefault("security.session_ttl", 24*time.Hour)
	v.SetDefault("security.trusted_origins", []string{"localhost:8080", "127.0.0.1:8080"})
	v.SetDefault("email.resend_key", "")
	v.SetDefault("email.from", "gymdesk <noreply@gymdesk.local>")
	v.SetDefault("email.reply_to", "")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("attendance.require_active_membership", false)
}

// Load reads configuration. path names a YAML file and may be empty, in
// which case GYMDESK_CONFIG is consulted. dotenvFiles are loaded into the
// process environment first; missing files are skipped.
// POST: returned Config has passed Validate
func Load(path string, dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks cross-field constraints viper cannot express.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q: %w", c.App.Timezone, err)
	}
	if c.Security.CSRFKey != "" && len(c.Security.CSRFKey) != 64 {
		return errors.New("security.csrf_key must be 64 hex characters")
	}
	if c.Security.SessionTTL <= 0 {
		return errors.New("security.session_ttl must be positive")
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return errors.New("admin.email and admin.password must be set together")
	}
	return nil
}

// Location returns the facility timezone used for "today".
// PRE: Validate passed
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether app.env is "production".
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

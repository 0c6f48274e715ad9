package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	DBTypeMemory   = "memory"
	DBTypeMongo    = "mongo"
	DBTypePostgres = "postgres"

	defaultMongoHost    = "localhost:27017"
	defaultPostgresHost = "localhost:5432"
)

type Config struct {
	Env  string `mapstructure:"ASOCIAL_ENV"`
	Port string `mapstructure:"PORT"`

	Database DBConfig     `mapstructure:",squash"`
	Social   SocialConfig `mapstructure:",squash"`
	HTTP     HTTPConfig   `mapstructure:",squash"`
}

type DBConfig struct {
	Type   string `mapstructure:"DB_TYPE"`   // "memory", "mongo", "postgres"
	User   string `mapstructure:"DB_USER"`   // composed into the connection string
	Pass   string `mapstructure:"DB_PASS"`   // composed into the connection string
	Host   string `mapstructure:"DB_HOST"`   // host:port or SRV cluster host
	Scheme string `mapstructure:"DB_SCHEME"` // "mongodb" or "mongodb+srv"
	Name   string `mapstructure:"DB_NAME"`
	DSN    string `mapstructure:"DB_DSN"` // overrides composition when set
}

type SocialConfig struct {
	PostDeleteCascade bool `mapstructure:"POST_DELETE_CASCADE"`
}

type HTTPConfig struct {
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("backend", ".env"),
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ASOCIAL_ENV", "dev")
	v.SetDefault("PORT", "5000")
	v.SetDefault("DB_TYPE", DBTypeMemory)
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASS", "")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_SCHEME", "mongodb")
	v.SetDefault("DB_NAME", "aSocial")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("POST_DELETE_CASCADE", true)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	// Handle array parsing for comma-separated values
	if origins := v.GetString("CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.Port = strings.TrimSpace(c.Port)
	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	if c.Database.Type == "mongodb" {
		c.Database.Type = DBTypeMongo
	}
	c.Database.Host = strings.TrimSpace(c.Database.Host)
	if c.Database.Host == "" {
		c.Database.Host = defaultMongoHost
		if c.Database.Type == DBTypePostgres {
			c.Database.Host = defaultPostgresHost
		}
	}
}

func (c *Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}

	switch c.Database.Type {
	case DBTypeMemory:
	case DBTypeMongo, DBTypePostgres:
		if c.Database.DSN == "" && (c.Database.User == "" || c.Database.Pass == "") {
			return fmt.Errorf("DB_TYPE %s requires DB_DSN or DB_USER and DB_PASS", c.Database.Type)
		}
	default:
		return fmt.Errorf("invalid DB_TYPE %q (must be memory, mongo, or postgres)", c.Database.Type)
	}

	switch c.Database.Scheme {
	case "mongodb", "mongodb+srv":
	default:
		return fmt.Errorf("invalid DB_SCHEME %q (must be mongodb or mongodb+srv)", c.Database.Scheme)
	}

	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// HTTPAddr is the listen address for the API server
func (c *Config) HTTPAddr() string {
	return ":" + c.Port
}

// ConnectionString returns DB_DSN when set, otherwise composes one from the
// credential variables. Credentials are escaped.
func (d DBConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}

	switch d.Type {
	case DBTypeMongo:
		u := url.URL{
			Scheme:   d.Scheme,
			User:     url.UserPassword(d.User, d.Pass),
			Host:     d.Host,
			Path:     "/",
			RawQuery: "retryWrites=true&w=majority",
		}
		return u.String()
	case DBTypePostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Pass),
			Host:   d.Host,
			Path:   "/" + d.Name,
		}
		return u.String()
	}
	return ""
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/Tally/internal/utils"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	Server struct {
		Addr       string `yaml:"addr"`
		PublicURL  string `yaml:"public_url"`
		CORSOrigin string `yaml:"cors_origin"`
	} `yaml:"server"`
	Storage struct {
		Driver        string `yaml:"driver"`
		SQLitePath    string `yaml:"sqlite_path"`
		DatabaseURL   string `yaml:"database_url"`
		MigrationsDir string `yaml:"migrations_dir"`
	} `yaml:"storage"`
	Auth struct {
		JWTSecret    string `yaml:"jwt_secret"`
		AdminKeyHash string `yaml:"admin_key_hash"`
		EmailDomain  string `yaml:"email_domain"`
	} `yaml:"auth"`
	Export struct {
		PDFFont string `yaml:"pdf_font"`
	} `yaml:"export"`
}

func defaults() *Config {
	c := &Config{}
	c.Server.Addr = ":8080"
	c.Storage.Driver = StorageMemory
	c.Storage.SQLitePath = "data/tally.db"
	return c
}

// Load reads the optional YAML file at path, then .env, then TALLY_* environment
// variables; later sources win. An empty path falls back to TALLY_CONFIG.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		path = os.Getenv("TALLY_CONFIG")
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Server.Addr = utils.SafeEnv("TALLY_ADDR", c.Server.Addr)
	c.Server.PublicURL = utils.SafeEnv("TALLY_PUBLIC_URL", c.Server.PublicURL)
	c.Server.CORSOrigin = utils.SafeEnv("TALLY_CORS_ORIGIN", c.Server.CORSOrigin)
	c.Storage.Driver = strings.ToLower(utils.SafeEnv("TALLY_STORAGE", c.Storage.Driver))
	c.Storage.SQLitePath = utils.SafeEnv("TALLY_SQLITE_PATH", c.Storage.SQLitePath)
	c.Storage.DatabaseURL = utils.SafeEnv("TALLY_DATABASE_URL", c.Storage.DatabaseURL)
	c.Storage.MigrationsDir = utils.SafeEnv("TALLY_MIGRATIONS_DIR", c.Storage.MigrationsDir)
	c.Auth.JWTSecret = utils.SafeEnv("TALLY_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AdminKeyHash = utils.SafeEnv("TALLY_ADMIN_KEY_HASH", c.Auth.AdminKeyHash)
	c.Auth.EmailDomain = utils.SafeEnv("TALLY_EMAIL_DOMAIN", c.Auth.EmailDomain)
	c.Export.PDFFont = utils.SafeEnv("TALLY_PDF_FONT", c.Export.PDFFont)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return errors.New("config: sqlite storage needs TALLY_SQLITE_PATH")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.DatabaseURL) == "" {
			return errors.New("config: postgres storage needs TALLY_DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Server.Addr == "" {
		return errors.New("config: empty listen address")
	}
	return nil
}

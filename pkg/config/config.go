package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the mirrorpress engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables override YAML values. Secrets
// (database password) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Content is the versioned file store configuration.
	Content ContentConfig `yaml:"content"`

	// Git configures the version-control backend.
	Git GitConfig `yaml:"git"`

	// Database configures the relational mirror (PostgreSQL).
	Database DatabaseConfig `yaml:"database"`
}

// ContentConfig locates the file-backed entity store.
type ContentConfig struct {
	// Dir is the root of the versioned content tree (also the git
	// working tree unless Git.WorkDir overrides it).
	Dir string `yaml:"dir" env:"CONTENT_DIR" env-default:"./content"`

	// SchemaPath is the entity schema registry file.
	SchemaPath string `yaml:"schema_path" env:"CONTENT_SCHEMA_PATH" env-default:"./schema.yaml"`
}

// GitConfig holds version-control backend settings.
type GitConfig struct {
	// WorkDir is the git working tree. Defaults to Content.Dir.
	WorkDir string `yaml:"work_dir" env:"GIT_WORK_DIR" env-default:""`

	// Binary is the git executable. Defaults to "git" on PATH.
	Binary string `yaml:"binary" env:"GIT_BINARY" env-default:""`
}

// DatabaseConfig holds PostgreSQL mirror configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"mirrorpress"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"mirrorpress"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// URL renders the pgx connection string.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; environment
// variables and defaults apply alone.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	err := cleanenv.ReadConfig("config.yaml", cfg)
	if errors.Is(err, fs.ErrNotExist) {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.validatePaths(); err != nil {
		return nil, err
	}
	if cfg.Git.WorkDir == "" {
		cfg.Git.WorkDir = cfg.Content.Dir
	}
	return cfg, nil
}

func (c *Config) validatePaths() error {
	if _, err := os.Stat(c.Content.SchemaPath); err != nil {
		return fmt.Errorf("schema file %s: %w", c.Content.SchemaPath, err)
	}
	if info, err := os.Stat(c.Content.Dir); err != nil || !info.IsDir() {
		return fmt.Errorf("content dir %s is not a directory", c.Content.Dir)
	}
	c.Content.Dir = filepath.Clean(c.Content.Dir)
	return nil
}

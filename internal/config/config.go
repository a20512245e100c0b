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
)

const defaultConfigFile = "config.yaml"

// SMTPConfig configures outgoing mail for password resets.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Enabled reports whether enough is set to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// VAPIDConfig holds web push keys.
type VAPIDConfig struct {
	Subject    string `yaml:"subject"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
}

func (c VAPIDConfig) Enabled() bool {
	return c.Subject != "" && c.PublicKey != "" && c.PrivateKey != ""
}

// Config keeps runtime settings for the bot and the HTTP API.
type Config struct {
	TelegramToken string        `yaml:"telegram_token"`
	DatabaseURL   string        `yaml:"database_url"`
	HTTPAddr      string        `yaml:"http_addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
	Timezone      string        `yaml:"timezone"`
	DigestTime    string        `yaml:"digest_time"`
	SMTP          SMTPConfig    `yaml:"smtp"`
	VAPID         VAPIDConfig   `yaml:"vapid"`
}

// Load reads configuration from an optional YAML file and environment variables with sane defaults.
// The file is CONFIG_FILE (default config.yaml); ${VAR} placeholders inside it are expanded
// from the environment. Environment variables win over file values.
func Load() (Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	var cfg Config
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		path = defaultConfigFile
	}
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	expandNode(&root)
	if root.Kind == 0 {
		return nil
	}
	if err := root.Decode(cfg); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	return nil
}

// expandNode replaces ${NAME} placeholders inside scalar values with environment values.
// Unknown names expand to empty. Plain scalars are re-typed after expansion so
// "port: ${SMTP_PORT}" still decodes into an int.
func expandNode(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		if !strings.Contains(n.Value, "$") {
			return
		}
		n.Value = os.Expand(n.Value, os.Getenv)
		if n.Style == 0 {
			n.Tag = ""
		}
		return
	}
	for _, child := range n.Content {
		expandNode(child)
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.Timezone, "TZ_NAME")
	setString(&cfg.DigestTime, "DIGEST_TIME")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.User, "SMTP_USER")
	setString(&cfg.SMTP.Password, "SMTP_PASSWORD")
	setString(&cfg.SMTP.From, "SMTP_FROM")
	setString(&cfg.VAPID.Subject, "VAPID_SUBJECT")
	setString(&cfg.VAPID.PublicKey, "VAPID_PUBLIC_KEY")
	setString(&cfg.VAPID.PrivateKey, "VAPID_PRIVATE_KEY")

	if port, err := strconv.Atoi(strings.TrimSpace(os.Getenv("SMTP_PORT"))); err == nil && port > 0 {
		cfg.SMTP.Port = port
	}
	if ttl := parseMinutes(strings.TrimSpace(os.Getenv("TOKEN_TTL_MINUTES"))); ttl > 0 {
		cfg.TokenTTL = ttl
	}
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "data/tudinho.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	if c.DigestTime != "" {
		if _, err := time.Parse("15:04", c.DigestTime); err != nil {
			return fmt.Errorf("invalid DIGEST_TIME %q, expected HH:MM", c.DigestTime)
		}
	}
	return nil
}

// Location returns the configured timezone, or time.Local.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseMinutes(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	minutes, err := time.ParseDuration(raw + "m")
	if err != nil || minutes <= 0 {
		return 0
	}
	return minutes
}

// Package config loads the application configuration from environment variables.
//
// Every setting has a default so the blog starts with zero configuration
// against a local SQLite file. Load takes a getenv function instead of calling
// os.Getenv directly, which lets tests feed a map without touching the process
// environment.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPort        = 5002
	DefaultDatabaseURI = "sqlite:///data/posts.db"
	DefaultSessionTTL  = 7 * 24 * time.Hour
	DefaultMailPort    = 587
	DefaultMailTimeout = 10 * time.Second
)

// Config is the fully resolved configuration.
type Config struct {
	Port        int
	SecretKey   string
	DatabaseURI string
	AdminIDs    []int64
	SessionTTL  time.Duration
	LogLevel    slog.Level

	// GeneratedSecret is true when no secret was configured and a random one
	// was created for this process. Sessions will not survive a restart.
	GeneratedSecret bool

	Mail   Mail
	GitHub GitHub
}

// Mail holds the outbound SMTP account.
type Mail struct {
	Address  string // account used to authenticate and as the From address
	Password string
	Host     string
	Port     int
	To       string // operator address that receives contact messages
	Timeout  time.Duration
}

// Enabled reports whether enough is configured to attempt delivery.
func (m Mail) Enabled() bool {
	return m.Host != "" && m.Address != ""
}

// GitHub holds the optional OAuth application credentials.
type GitHub struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Enabled reports whether GitHub sign-in should be offered.
func (g GitHub) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load resolves the configuration from getenv (usually os.Getenv).
func Load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:        DefaultPort,
		DatabaseURI: DefaultDatabaseURI,
		AdminIDs:    []int64{1},
		SessionTTL:  DefaultSessionTTL,
		LogLevel:    slog.LevelInfo,
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("config: invalid PORT %q", v)
		}
		cfg.Port = port
	}

	cfg.SecretKey = firstNonEmpty(getenv("SECRET_KEY"), getenv("FLASK_KEY"))
	if cfg.SecretKey == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("config: generating secret: %w", err)
		}
		cfg.SecretKey = secret
		cfg.GeneratedSecret = true
	} else if len(cfg.SecretKey) < 16 {
		return Config{}, fmt.Errorf("config: SECRET_KEY must be at least 16 characters")
	}

	if v := getenv("DB_URI"); v != "" {
		cfg.DatabaseURI = v
	}

	if v := getenv("ADMIN_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: invalid ADMIN_IDS: %w", err)
		}
		cfg.AdminIDs = ids
	}

	if v := getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("config: invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = d
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("config: invalid LOG_LEVEL %q", v)
		}
	}

	mail, err := loadMail(getenv)
	if err != nil {
		return Config{}, err
	}
	cfg.Mail = mail

	cfg.GitHub = GitHub{
		ClientID:     getenv("GITHUB_CLIENT_ID"),
		ClientSecret: getenv("GITHUB_CLIENT_SECRET"),
		CallbackURL:  getenv("GITHUB_CALLBACK_URL"),
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}

func loadMail(getenv func(string) string) (Mail, error) {
	m := Mail{
		Address:  getenv("MY_MAIL"),
		Password: getenv("MY_MAIL_PASSWORD"),
		Host:     getenv("MY_MAIL_SMTP"),
		Port:     DefaultMailPort,
		To:       getenv("MAIL_TO"),
		Timeout:  DefaultMailTimeout,
	}
	if m.To == "" {
		m.To = m.Address
	}

	if v := getenv("MAIL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Mail{}, fmt.Errorf("config: invalid MAIL_PORT %q", v)
		}
		m.Port = port
	}

	if v := getenv("MAIL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Mail{}, fmt.Errorf("config: invalid MAIL_TIMEOUT %q", v)
		}
		m.Timeout = d
	}

	return m, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%q is not a positive integer", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids given")
	}
	return ids, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	ListenAddr string

	WSOriginPatterns []string
	WSReadLimit      int64
	WSSendBuffer     int
	WSPingInterval   time.Duration

	MessagesDir string

	RedisURL         string
	DatabaseURL      string
	ResultWebhookURL string

	ArchiveTTL          time.Duration
	ArchiveBuffer       int
	ArchiveHistoryLimit int
}

// Load reads an optional .env file and then the process environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from the environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:          ":5555",
		WSOriginPatterns:    []string{"*"},
		WSReadLimit:         4096,
		WSSendBuffer:        64,
		WSPingInterval:      30 * time.Second,
		ArchiveTTL:          24 * time.Hour,
		ArchiveBuffer:       256,
		ArchiveHistoryLimit: 20,
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < 65536 {
			cfg.ListenAddr = ":" + strconv.Itoa(n)
		}
	}
	if v, ok := os.LookupEnv("LISTEN_ADDR"); ok {
		cfg.ListenAddr = strings.TrimSpace(v)
	}

	if v := strings.TrimSpace(os.Getenv("WS_ORIGIN_PATTERNS")); v != "" {
		cfg.WSOriginPatterns = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("WS_READ_LIMIT")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.WSReadLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_SEND_BUFFER")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSSendBuffer = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_PING_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSPingInterval = time.Duration(n) * time.Second
		}
	}

	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.ResultWebhookURL = strings.TrimSpace(os.Getenv("RESULT_WEBHOOK_URL"))

	if v := strings.TrimSpace(os.Getenv("ARCHIVE_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArchiveTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_BUFFER")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArchiveBuffer = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ARCHIVE_HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ArchiveHistoryLimit = n
		}
	}

	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR must not be empty")
	}
	if cfg.RedisURL != "" {
		if _, _, _, err := ParseRedisURL(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
	}
	return cfg, nil
}

// ParseRedisURL returns address, password, and db extracted from a redis:// URL.
func ParseRedisURL(raw string) (addr, password string, db int, err error) {
	u, e := url.Parse(strings.TrimSpace(raw))
	if e != nil {
		err = e
		return
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		err = fmt.Errorf("unsupported scheme: %s", u.Scheme)
		return
	}
	if u.Host == "" {
		err = errors.New("missing host")
		return
	}
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, e2 := strconv.Atoi(p); e2 == nil {
			db = n
		}
	}
	password, _ = u.User.Password()
	addr = u.Host
	return
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

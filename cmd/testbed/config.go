package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"fault-testbed/middleware/session/domain"

	"gopkg.in/yaml.v3"
)

type config struct {
	ListenAddr string `yaml:"listen_addr"`

	PerSessionBytes  int           `yaml:"per_session_bytes"`
	MaxSessions      int           `yaml:"max_sessions"`
	SessionTTLS      float64       `yaml:"session_ttl_s"`
	AppQueueTimeoutS float64       `yaml:"app_queue_timeout_s"`
	StickyOnTimeoutS float64       `yaml:"sticky_on_timeout_s"`
	MetricsWindowS   float64       `yaml:"metrics_window_s"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`

	SessionHeader     string `yaml:"session_header"`
	AddSessionHeaders bool   `yaml:"add_session_headers"`

	VehicleURL        string        `yaml:"vehicle_url"`
	DownstreamTimeout time.Duration `yaml:"downstream_timeout"`

	LogPath      string  `yaml:"log_path"`
	LogAppendRPS float64 `yaml:"log_append_rps"`
	LogSync      bool    `yaml:"log_sync"`

	// OutcomeStats: "memory" (padrão), "redis" ou "none".
	OutcomeStats  string        `yaml:"outcome_stats"`
	TrackKeys     bool          `yaml:"track_keys"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
	RedisBucket   string        `yaml:"redis_bucket"`
}

func defaultConfig() config {
	return config{
		ListenAddr:        ":8080",
		PerSessionBytes:   10 << 20,
		MaxSessions:       50,
		SessionTTLS:       5,
		AppQueueTimeoutS:  60,
		StickyOnTimeoutS:  600,
		MetricsWindowS:    5,
		SweepInterval:     1 * time.Second,
		SessionHeader:     "X-Proxy-Session",
		DownstreamTimeout: 5 * time.Second,
		LogPath:           "logs/app.log",
		OutcomeStats:      "memory",
		RedisPrefix:       "testbed:outcomes",
		RedisTTL:          24 * time.Hour,
		RedisBucket:       "minute",
	}
}

// loadConfig aplica, em ordem: padrões, arquivo YAML (se informado) e variáveis de ambiente.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return config{}, fmt.Errorf("%w: parse config file: %w", domain.ErrInvalidConfig, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return config{}, err
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c *config) applyEnv() error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	c.ListenAddr = getenvDefault("LISTEN_ADDR", c.ListenAddr)
	collect(getenvInt("PER_SESSION_BYTES", &c.PerSessionBytes))
	collect(getenvInt("MAX_SESSIONS", &c.MaxSessions))
	collect(getenvFloat("SESSION_TTL_S", &c.SessionTTLS))
	collect(getenvFloat("APP_QUEUE_TIMEOUT_S", &c.AppQueueTimeoutS))
	collect(getenvFloat("STICKY_ON_TIMEOUT_S", &c.StickyOnTimeoutS))
	collect(getenvFloat("METRICS_WINDOW_S", &c.MetricsWindowS))
	collect(getenvDuration("SWEEP_INTERVAL", &c.SweepInterval))

	c.SessionHeader = getenvDefault("SESSION_HEADER", c.SessionHeader)
	collect(getenvBool("ADD_SESSION_HEADERS", &c.AddSessionHeaders))

	c.VehicleURL = getenvDefault("VEHICLE_URL", c.VehicleURL)
	collect(getenvDuration("DOWNSTREAM_TIMEOUT", &c.DownstreamTimeout))

	c.LogPath = getenvDefault("LOG_PATH", c.LogPath)
	collect(getenvFloat("LOG_APPEND_RPS", &c.LogAppendRPS))
	collect(getenvBool("LOG_SYNC", &c.LogSync))

	c.OutcomeStats = getenvDefault("OUTCOME_STATS", c.OutcomeStats)
	collect(getenvBool("OUTCOME_STATS_TRACK_KEYS", &c.TrackKeys))
	c.RedisAddr = getenvDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getenvDefault("REDIS_PASSWORD", c.RedisPassword)
	collect(getenvInt("REDIS_DB", &c.RedisDB))
	c.RedisPrefix = getenvDefault("REDIS_PREFIX", c.RedisPrefix)
	collect(getenvDuration("REDIS_TTL", &c.RedisTTL))
	c.RedisBucket = getenvDefault("REDIS_BUCKET", c.RedisBucket)

	return errors.Join(errs...)
}

func (c config) validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.ListenAddr) == "" {
		return invalid("listen_addr is required")
	}
	if c.PerSessionBytes < 0 {
		return invalid("per_session_bytes must be >= 0")
	}
	if c.MaxSessions <= 0 {
		return invalid("max_sessions must be > 0")
	}
	if c.SessionTTLS <= 0 {
		return invalid("session_ttl_s must be > 0")
	}
	if c.AppQueueTimeoutS < 0 {
		return invalid("app_queue_timeout_s must be >= 0")
	}
	if c.StickyOnTimeoutS < 0 {
		return invalid("sticky_on_timeout_s must be >= 0 (0 disables)")
	}
	if c.MetricsWindowS <= 0 {
		return invalid("metrics_window_s must be > 0")
	}
	if c.SweepInterval <= 0 {
		return invalid("sweep_interval must be > 0")
	}
	if c.DownstreamTimeout < 0 {
		return invalid("downstream_timeout must be >= 0")
	}
	if c.LogAppendRPS < 0 {
		return invalid("log_append_rps must be >= 0")
	}
	if c.VehicleURL != "" {
		u, err := url.Parse(c.VehicleURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid("vehicle_url %q is not an absolute URL", c.VehicleURL)
		}
	}
	switch c.OutcomeStats {
	case "memory", "none":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return invalid("redis_addr is required when outcome_stats=redis")
		}
	default:
		return invalid("outcome_stats must be memory, redis or none, got %q", c.OutcomeStats)
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c config) sessionTTL() time.Duration { return seconds(c.SessionTTLS) }

func (c config) admissionBudget() time.Duration { return seconds(c.AppQueueTimeoutS) }

func (c config) stickyWindow() time.Duration { return seconds(c.StickyOnTimeoutS) }

func (c config) metricsWindow() time.Duration { return seconds(c.MetricsWindowS) }

func getenvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, k, v)
	}
	*dst = i
	return nil
}

func getenvFloat(k string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", domain.ErrInvalidConfig, k, v)
	}
	*dst = f
	return nil
}

func getenvBool(k string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a boolean", domain.ErrInvalidConfig, k, v)
	}
	*dst = b
	return nil
}

func getenvDuration(k string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a duration", domain.ErrInvalidConfig, k, v)
	}
	*dst = d
	return nil
}

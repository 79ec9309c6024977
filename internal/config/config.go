// Package config loads service configuration from config/{ENV_NAME}.yaml
// with environment variable overrides. A .env file, if present, is folded
// into the environment before anything is read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	Environment string
	ServerPort  string

	VCAPIKey     string
	VCAPIURL     string
	VCAPITimeout time.Duration

	RequestTimeout time.Duration

	CacheTTL           time.Duration
	CacheMaxKeys       int
	CacheSweepInterval time.Duration

	ObjectCacheBackend  string // "memcached", "redis" or "none"
	ObjectCacheTTLHours int

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	BreakerMaxFailures  int
	BreakerMinSuccesses int
	BreakerCooldown     time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout time.Duration

	RegionConfigDir string
	MockDataDir     string

	WarmingEnabled  bool
	WarmingInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	VisualCrossing struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"visual_crossing"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		TTL           string `yaml:"ttl"`
		MaxKeys       int    `yaml:"max_keys"`
		SweepInterval string `yaml:"sweep_interval"`
	} `yaml:"cache"`

	ObjectCache struct {
		Backend  string `yaml:"backend"`
		TTLHours int    `yaml:"ttl_hours"`

		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`

		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"object_cache"`

	Reliability struct {
		RetryMaxAttempts    int    `yaml:"retry_max_attempts"`
		RetryBaseDelay      string `yaml:"retry_base_delay"`
		RetryMaxDelay       string `yaml:"retry_max_delay"`
		BreakerMaxFailures  int    `yaml:"breaker_max_failures"`
		BreakerMinSuccesses int    `yaml:"breaker_min_successes"`
		BreakerCooldown     string `yaml:"breaker_cooldown"`
		RateLimitRPS        int    `yaml:"rate_limit_rps"`
		RateLimitBurst      int    `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Regions struct {
		ConfigDir   string `yaml:"config_dir"`
		MockDataDir string `yaml:"mock_data_dir"`
	} `yaml:"regions"`

	Warming struct {
		Enabled  bool   `yaml:"enabled"`
		Interval string `yaml:"interval"`
	} `yaml:"warming"`
}

type secretsFile struct {
	VCAPIKey string `yaml:"vc_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), with
// env variables taking precedence. The Visual Crossing API key comes from
// VC_API_KEY env or config/secrets.yaml; it may be empty, in which case only
// the mock endpoints work. Call from project root.
func Load() (*Config, error) {
	// Best effort: local development keeps env vars in .env.
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{Environment: env}

	cfg.ServerPort = os.Getenv("PORT")
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.VCAPIKey = os.Getenv("VC_API_KEY")
	if cfg.VCAPIKey == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.VCAPIKey = sec.VCAPIKey
		}
	}

	cfg.VCAPIURL = os.Getenv("VC_API_URL")
	if cfg.VCAPIURL == "" {
		cfg.VCAPIURL = fc.VisualCrossing.URL
	}
	cfg.VCAPITimeout = envDuration("VC_API_TIMEOUT", parseDuration(fc.VisualCrossing.Timeout, 10*time.Second))

	cfg.RequestTimeout = envDuration("REQUEST_TIMEOUT", parseDuration(fc.Request.Timeout, 30*time.Second))

	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 3*time.Hour)
	if hours := envInt("CACHE_TTL_HOURS", 0); hours > 0 {
		cfg.CacheTTL = time.Duration(hours) * time.Hour
	}
	cfg.CacheMaxKeys = envInt("CACHE_MAX_KEYS", fc.Cache.MaxKeys)
	if cfg.CacheMaxKeys <= 0 {
		cfg.CacheMaxKeys = 1000
	}
	cfg.CacheSweepInterval = parseDuration(fc.Cache.SweepInterval, 10*time.Minute)

	cfg.ObjectCacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("OBJECT_CACHE_BACKEND")))
	if cfg.ObjectCacheBackend == "" {
		cfg.ObjectCacheBackend = strings.TrimSpace(strings.ToLower(fc.ObjectCache.Backend))
	}
	if cfg.ObjectCacheBackend == "" {
		cfg.ObjectCacheBackend = "none"
	}
	cfg.ObjectCacheTTLHours = fc.ObjectCache.TTLHours
	if cfg.ObjectCacheTTLHours <= 0 {
		cfg.ObjectCacheTTLHours = 6
	}

	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.ObjectCache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.ObjectCache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.ObjectCache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = strings.TrimSpace(fc.ObjectCache.Redis.Addr)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = fc.ObjectCache.Redis.Password
	}
	cfg.RedisDB = fc.ObjectCache.Redis.DB

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)

	cfg.BreakerMaxFailures = fc.Reliability.BreakerMaxFailures
	if cfg.BreakerMaxFailures <= 0 {
		cfg.BreakerMaxFailures = 5
	}
	cfg.BreakerMinSuccesses = fc.Reliability.BreakerMinSuccesses
	if cfg.BreakerMinSuccesses <= 0 {
		cfg.BreakerMinSuccesses = 2
	}
	cfg.BreakerCooldown = parseDuration(fc.Reliability.BreakerCooldown, 30*time.Second)

	cfg.RateLimitRPS = envInt("RATE_LIMIT_RPS", fc.Reliability.RateLimitRPS)
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", fc.Reliability.RateLimitBurst)
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", parseDuration(fc.Shutdown.Timeout, 30*time.Second))

	cfg.RegionConfigDir = fc.Regions.ConfigDir
	if cfg.RegionConfigDir == "" {
		cfg.RegionConfigDir = filepath.Join(cwd, "config")
	}
	cfg.MockDataDir = fc.Regions.MockDataDir
	if cfg.MockDataDir == "" {
		cfg.MockDataDir = filepath.Join(cwd, "mock_data")
	}

	cfg.WarmingEnabled = fc.Warming.Enabled
	cfg.WarmingInterval = parseDuration(fc.Warming.Interval, time.Hour)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envInt returns the named env var as an int, or fallback when unset or
// unparsable.
func envInt(name string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envDuration returns the named env var as a duration, or fallback when
// unset, unparsable, or non-positive.
func envDuration(name string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(name)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// parseDuration parses a duration string and returns defaultVal on empty
// string, parse error, or a non-positive result.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func validate(cfg *Config) error {
	if cfg.RequestTimeout <= cfg.VCAPITimeout {
		// Keep the request envelope wider than a single upstream attempt.
		cfg.RequestTimeout = cfg.VCAPITimeout + time.Second
	}
	switch cfg.ObjectCacheBackend {
	case "memcached", "redis", "none":
	default:
		return fmt.Errorf("object_cache.backend must be memcached, redis or none, got %q", cfg.ObjectCacheBackend)
	}
	return nil
}

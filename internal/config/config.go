// Package config loads the server's runtime configuration. It is an
// external collaborator to the core per spec.md §1: it only produces the
// plain option structs the cache/dedup/batch/pagination constructors
// accept, and never reaches into those packages itself.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ResourceTTL is one entry of the prefix -> TTL table, generalizing the
// teacher's resourceTtls map (cache-manager/service.go Config) into an
// ordered slice so longest-prefix-match is well defined regardless of map
// iteration order.
type ResourceTTL struct {
	Prefix string
	TTL    time.Duration
}

// CacheConfig configures internal/cache and the TTL-selection behavior of
// CachedResourceHandler.
type CacheConfig struct {
	MaxSize      int
	DefaultTTL   time.Duration
	ResourceTTLs []ResourceTTL
}

// DedupConfig configures internal/dedup.
type DedupConfig struct {
	Enabled bool
	TTL     time.Duration
}

// BatchConfig configures internal/batch.
type BatchConfig struct {
	MaxConcurrency int
	RetryAttempts  int
	RetryDelay     time.Duration
	OriginRPS      float64
}

// PaginationConfig configures internal/pagination / CachedResourceHandler.
type PaginationConfig struct {
	Optimization bool
	MaxListLimit int
}

// UpstreamConfig configures the REST client the raw handler uses. The
// client itself is out of scope for the core (spec.md §1); this struct is
// only the shape the core's dependents are constructed with.
type UpstreamConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Config is the fully resolved server configuration.
type Config struct {
	Cache      CacheConfig
	Dedup      DedupConfig
	Batch      BatchConfig
	Pagination PaginationConfig
	Upstream   UpstreamConfig
	LogLevel   string
}

// Default returns the conventional values named in spec.md §6.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			MaxSize:    100,
			DefaultTTL: 300 * time.Second,
			ResourceTTLs: []ResourceTTL{
				{Prefix: "vault://recent", TTL: 30 * time.Second},
				{Prefix: "vault://tags", TTL: 300 * time.Second},
				{Prefix: "vault://stats", TTL: 300 * time.Second},
				{Prefix: "vault://structure", TTL: 300 * time.Second},
				{Prefix: "vault://note/", TTL: 120 * time.Second},
			},
		},
		Dedup: DedupConfig{
			Enabled: true,
			TTL:     5 * time.Second,
		},
		Batch: BatchConfig{
			MaxConcurrency: 5,
			RetryAttempts:  3,
			RetryDelay:     500 * time.Millisecond,
		},
		Pagination: PaginationConfig{
			Optimization: true,
			MaxListLimit: 5000,
		},
		Upstream: UpstreamConfig{
			Timeout: 6 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from path (a YAML file) layered under
// environment variables prefixed OBSIDIAN_MCP_, layered over Default().
// path is optional: when it is empty, ./config.yaml is read if present
// and its absence is not an error; an explicit path that cannot be read
// is an error. The ResourceTTLs table and Batch.OriginRPS are always
// taken from Default().
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("OBSIDIAN_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	cfg.Cache.MaxSize = v.GetInt("cache.maxSize")
	cfg.Cache.DefaultTTL = v.GetDuration("cache.defaultTtl")
	cfg.Dedup.Enabled = v.GetBool("dedup.enabled")
	cfg.Dedup.TTL = v.GetDuration("dedup.ttl")
	cfg.Batch.MaxConcurrency = v.GetInt("batch.maxConcurrency")
	cfg.Batch.RetryAttempts = v.GetInt("batch.retryAttempts")
	cfg.Batch.RetryDelay = v.GetDuration("batch.retryDelay")
	cfg.Pagination.Optimization = v.GetBool("pagination.optimization")
	cfg.Pagination.MaxListLimit = v.GetInt("pagination.maxListLimit")
	cfg.Upstream.BaseURL = v.GetString("upstream.baseUrl")
	cfg.Upstream.APIKey = v.GetString("upstream.apiKey")
	cfg.Upstream.Timeout = v.GetDuration("upstream.timeout")
	cfg.LogLevel = v.GetString("logLevel")

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("cache.maxSize", cfg.Cache.MaxSize)
	v.SetDefault("cache.defaultTtl", cfg.Cache.DefaultTTL)
	v.SetDefault("dedup.enabled", cfg.Dedup.Enabled)
	v.SetDefault("dedup.ttl", cfg.Dedup.TTL)
	v.SetDefault("batch.maxConcurrency", cfg.Batch.MaxConcurrency)
	v.SetDefault("batch.retryAttempts", cfg.Batch.RetryAttempts)
	v.SetDefault("batch.retryDelay", cfg.Batch.RetryDelay)
	v.SetDefault("pagination.optimization", cfg.Pagination.Optimization)
	v.SetDefault("pagination.maxListLimit", cfg.Pagination.MaxListLimit)
	v.SetDefault("upstream.timeout", cfg.Upstream.Timeout)
	v.SetDefault("logLevel", cfg.LogLevel)
}

// LongestMatchingTTL returns the TTL of the longest prefix in ttls that
// matches uri, or defaultTTL if none match. Mirrors the teacher's
// resourceTtls prefix-match intent (cache-manager/service.go) with
// well-defined tie-breaking.
func LongestMatchingTTL(ttls []ResourceTTL, uri string, defaultTTL time.Duration) time.Duration {
	best := -1
	result := defaultTTL
	for _, rt := range ttls {
		if strings.HasPrefix(uri, rt.Prefix) && len(rt.Prefix) > best {
			best = len(rt.Prefix)
			result = rt.TTL
		}
	}
	return result
}

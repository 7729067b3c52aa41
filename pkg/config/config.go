// Package config loads libresolve settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/libresolve/config.toml (or
// ~/.config/libresolve/config.toml) unless a path is given explicitly.
// A missing default file is not an error; every setting has a default.
//
// Example:
//
//	cache_dir = "/var/cache/libresolve"
//
//	[[repository]]
//	id  = "central"
//	url = "https://repo.maven.apache.org/maven2"
//
//	[resolve]
//	workers = 16
//	retry_delay = "250ms"
//	verify_checksums = true
//
//	[descriptor_cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl = "168h"
//
//	[audit]
//	backend = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
//
//	[server]
//	addr = ":8080"
//
// The LIBRESOLVE_CACHE_DIR environment variable overrides cache_dir.
package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/audit"
	"github.com/matzehuels/libresolve/pkg/cache"
	errs "github.com/matzehuels/libresolve/pkg/errors"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

const (
	appName = "libresolve"

	// EnvCacheDir overrides the artifact cache directory.
	EnvCacheDir = "LIBRESOLVE_CACHE_DIR"

	// CentralURL is used when no repository is configured.
	CentralURL = "https://repo.maven.apache.org/maven2"

	DefaultAddr = ":8080"
)

// Backend names.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config is the complete file configuration.
type Config struct {
	CacheDir        string                `toml:"cache_dir"`
	Repositories    []Repository          `toml:"repository"`
	Resolve         ResolveConfig         `toml:"resolve"`
	DescriptorCache DescriptorCacheConfig `toml:"descriptor_cache"`
	Audit           AuditConfig           `toml:"audit"`
	Server          ServerConfig          `toml:"server"`
}

// Repository is a [[repository]] entry.
type Repository struct {
	ID  string `toml:"id"`
	URL string `toml:"url"`
}

// ResolveConfig mirrors the tunable fields of resolve.Options.
type ResolveConfig struct {
	Workers         int           `toml:"workers"`
	MaxDepth        int           `toml:"max_depth"`
	Attempts        int           `toml:"attempts"`
	RetryDelay      time.Duration `toml:"retry_delay"`
	VerifyChecksums bool          `toml:"verify_checksums"`
	Lenient         bool          `toml:"lenient"`
}

// DescriptorCacheConfig selects the persistent descriptor cache.
type DescriptorCacheConfig struct {
	Backend  string        `toml:"backend"` // file, redis or none (default: file)
	Dir      string        `toml:"dir"`
	RedisURL string        `toml:"redis_url"`
	TTL      time.Duration `toml:"ttl"`
}

// AuditConfig selects the provenance ledger.
type AuditConfig struct {
	Backend  string `toml:"backend"` // file, mongo or none (default: file)
	Dir      string `toml:"dir"`
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// ServerConfig configures "libresolve serve".
type ServerConfig struct {
	Addr string `toml:"addr"`

	// AllowedRepositories are the repository URLs API clients may name.
	// Empty means the configured [[repository]] entries only.
	AllowedRepositories []string `toml:"allowed_repositories"`
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := configHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads the config file at path, or the default location when path
// is empty, then applies environment overrides and defaults and validates
// the result. Only an explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default()
		}
		path = p
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		cfg = Config{}
	case err != nil:
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read config %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errs.New(errs.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}
	return finish(&cfg)
}

// Default returns the configuration used when no file exists.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		cfg.CacheDir = dir
	}
	if err := cfg.WithDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithDefaults fills unset fields in place.
func (c *Config) WithDefaults() error {
	if c.CacheDir == "" || c.DescriptorCache.Dir == "" || c.Audit.Dir == "" {
		base, err := cacheHome()
		if err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "locate cache directory")
		}
		if c.CacheDir == "" {
			c.CacheDir = filepath.Join(base, appName, "repository")
		}
		if c.DescriptorCache.Dir == "" {
			c.DescriptorCache.Dir = filepath.Join(base, appName, "descriptors")
		}
		if c.Audit.Dir == "" {
			c.Audit.Dir = filepath.Join(base, appName, "audit")
		}
	}
	if len(c.Repositories) == 0 {
		c.Repositories = []Repository{{ID: "central", URL: CentralURL}}
	}
	if c.DescriptorCache.Backend == "" {
		c.DescriptorCache.Backend = BackendFile
	}
	if c.DescriptorCache.TTL <= 0 {
		c.DescriptorCache.TTL = resolve.DefaultDescriptorTTL
	}
	if c.Audit.Backend == "" {
		c.Audit.Backend = BackendFile
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	return nil
}

// Validate checks backend names, repository URLs and numeric limits.
func (c *Config) Validate() error {
	for _, r := range c.Repositories {
		if err := errs.ValidateRepositoryURL(r.URL); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "repository %q", r.ID)
		}
	}
	for _, u := range c.Server.AllowedRepositories {
		if err := errs.ValidateRepositoryURL(u); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidConfig, err, "server.allowed_repositories")
		}
	}
	if c.Resolve.Workers < 0 || c.Resolve.MaxDepth < 0 || c.Resolve.Attempts < 0 {
		return errs.New(errs.ErrCodeInvalidConfig, "resolve limits must not be negative")
	}
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.DescriptorCache.Backend) {
		return errs.New(errs.ErrCodeInvalidConfig, "unknown descriptor cache backend %q", c.DescriptorCache.Backend)
	}
	if c.DescriptorCache.Backend == BackendRedis && c.DescriptorCache.RedisURL == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "descriptor_cache.redis_url is required for the redis backend")
	}
	if !slices.Contains([]string{BackendFile, BackendMongo, BackendNone}, c.Audit.Backend) {
		return errs.New(errs.ErrCodeInvalidConfig, "unknown audit backend %q", c.Audit.Backend)
	}
	if c.Audit.Backend == BackendMongo && c.Audit.MongoURI == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "audit.mongo_uri is required for the mongo backend")
	}
	return nil
}

// RepositoryList returns the configured repositories in priority order.
func (c *Config) RepositoryList() []artifact.Repository {
	out := make([]artifact.Repository, len(c.Repositories))
	for i, r := range c.Repositories {
		out[i] = artifact.Repository{ID: r.ID, URL: r.URL}.Normalize()
	}
	return out
}

// ResolveOptions converts the [resolve] table. Backends and the logger
// are attached by the caller.
func (c *Config) ResolveOptions() resolve.Options {
	return resolve.Options{
		Workers:         c.Resolve.Workers,
		MaxDepth:        c.Resolve.MaxDepth,
		Attempts:        c.Resolve.Attempts,
		RetryDelay:      c.Resolve.RetryDelay,
		VerifyChecksums: c.Resolve.VerifyChecksums,
		Lenient:         c.Resolve.Lenient,
		DescriptorTTL:   c.DescriptorCache.TTL,
	}
}

// OpenDescriptorCache opens the configured descriptor cache backend.
func (c *Config) OpenDescriptorCache(ctx context.Context) (cache.Cache, error) {
	switch c.DescriptorCache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: c.DescriptorCache.RedisURL, Prefix: appName + ":"})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		fc, err := cache.NewFileCache(c.DescriptorCache.Dir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
}

// OpenAudit opens the configured provenance ledger.
func (c *Config) OpenAudit(ctx context.Context) (audit.Store, error) {
	switch c.Audit.Backend {
	case BackendNone:
		return audit.NewNullStore(), nil
	case BackendMongo:
		ms, err := audit.NewMongoStore(ctx, audit.MongoConfig{URI: c.Audit.MongoURI, Database: c.Audit.Database})
		if err != nil {
			return nil, err
		}
		return ms, nil
	default:
		store, err := audit.NewFileStore(c.Audit.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func configHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

func cacheHome() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache"), nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "github.com/matzehuels/libresolve/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)
	t.Setenv(EnvCacheDir, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheDir != filepath.Join(cache, "libresolve", "repository") {
		t.Errorf("CacheDir = %s", cfg.CacheDir)
	}
	if len(cfg.Repositories) != 1 || cfg.Repositories[0].URL != CentralURL {
		t.Errorf("Repositories = %+v", cfg.Repositories)
	}
	if cfg.DescriptorCache.Backend != BackendFile || cfg.Audit.Backend != BackendFile {
		t.Errorf("backends = %s, %s", cfg.DescriptorCache.Backend, cfg.Audit.Backend)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Addr = %s", cfg.Server.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvCacheDir, "")
	p := writeConfig(t, `
cache_dir = "/srv/m2"

[[repository]]
id = "internal"
url = "https://nexus.example.com/repository/maven/"

[[repository]]
url = "https://repo.maven.apache.org/maven2"

[resolve]
workers = 4
max_depth = 10
retry_delay = "250ms"
verify_checksums = true

[descriptor_cache]
backend = "none"
ttl = "1h"

[audit]
backend = "none"

[server]
addr = "127.0.0.1:9000"
allowed_repositories = ["https://mirror.example.com/maven2"]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheDir != "/srv/m2" {
		t.Errorf("CacheDir = %s", cfg.CacheDir)
	}
	repos := cfg.RepositoryList()
	if len(repos) != 2 || repos[0].ID != "internal" || repos[0].URL != "https://nexus.example.com/repository/maven" {
		t.Errorf("repositories = %+v", repos)
	}
	if repos[1].ID == "" {
		t.Error("repository without id should get a derived id")
	}
	opts := cfg.ResolveOptions()
	if opts.Workers != 4 || opts.MaxDepth != 10 || opts.RetryDelay != 250*time.Millisecond || !opts.VerifyChecksums {
		t.Errorf("resolve options = %+v", opts)
	}
	if opts.DescriptorTTL != time.Hour {
		t.Errorf("DescriptorTTL = %s", opts.DescriptorTTL)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %s", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedRepositories) != 1 {
		t.Errorf("AllowedRepositories = %v", cfg.Server.AllowedRepositories)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	p := writeConfig(t, `cache_dir = "/from/file"`)
	t.Setenv(EnvCacheDir, "/from/env")
	cfg, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheDir != "/from/env" {
		t.Errorf("CacheDir = %s, want env override", cfg.CacheDir)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvCacheDir, "")
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `cache_dir = `},
		{"unknown key", `cache_dirr = "/x"`},
		{"bad repository", "[[repository]]\nurl = \"file:///tmp/repo\""},
		{"negative workers", "[resolve]\nworkers = -1"},
		{"unknown cache backend", "[descriptor_cache]\nbackend = \"memcached\""},
		{"redis without url", "[descriptor_cache]\nbackend = \"redis\""},
		{"unknown audit backend", "[audit]\nbackend = \"s3\""},
		{"mongo without uri", "[audit]\nbackend = \"mongo\""},
		{"bad allowed repository", "[server]\nallowed_repositories = [\"ftp://mirror\"]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errs.Is(err, errs.ErrCodeInvalidConfig) {
				t.Errorf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		if !errs.Is(err, errs.ErrCodeInvalidConfig) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestOpenBackends(t *testing.T) {
	t.Setenv(EnvCacheDir, "")
	dir := t.TempDir()
	cfg := &Config{
		CacheDir:        dir,
		DescriptorCache: DescriptorCacheConfig{Dir: filepath.Join(dir, "d")},
		Audit:           AuditConfig{Dir: filepath.Join(dir, "a")},
	}
	if err := cfg.WithDefaults(); err != nil {
		t.Fatal(err)
	}
	c, err := cfg.OpenDescriptorCache(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	s, err := cfg.OpenAudit(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(dir, "a")); err != nil {
		t.Errorf("audit dir not created: %v", err)
	}
}

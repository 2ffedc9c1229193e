package session

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/depresolve/pkg/cache"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/repository"
)

const appName = "depresolve"

// Defaults applied by Config.WithDefaults.
const (
	DefaultMaxDepth    = 50
	DefaultMaxNodes    = 5000
	DefaultConcurrency = 8
	DefaultCacheTTL    = cache.DescriptorTTL
)

// Cache and store backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config is the on-disk configuration.
//
//	local_repository = "/home/me/.m2/repository"
//	offline = false
//
//	[[remote]]
//	id = "central"
//	url = "https://repo.maven.apache.org/maven2"
//
//	[properties]
//	"java.version" = "21"
//
//	[collect]
//	max_depth = 50
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
type Config struct {
	LocalRepository string                        `toml:"local_repository"`
	Offline         bool                          `toml:"offline"`
	Remotes         []repository.RemoteRepository `toml:"remote"`
	Properties      map[string]string             `toml:"properties"`
	Collect         CollectConfig                 `toml:"collect"`
	Resolve         ResolveConfig                 `toml:"resolve"`
	Cache           CacheConfig                   `toml:"cache"`
	Store           StoreConfig                   `toml:"store"`
}

// CollectConfig limits dependency collection.
type CollectConfig struct {
	MaxDepth    int `toml:"max_depth"`
	MaxNodes    int `toml:"max_nodes"`
	Concurrency int `toml:"concurrency"`
}

// ResolveConfig tunes bulk artifact resolution.
type ResolveConfig struct {
	Concurrency int           `toml:"concurrency"`
	Timeout     time.Duration `toml:"timeout"`
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend       string        `toml:"backend"`
	Dir           string        `toml:"dir"`
	TTL           time.Duration `toml:"ttl"`
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	Prefix        string        `toml:"prefix"`
}

// StoreConfig selects where saved reports are kept.
type StoreConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/depresolve/config.toml (or the
// platform equivalent).
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// DefaultCacheDir returns the user cache directory for depresolve.
func DefaultCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// LoadConfig reads the TOML file at path. An empty path selects
// DefaultConfigPath, which may be absent; an explicit path must exist.
// Unknown keys are rejected. Defaults are applied to the result.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return Config{}.WithDefaults(), nil
		}
		path = p
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) && !explicit {
		return Config{}.WithDefaults(), nil
	}
	if err != nil {
		return Config{}, errs.Wrap(errs.ErrCodeInvalidConfig, err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errs.New(errs.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	cfg := c
	if cfg.LocalRepository == "" {
		if repo, err := repository.DefaultLocalRepository(); err == nil {
			cfg.LocalRepository = repo.Basedir
		}
	}
	if len(cfg.Remotes) == 0 {
		cfg.Remotes = []repository.RemoteRepository{repository.Central()}
	}
	if cfg.Collect.MaxDepth <= 0 {
		cfg.Collect.MaxDepth = DefaultMaxDepth
	}
	if cfg.Collect.MaxNodes <= 0 {
		cfg.Collect.MaxNodes = DefaultMaxNodes
	}
	if cfg.Collect.Concurrency <= 0 {
		cfg.Collect.Concurrency = DefaultConcurrency
	}
	if cfg.Resolve.Concurrency <= 0 {
		cfg.Resolve.Concurrency = DefaultConcurrency
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = BackendFile
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.Backend == BackendRedis && cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = "localhost:6379"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendFile
	}
	if cfg.Store.Backend == BackendMongo && cfg.Store.MongoDatabase == "" {
		cfg.Store.MongoDatabase = appName
	}
	return cfg
}

// Validate checks repositories and backend names.
func (c Config) Validate() error {
	if err := errs.ValidateDir(c.LocalRepository); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, r := range c.Remotes {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.ID] {
			return errs.New(errs.ErrCodeInvalidConfig, "duplicate remote repository id %q", r.ID)
		}
		seen[r.ID] = true
	}
	if !slices.Contains([]string{BackendFile, BackendRedis, BackendNone}, c.Cache.Backend) {
		return errs.New(errs.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if !slices.Contains([]string{BackendFile, BackendMongo}, c.Store.Backend) {
		return errs.New(errs.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendMongo && c.Store.MongoURI == "" {
		return errs.New(errs.ErrCodeInvalidConfig, "store backend mongo requires mongo_uri")
	}
	return nil
}

// OpenCache opens the configured cache backend.
func (c Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
			Prefix:   c.Cache.Prefix,
		})
	default:
		dir, err := c.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// CacheDir returns the file cache directory: Cache.Dir, or "descriptors"
// below DefaultCacheDir.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := DefaultCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "descriptors"), nil
}

// NewSession builds a session from the configuration.
func (c Config) NewSession(cc cache.Cache, logger *log.Logger) *Session {
	var keyer cache.Keyer
	if c.Cache.Prefix != "" && c.Cache.Backend != BackendRedis {
		keyer = cache.NewScopedKeyer(nil, c.Cache.Prefix)
	}
	return New(Options{
		LocalRepository: repository.LocalRepository{Basedir: c.LocalRepository},
		Remotes:         c.Remotes,
		Offline:         c.Offline,
		Properties:      c.Properties,
		Cache:           cc,
		Keyer:           keyer,
		Logger:          logger,
	})
}

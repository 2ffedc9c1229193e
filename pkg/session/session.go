// Package session holds the immutable context shared by every repository
// system operation: local and remote repositories, offline mode, user
// properties, the response cache and the logger.
//
// Sessions are usually built from a [Config] loaded from TOML:
//
//	cfg, err := session.LoadConfig("")
//	if err != nil {
//	    return err
//	}
//	c, err := cfg.OpenCache(ctx)
//	if err != nil {
//	    return err
//	}
//	sess := cfg.NewSession(c, logger)
package session

import (
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/depresolve/pkg/cache"
	"github.com/matzehuels/depresolve/pkg/repository"
)

// Options configures New.
type Options struct {
	LocalRepository repository.LocalRepository
	Remotes         []repository.RemoteRepository
	Offline         bool
	Properties      map[string]string
	Cache           cache.Cache
	Keyer           cache.Keyer
	Logger          *log.Logger
}

// WithDefaults returns a copy of Options with zero values replaced by
// defaults: Maven Central as the only remote, a null cache, the default
// keyer and a discarding logger.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.LocalRepository.Basedir == "" {
		if repo, err := repository.DefaultLocalRepository(); err == nil {
			opts.LocalRepository = repo
		}
	}
	if len(opts.Remotes) == 0 {
		opts.Remotes = []repository.RemoteRepository{repository.Central()}
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Session is read-only after construction and safe for concurrent use.
type Session struct {
	id         string
	local      repository.LocalRepository
	remotes    []repository.RemoteRepository
	offline    bool
	properties map[string]string
	cache      cache.Cache
	keyer      cache.Keyer
	logger     *log.Logger
}

// New creates a session from opts after applying defaults.
func New(opts Options) *Session {
	opts = opts.WithDefaults()
	return &Session{
		id:         uuid.NewString(),
		local:      opts.LocalRepository,
		remotes:    slices.Clone(opts.Remotes),
		offline:    opts.Offline,
		properties: maps.Clone(opts.Properties),
		cache:      opts.Cache,
		keyer:      opts.Keyer,
		logger:     opts.Logger,
	}
}

// ID uniquely identifies the session in logs.
func (s *Session) ID() string { return s.id }

// LocalRepository returns the local repository.
func (s *Session) LocalRepository() repository.LocalRepository { return s.local }

// Remotes returns a copy of the configured remote repositories.
func (s *Session) Remotes() []repository.RemoteRepository { return slices.Clone(s.remotes) }

// Offline reports whether remote access is forbidden.
func (s *Session) Offline() bool { return s.offline }

// Property returns a user property such as "java.version".
func (s *Session) Property(key string) (string, bool) {
	v, ok := s.properties[key]
	return v, ok
}

// Properties returns a copy of all user properties.
func (s *Session) Properties() map[string]string { return maps.Clone(s.properties) }

// Cache returns the response cache.
func (s *Session) Cache() cache.Cache { return s.cache }

// Keyer returns the cache key layout.
func (s *Session) Keyer() cache.Keyer { return s.keyer }

// Logger returns the session logger.
func (s *Session) Logger() *log.Logger { return s.logger }

// WithOffline returns a copy of s with the offline flag set to offline.
func (s *Session) WithOffline(offline bool) *Session {
	c := *s
	c.offline = offline
	return &c
}

// WithLogger returns a copy of s that logs to l.
func (s *Session) WithLogger(l *log.Logger) *Session {
	c := *s
	c.logger = l
	return &c
}

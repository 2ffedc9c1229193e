// Package cli implements the depresolve command-line interface.
//
// Commands:
//   - resolve: collect a dependency tree and download its artifacts
//   - collect: collect a dependency tree only
//   - serve: run the HTTP API
//   - reports: list and show saved reports
//   - cache: inspect and clear the descriptor cache
//
// All commands accept --verbose for debug logging, --trace to print spans,
// --config to select the configuration file and --offline to forbid network
// access.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depresolve/pkg/buildinfo"
	"github.com/matzehuels/depresolve/pkg/cache"
	"github.com/matzehuels/depresolve/pkg/collect"
	"github.com/matzehuels/depresolve/pkg/repository/maven"
	"github.com/matzehuels/depresolve/pkg/resolve"
	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/system"
	"github.com/matzehuels/depresolve/pkg/telemetry"
)

const appName = "depresolve"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command results. Logs go to the logger's writer.
	Out io.Writer

	// TraceOut receives spans when --trace is set.
	TraceOut io.Writer

	configPath string
	offline    bool
	trace      bool
	shutdown   telemetry.ShutdownFunc
}

// New creates a CLI logging to w at the given level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), Out: os.Stdout, TraceOut: os.Stderr}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "depresolve collects and resolves Maven dependency trees",
		Long:         `depresolve collects the transitive dependency tree of Maven artifacts or a pom.xml, resolves every artifact into the local repository and reports cycles and failures.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			registerHooks(c.Logger)
			if !c.trace {
				return nil
			}
			shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
				ServiceName:    appName,
				ServiceVersion: buildinfo.Version,
				Writer:         c.TraceOut,
			})
			if err != nil {
				return err
			}
			c.shutdown = shutdown
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.shutdown == nil {
				return nil
			}
			return c.shutdown(cmd.Context())
		},
	}
	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "configuration file (default: user config dir)")
	flags.BoolVar(&c.offline, "offline", false, "never contact remote repositories")
	flags.BoolVar(&c.trace, "trace", false, "print tracing spans to stderr")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.collectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.reportsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	return root
}

// env bundles the configuration, session and repository system of one
// command invocation.
type env struct {
	cfg    session.Config
	cache  cache.Cache
	sess   *session.Session
	client *maven.Client
	sys    *system.Tracking
}

// loadConfig reads and validates the configuration, applying --offline.
func (c *CLI) loadConfig() (session.Config, error) {
	cfg, err := session.LoadConfig(c.configPath)
	if err != nil {
		return session.Config{}, err
	}
	if c.offline {
		cfg.Offline = true
	}
	if err := cfg.Validate(); err != nil {
		return session.Config{}, err
	}
	return cfg, nil
}

// newEnv builds a Maven-backed repository system from the configuration.
// A cache backend that cannot be opened degrades to no caching.
func (c *CLI) newEnv(ctx context.Context) (*env, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	cc, err := cfg.OpenCache(ctx)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", cfg.Cache.Backend, "error", err)
		cc = cache.NewNullCache()
	}
	client := maven.NewClient(maven.Options{UserAgent: appName + "/" + buildinfo.Version})
	sys := system.NewMaven(client,
		collect.Options{
			MaxDepth:    cfg.Collect.MaxDepth,
			MaxNodes:    cfg.Collect.MaxNodes,
			Concurrency: cfg.Collect.Concurrency,
		},
		resolve.Options{Concurrency: cfg.Resolve.Concurrency},
	)
	return &env{
		cfg:    cfg,
		cache:  cc,
		sess:   cfg.NewSession(cc, c.Logger),
		client: client,
		sys:    system.NewTracking(sys),
	}, nil
}

func (e *env) Close() error {
	return e.cache.Close()
}

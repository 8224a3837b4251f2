// Package cli implements the rpviz command-line interface.
//
// The main commands are:
//   - build: turn a set of rpSBML pathway models into a viewer and,
//     optionally, one self-contained HTML document
//   - bundle: inline an existing viewer folder into one document
//   - serve: run the pipeline behind an HTTP API
//   - sandbox: run build inside a container image
//   - runs: inspect run records
//   - cache: manage the depiction cache
//
// All commands support --verbose (-v) for debug-level logging and --config
// to select a configuration file. Flags override configuration values.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rpviz/pkg/cache"
	"github.com/matzehuels/rpviz/pkg/config"
	"github.com/matzehuels/rpviz/pkg/pipeline"
	"github.com/matzehuels/rpviz/pkg/runlog"
)

// appName is the application name used for directories and display.
const appName = "rpviz"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig reads --config, or the default configuration file when the
// flag is empty.
func (c *CLI) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, c.Logger)
	r.CacheTTL = cfg.Cache.TTL.D()
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.RedisAddr != "" {
		c.Logger.Debug("using redis cache", "addr", cfg.Cache.RedisAddr)
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
	}
	dir, err := fileCacheDir(cfg)
	if err != nil {
		c.Logger.Warn("cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// openRunLog opens the configured run record store.
func (c *CLI) openRunLog(ctx context.Context, cfg *config.Config) (runlog.Store, error) {
	if cfg.RunLog.MongoURI != "" {
		return runlog.NewMongoStore(ctx, runlog.MongoConfig{
			URI:        cfg.RunLog.MongoURI,
			Database:   cfg.RunLog.Database,
			Collection: cfg.RunLog.Collection,
		})
	}
	dir := cfg.RunLog.Dir
	if dir == "" {
		data, err := dataDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(data, "runs")
	}
	return runlog.NewFileStore(dir)
}

func fileCacheDir(cfg *config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/rpviz/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using XDG standard
// (~/.local/share/rpviz/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

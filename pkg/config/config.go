// Package config loads rpviz configuration files.
//
// A configuration file is TOML or YAML, chosen by extension. Every field is
// optional; command-line flags override what the file sets. The default file
// is config.toml in the rpviz folder of the user configuration directory,
// and a missing default file is not an error.
//
//	workers = 8
//	depiction_timeout = "5s"
//
//	[cache]
//	dir = "/var/cache/rpviz"
//	ttl = "720h"
//
//	[server]
//	addr = ":8080"
//	max_concurrent = 4
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// MaxFileSize bounds the size of a configuration file.
const MaxFileSize = 1 << 20

// ErrNotFound is returned by [Load] for a missing file.
var ErrNotFound = errors.New("config file not found")

// Config is the content of a configuration file.
type Config struct {
	Workers          int      `toml:"workers" yaml:"workers"`
	DepictionTimeout Duration `toml:"depiction_timeout" yaml:"depiction_timeout"`
	CofactorTable    string   `toml:"cofactor_table" yaml:"cofactor_table"`
	TemplateDir      string   `toml:"template_dir" yaml:"template_dir"`

	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Server  ServerConfig  `toml:"server" yaml:"server"`
	RunLog  RunLogConfig  `toml:"runlog" yaml:"runlog"`
	Publish PublishConfig `toml:"publish" yaml:"publish"`
	Sandbox SandboxConfig `toml:"sandbox" yaml:"sandbox"`
}

// CacheConfig selects the depiction cache.
type CacheConfig struct {
	Dir           string   `toml:"dir" yaml:"dir"` // empty uses the user cache directory
	Disabled      bool     `toml:"disabled" yaml:"disabled"`
	TTL           Duration `toml:"ttl" yaml:"ttl"`
	RedisAddr     string   `toml:"redis_addr" yaml:"redis_addr"` // non-empty selects redis
	RedisPassword string   `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int      `toml:"redis_db" yaml:"redis_db"`
}

// ServerConfig configures rpviz serve.
type ServerConfig struct {
	Addr          string `toml:"addr" yaml:"addr"`
	MaxConcurrent int    `toml:"max_concurrent" yaml:"max_concurrent"`
	MaxUploadMB   int64  `toml:"max_upload_mb" yaml:"max_upload_mb"`
}

// RunLogConfig selects where run records are kept. A MongoURI takes
// precedence over Dir.
type RunLogConfig struct {
	Dir        string `toml:"dir" yaml:"dir"`
	MongoURI   string `toml:"mongo_uri" yaml:"mongo_uri"`
	Database   string `toml:"database" yaml:"database"`
	Collection string `toml:"collection" yaml:"collection"`
}

// PublishConfig sets a default publish destination.
type PublishConfig struct {
	URL string `toml:"url" yaml:"url"`
}

// SandboxConfig configures rpviz sandbox.
type SandboxConfig struct {
	Image        string `toml:"image" yaml:"image"`
	DockerBinary string `toml:"docker_binary" yaml:"docker_binary"`
}

// Defaults.
const (
	DefaultAddr          = ":8080"
	DefaultMaxConcurrent = 4
	DefaultMaxUploadMB   = 256
	DefaultDatabase      = "rpviz"
	DefaultCollection    = "runs"
	DefaultImage         = "rpviz:latest"
	DefaultDockerBinary  = "docker"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.MaxConcurrent == 0 {
		c.Server.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.RunLog.Database == "" {
		c.RunLog.Database = DefaultDatabase
	}
	if c.RunLog.Collection == "" {
		c.RunLog.Collection = DefaultCollection
	}
	if c.Sandbox.Image == "" {
		c.Sandbox.Image = DefaultImage
	}
	if c.Sandbox.DockerBinary == "" {
		c.Sandbox.DockerBinary = DefaultDockerBinary
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 0:
		return rperrors.New(rperrors.ErrCodeInvalidInput, "workers must not be negative")
	case c.DepictionTimeout < 0:
		return rperrors.New(rperrors.ErrCodeInvalidInput, "depiction_timeout must not be negative")
	case c.Cache.TTL < 0:
		return rperrors.New(rperrors.ErrCodeInvalidInput, "cache.ttl must not be negative")
	case c.Server.MaxConcurrent < 1:
		return rperrors.New(rperrors.ErrCodeInvalidInput, "server.max_concurrent must be at least 1")
	case c.Server.MaxUploadMB < 1:
		return rperrors.New(rperrors.ErrCodeInvalidInput, "server.max_upload_mb must be at least 1")
	}
	return nil
}

// DefaultPath returns the default configuration file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rpviz", "config.toml"), nil
}

// Load reads the configuration file at path. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "read config")
	}
	c, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadDefault reads the file at [DefaultPath], returning the defaults when
// it does not exist.
func LoadDefault() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	c, err := Load(path)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	return c, err
}

// Parse decodes data in the format named by ext (".toml", ".yaml" or ".yml").
func Parse(ext string, data []byte) (*Config, error) {
	if len(data) > MaxFileSize {
		return nil, rperrors.New(rperrors.ErrCodeInvalidInput, "config exceeds %d bytes", MaxFileSize)
	}
	c := &Config{}
	switch strings.ToLower(ext) {
	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(c)
		if err != nil {
			return nil, rperrors.Wrap(rperrors.ErrCodeInvalidInput, err, "parse config")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, rperrors.New(rperrors.ErrCodeInvalidInput, "unknown config key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		if len(bytes.TrimSpace(data)) > 0 {
			if err := yaml.UnmarshalWithOptions(data, c, yaml.Strict()); err != nil {
				return nil, rperrors.Wrap(rperrors.ErrCodeInvalidInput, err, "parse config")
			}
		}
	default:
		return nil, rperrors.New(rperrors.ErrCodeUnsupported, "unsupported config format %q (want .toml, .yaml or .yml)", ext)
	}
	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Duration is a time.Duration written as a Go duration string ("1m30s").
type Duration time.Duration

// D returns d as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalText implements encoding.TextUnmarshaler for TOML.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalYAML accepts a duration string.
func (d *Duration) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

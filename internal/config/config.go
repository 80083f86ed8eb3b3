// Package config loads the YAML configuration of the tarx command.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jmgilman/go/archive/archiver"
	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/fs/core"
	"github.com/jmgilman/go/archive/internal/logging"
	"github.com/jmgilman/go/archive/tar"
)

// Config is the tarx configuration file.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Create   CreateConfig  `yaml:"create"`
	Extract  ExtractConfig `yaml:"extract"`
}

// CreateConfig holds the defaults of tarx create.
type CreateConfig struct {
	Format      string `yaml:"format"`
	Compression string `yaml:"compression"`
	Fallback    string `yaml:"fallback"`
}

// ExtractConfig holds the limits and policies of tarx extract.
type ExtractConfig struct {
	MaxFiles            int    `yaml:"max_files"`
	MaxSize             int64  `yaml:"max_size"`
	MaxFileSize         int64  `yaml:"max_file_size"`
	PreservePermissions bool   `yaml:"preserve_permissions"`
	AllowHidden         bool   `yaml:"allow_hidden"`
	StripPrefix         string `yaml:"strip_prefix"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Create: CreateConfig{
			Format:      "ustar",
			Compression: "none",
			Fallback:    "pax",
		},
		Extract: ExtractConfig{
			MaxFiles:    archiver.DefaultMaxFiles,
			MaxSize:     archiver.DefaultMaxSize,
			MaxFileSize: archiver.DefaultMaxFileSize,
		},
	}
}

// Load reads the file at path on fsys over the defaults and validates the
// result. Keys missing from the file keep their default values.
func Load(fsys core.ReadFS, path string) (*Config, error) {
	cfg := Default()
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithContext(errors.New(errors.CodeNotFound, "config file not found"), "path", path)
		}
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeIO, "failed to read config file"), "path", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeInvalidConfig, "failed to parse config file"), "path", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithContext(err, "path", path)
	}
	return cfg, nil
}

func invalid(field string, value interface{}) error {
	return errors.WithContextMap(
		errors.Newf(errors.CodeInvalidConfig, "invalid value for %s", field),
		map[string]interface{}{"field": field, "value": value})
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := logging.ParseLogLevel(c.LogLevel); err != nil {
		return invalid("log_level", c.LogLevel)
	}
	if _, ok := tar.ParseDialect(c.Create.Format); !ok {
		return invalid("create.format", c.Create.Format)
	}
	if _, err := compress.ParseCompression(c.Create.Compression); err != nil {
		return invalid("create.compression", c.Create.Compression)
	}
	if _, ok := tar.ParseFallback(c.Create.Fallback); !ok {
		return invalid("create.fallback", c.Create.Fallback)
	}
	switch {
	case c.Extract.MaxFiles < 0:
		return invalid("extract.max_files", c.Extract.MaxFiles)
	case c.Extract.MaxSize < 0:
		return invalid("extract.max_size", c.Extract.MaxSize)
	case c.Extract.MaxFileSize < 0:
		return invalid("extract.max_file_size", c.Extract.MaxFileSize)
	}
	return nil
}

// CreateOptions converts the create section into archiver options. The
// configuration must have been validated.
func (c *Config) CreateOptions() []archiver.Option {
	d, _ := tar.ParseDialect(c.Create.Format)
	comp, _ := compress.ParseCompression(c.Create.Compression)
	f, _ := tar.ParseFallback(c.Create.Fallback)
	return []archiver.Option{
		archiver.WithDialect(d),
		archiver.WithCompression(comp),
		archiver.WithFallback(f),
	}
}

// ExtractOptions converts the extract section into archiver options.
func (c *Config) ExtractOptions() []archiver.Option {
	opts := []archiver.Option{
		archiver.WithLimits(c.Extract.MaxFiles, c.Extract.MaxSize, c.Extract.MaxFileSize),
		archiver.WithStripPrefix(c.Extract.StripPrefix),
	}
	if c.Extract.PreservePermissions {
		opts = append(opts, archiver.WithPreservePermissions())
	}
	if c.Extract.AllowHidden {
		opts = append(opts, archiver.WithAllowHidden())
	}
	return opts
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmgilman/go/archive/errors"
	fsbilly "github.com/jmgilman/go/archive/fs/billy"
	"github.com/jmgilman/go/archive/fs/core"
	"github.com/jmgilman/go/archive/internal/config"
	"github.com/jmgilman/go/archive/internal/logging"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// cli holds the streams and settings shared by every command.
type cli struct {
	in  io.Reader
	out io.Writer
	err io.Writer

	// fs is the host filesystem rooted at /. Paths given on the command
	// line are made absolute before they reach it.
	fs core.FS

	configPath string
	logLevel   string
	output     string

	cfg    *config.Config
	logger *logging.Logger
}

func newCLI(in io.Reader, out, err io.Writer) *cli {
	return &cli{
		in:     in,
		out:    out,
		err:    err,
		fs:     fsbilly.NewLocal("/"),
		output: outputText,
		cfg:    config.Default(),
		logger: logging.NewNopLogger(),
	}
}

func (c *cli) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tarx",
		Short:         "Create, inspect, extract and convert tar archives",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	cmd.SetIn(c.in)
	cmd.SetOut(c.out)
	cmd.SetErr(c.err)

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVarP(&c.output, "output", "o", outputText, "Output format (text, json)")

	cmd.AddCommand(
		c.listCommand(),
		c.createCommand(),
		c.extractCommand(),
		c.convertCommand(),
	)
	return cmd
}

// setup loads the configuration and builds the logger. Flags win over the
// configuration file.
func (c *cli) setup() error {
	if c.output != outputText && c.output != outputJSON {
		return errors.WithContext(errors.New(errors.CodeInvalidConfig, "unknown output format"), "output", c.output)
	}

	if c.configPath != "" {
		p, err := c.abs(c.configPath)
		if err != nil {
			return err
		}
		cfg, err := config.Load(c.fs, p)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}

	name := c.cfg.LogLevel
	if c.logLevel != "" {
		name = c.logLevel
	}
	level, err := logging.ParseLogLevel(name)
	if err != nil {
		return err
	}
	c.logger = logging.NewLogger(logging.LogConfig{
		Level:  level,
		JSON:   c.output == outputJSON,
		Output: c.err,
	})
	return nil
}

func (c *cli) abs(p string) (string, error) {
	a, err := filepath.Abs(p)
	if err != nil {
		return "", errors.WithContext(errors.Wrap(err, errors.CodeInvalidInput, "invalid path"), "path", p)
	}
	return a, nil
}

// open returns a reader for name, or stdin when name is "-".
func (c *cli) open(name string) (io.ReadCloser, error) {
	if name == "-" || name == "" {
		return io.NopCloser(c.in), nil
	}
	p, err := c.abs(name)
	if err != nil {
		return nil, err
	}
	f, err := c.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithContext(errors.New(errors.CodeNotFound, "archive not found"), "path", name)
		}
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeIO, "failed to open archive"), "path", name)
	}
	return f, nil
}

// create returns a writer for name, or stdout when name is "-".
func (c *cli) create(name string) (io.WriteCloser, error) {
	if name == "-" || name == "" {
		return nopWriteCloser{c.out}, nil
	}
	p, err := c.abs(name)
	if err != nil {
		return nil, err
	}
	f, err := c.fs.Create(p)
	if err != nil {
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeIO, "failed to create archive"), "path", name)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (c *cli) printJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write output")
	}
	return nil
}

func (c *cli) printError(err error) {
	if c.output == outputJSON {
		_ = json.NewEncoder(c.err).Encode(errors.ToJSON(err))
		return
	}
	fmt.Fprintf(c.err, "tarx: %v\n", err)
}

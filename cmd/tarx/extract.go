package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmgilman/go/archive/archiver"
)

type extractOptions struct {
	file        string
	directory   string
	stripPrefix string
	include     []string
}

func (c *cli) extractCommand() *cobra.Command {
	var opts extractOptions

	cmd := &cobra.Command{
		Use:   "extract [OPTIONS] [PATTERN...]",
		Short: "Extract an archive into a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.include = args
			return c.runExtract(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "-", "Archive to read, or '-' for stdin")
	flags.StringVarP(&opts.directory, "directory", "C", ".", "Directory to extract into")
	flags.StringVar(&opts.stripPrefix, "strip-prefix", "", "Leading path removed from every member")

	return cmd
}

func (c *cli) runExtract(cmd *cobra.Command, opts extractOptions) error {
	in, err := c.open(opts.file)
	if err != nil {
		return err
	}
	defer in.Close()

	target, err := c.abs(opts.directory)
	if err != nil {
		return err
	}

	aopts := append(c.cfg.ExtractOptions(),
		archiver.WithLogger(c.logger),
		archiver.WithInclude(opts.include...),
	)
	if opts.stripPrefix != "" {
		aopts = append(aopts, archiver.WithStripPrefix(opts.stripPrefix))
	}

	m, err := archiver.Extract(cmd.Context(), in, c.fs, target, aopts...)
	if err != nil {
		return err
	}
	if c.output == outputJSON {
		return c.printJSON(m)
	}
	fmt.Fprintf(c.out, "extracted %d members, %d bytes\n", len(m.Entries), m.TotalSize)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmgilman/go/archive/archiver"
	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/tar"
)

type convertOptions struct {
	format      string
	compression string
	fallback    string
	include     []string
}

func (c *cli) convertCommand() *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert [OPTIONS] SOURCE DEST [PATTERN...]",
		Short: "Rewrite an archive in another header format or compression",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.include = args[2:]
			return c.runConvert(cmd, args[0], args[1], opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.format, "format", "pax", "Header format (ustar, gnu, pax)")
	flags.StringVarP(&opts.compression, "compression", "z", "", "Compression (none, gzip, zstd, xz); defaults to the destination extension")
	flags.StringVar(&opts.fallback, "fallback", "pax", "Storage for ustar headers that do not fit (pax, gnu, none)")

	return cmd
}

func (c *cli) runConvert(cmd *cobra.Command, src, dst string, opts convertOptions) error {
	d, ok := tar.ParseDialect(opts.format)
	if !ok {
		return errors.WithContext(errors.New(errors.CodeInvalidInput, "unknown format"), "format", opts.format)
	}
	f, ok := tar.ParseFallback(opts.fallback)
	if !ok {
		return errors.WithContext(errors.New(errors.CodeInvalidInput, "unknown fallback"), "fallback", opts.fallback)
	}
	comp := compress.FromFilename(dst)
	if opts.compression != "" {
		var err error
		if comp, err = compress.ParseCompression(opts.compression); err != nil {
			return err
		}
	}

	in, err := c.open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := c.create(dst)
	if err != nil {
		return err
	}

	n, err := archiver.Convert(cmd.Context(), in, out,
		archiver.WithLogger(c.logger),
		archiver.WithDialect(d),
		archiver.WithFallback(f),
		archiver.WithCompression(comp),
		archiver.WithInclude(opts.include...),
	)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, errors.CodeIO, "failed to close archive")
	}
	if err != nil {
		return err
	}

	if dst == "-" {
		return nil
	}
	if c.output == outputJSON {
		return c.printJSON(map[string]interface{}{"members": n, "format": d.String(), "compression": comp.String()})
	}
	fmt.Fprintf(c.out, "converted %d members to %s\n", n, d.String())
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmgilman/go/archive/archiver"
	"github.com/jmgilman/go/archive/checksum"
	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/tar"
)

type createOptions struct {
	file        string
	format      string
	compression string
	fallback    string
	digest      string
}

func (c *cli) createCommand() *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create [OPTIONS] DIRECTORY",
		Short: "Create an archive from a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCreate(cmd, args[0], opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "-", "Archive to write, or '-' for stdout")
	flags.StringVar(&opts.format, "format", "", "Header format (ustar, gnu, pax)")
	flags.StringVarP(&opts.compression, "compression", "z", "", "Compression (none, gzip, zstd, xz); defaults to the file extension")
	flags.StringVar(&opts.fallback, "fallback", "", "Storage for ustar headers that do not fit (pax, gnu, none)")
	flags.StringVar(&opts.digest, "digest", "", "Report a digest of each file (sha256, sha1, md5)")

	return cmd
}

func (c *cli) runCreate(cmd *cobra.Command, dir string, opts createOptions) error {
	aopts := append(c.cfg.CreateOptions(), archiver.WithLogger(c.logger))

	switch {
	case opts.compression != "":
		comp, err := compress.ParseCompression(opts.compression)
		if err != nil {
			return err
		}
		aopts = append(aopts, archiver.WithCompression(comp))
	case opts.file != "-":
		if comp := compress.FromFilename(opts.file); comp != compress.None {
			aopts = append(aopts, archiver.WithCompression(comp))
		}
	}
	if opts.format != "" {
		d, ok := tar.ParseDialect(opts.format)
		if !ok {
			return errors.WithContext(errors.New(errors.CodeInvalidInput, "unknown format"), "format", opts.format)
		}
		aopts = append(aopts, archiver.WithDialect(d))
	}
	if opts.fallback != "" {
		f, ok := tar.ParseFallback(opts.fallback)
		if !ok {
			return errors.WithContext(errors.New(errors.CodeInvalidInput, "unknown fallback"), "fallback", opts.fallback)
		}
		aopts = append(aopts, archiver.WithFallback(f))
	}
	if opts.digest != "" {
		a, err := checksum.ParseAlgorithm(opts.digest)
		if err != nil {
			return err
		}
		aopts = append(aopts, archiver.WithDigest(a))
	}

	root, err := c.abs(dir)
	if err != nil {
		return err
	}
	out, err := c.create(opts.file)
	if err != nil {
		return err
	}

	m, err := archiver.Pack(cmd.Context(), c.fs, root, out, aopts...)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, errors.CodeIO, "failed to close archive")
	}
	if err != nil {
		return err
	}

	// The archive itself may be on stdout; the summary goes elsewhere.
	if opts.file == "-" {
		return nil
	}
	if c.output == outputJSON {
		return c.printJSON(m)
	}
	fmt.Fprintf(c.out, "%d members, %d bytes\n", len(m.Entries), m.TotalSize)
	return nil
}

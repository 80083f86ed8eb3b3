package main

import (
	"fmt"
	"io/fs"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmgilman/go/archive/archiver"
	"github.com/jmgilman/go/archive/checksum"
)

type listOptions struct {
	file    string
	digest  string
	include []string
}

func (c *cli) listCommand() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list [OPTIONS] [PATTERN...]",
		Short: "List the members of an archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.include = args
			return c.runList(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "-", "Archive to read, or '-' for stdin")
	flags.StringVar(&opts.digest, "digest", "", "Record a digest of each file (sha256, sha1, md5)")

	return cmd
}

func (c *cli) runList(cmd *cobra.Command, opts listOptions) error {
	in, err := c.open(opts.file)
	if err != nil {
		return err
	}
	defer in.Close()

	aopts := []archiver.Option{
		archiver.WithLogger(c.logger),
		archiver.WithInclude(opts.include...),
	}
	if opts.digest != "" {
		a, err := checksum.ParseAlgorithm(opts.digest)
		if err != nil {
			return err
		}
		aopts = append(aopts, archiver.WithDigest(a))
	}

	m, err := archiver.List(cmd.Context(), in, aopts...)
	if err != nil {
		return err
	}
	if c.output == outputJSON {
		return c.printJSON(m)
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, e := range m.Entries {
		name := e.Path
		if e.LinkPath != "" {
			name += " -> " + e.LinkPath
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s", fs.FileMode(e.Mode&0o777), e.Size,
			time.Unix(e.ModTime, 0).UTC().Format(time.RFC3339), name)
		if e.Digest != "" {
			fmt.Fprintf(w, "\t%s", e.Digest)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

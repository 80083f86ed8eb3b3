package archiver

import (
	"context"
	"io"
	"time"

	"github.com/jmgilman/go/archive"
	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/internal/logging"
	"github.com/jmgilman/go/archive/tar"
)

// Convert rewrites the archive read from in into out using the configured
// dialect, fallback and compression. Include patterns drop members that do
// not match. Payloads are copied unchanged. It returns the number of
// members written; out is not closed.
func Convert(ctx context.Context, in io.Reader, out io.Writer, opts ...Option) (n int, err error) {
	o := buildOptions(opts)
	log := o.Logger.WithOperation(logging.OpConvert)
	start := time.Now()
	defer func() {
		logging.LogOperation(ctx, log, logging.OpConvert, time.Since(start), n, 0, err)
	}()

	if in == nil || out == nil {
		return 0, errors.New(errors.CodeInvalidInput, "input and output are required")
	}

	rc, from, err := compress.DecompressStream(in)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	log.Debug(ctx, "converting archive", "from", from.String(), "to", o.Compression.String(), "dialect", o.Dialect.String())

	cw, err := compress.CompressStream(out, o.Compression)
	if err != nil {
		return 0, err
	}

	tr := tar.NewReader(rc, o.tarOptions()...)
	tw := tar.NewWriter(cw, o.tarOptions()...)
	n, err = archive.Transcode[*tar.Header](ctx, tw, tr, func(hdr *tar.Header) (*tar.Header, bool, error) {
		if !matchesInclude(o.Include, hdr.Path) {
			return hdr, true, nil
		}
		hdr.Dialect = o.Dialect
		return hdr, false, nil
	})
	if err != nil {
		return n, err
	}

	if err := tw.CloseArchive(ctx); err != nil {
		return n, err
	}
	if err := cw.Close(); err != nil {
		return n, errors.Wrap(err, errors.CodeIO, "failed to flush compressor")
	}
	return n, nil
}

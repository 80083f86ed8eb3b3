package compress

import (
	"bufio"
	"compress/bzip2"
	"io"
	"sync/atomic"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/jmgilman/go/archive/errors"
)

const peekSize = 10

type readCloserWrapper struct {
	io.Reader
	closer func() error
	closed atomic.Bool
}

func (r *readCloserWrapper) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if r.closer == nil {
		return nil
	}
	return r.closer()
}

// DecompressStream detects the compression of archive and returns a reader
// over the decompressed bytes along with the detected format. Closing the
// returned reader does not close archive.
func DecompressStream(archive io.Reader) (io.ReadCloser, Compression, error) {
	buf := bufio.NewReaderSize(archive, 32*1024)

	// An empty stream peeks io.EOF and is treated as uncompressed.
	bs, err := buf.Peek(peekSize)
	if err != nil && err != io.EOF {
		return nil, None, errors.Wrap(err, errors.CodeIO, "failed to read stream header")
	}

	c := Detect(bs)
	switch c {
	case None:
		return &readCloserWrapper{Reader: buf}, c, nil
	case Gzip:
		gz, err := gzip.NewReader(buf)
		if err != nil {
			return nil, c, errors.Wrap(err, errors.CodeInvalidInput, "invalid gzip stream")
		}
		return &readCloserWrapper{Reader: gz, closer: gz.Close}, c, nil
	case Bzip2:
		return &readCloserWrapper{Reader: bzip2.NewReader(buf)}, c, nil
	case Xz:
		xr, err := xz.NewReader(buf)
		if err != nil {
			return nil, c, errors.Wrap(err, errors.CodeInvalidInput, "invalid xz stream")
		}
		return &readCloserWrapper{Reader: xr}, c, nil
	case Zstd:
		dec, err := zstd.NewReader(buf)
		if err != nil {
			return nil, c, errors.Wrap(err, errors.CodeInvalidInput, "invalid zstd stream")
		}
		return &readCloserWrapper{Reader: dec, closer: func() error {
			dec.Close()
			return nil
		}}, c, nil
	}
	return nil, c, errors.WithContext(
		errors.New(errors.CodeUnsupportedFormat, "unsupported compression format"),
		"compression", c.String())
}

type writeCloserWrapper struct {
	io.Writer
	closer func() error
}

func (w *writeCloserWrapper) Close() error {
	return w.closer()
}

// CompressStream returns a writer that compresses into dest. Close flushes
// the compressor but leaves dest open. Bzip2 cannot be written.
func CompressStream(dest io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case None:
		return &writeCloserWrapper{Writer: dest, closer: func() error { return nil }}, nil
	case Gzip:
		return gzip.NewWriter(dest), nil
	case Zstd:
		enc, err := zstd.NewWriter(dest)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to create zstd encoder")
		}
		return enc, nil
	case Xz:
		xw, err := xz.NewWriter(dest)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to create xz writer")
		}
		return xw, nil
	}
	return nil, errors.WithContext(
		errors.New(errors.CodeUnsupportedFormat, "compression format cannot be written"),
		"compression", c.String())
}

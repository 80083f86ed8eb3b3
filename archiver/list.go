package archiver

import (
	"context"
	"io"
	"time"

	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/internal/logging"
	"github.com/jmgilman/go/archive/tar"
)

// List reads the archive from in and returns its manifest without
// writing anything. Payloads are only read when a digest is requested.
func List(ctx context.Context, in io.Reader, opts ...Option) (m *Manifest, err error) {
	o := buildOptions(opts)
	log := o.Logger.WithOperation(logging.OpList)
	start := time.Now()
	defer func() {
		var entries int
		var size int64
		if m != nil {
			entries, size = len(m.Entries), m.TotalSize
		}
		logging.LogOperation(ctx, log, logging.OpList, time.Since(start), entries, size, err)
	}()

	if in == nil {
		return nil, errors.New(errors.CodeInvalidInput, "input is required")
	}
	if o.Digest != 0 {
		if err := o.Digest.Valid(); err != nil {
			return nil, err
		}
	}

	rc, c, err := compress.DecompressStream(in)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	m = newManifest(c)
	tr := tar.NewReader(rc, o.tarOptions()...)
	for {
		ok, err := tr.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return m, nil
		}

		hdr := tr.Header()
		if !matchesInclude(o.Include, hdr.Path) {
			continue
		}
		e := newEntry(hdr)
		if o.Digest != 0 && (hdr.Type == tar.TypeReg || hdr.Type == tar.TypeRegA) {
			d := o.Digest.NewDigester()
			if _, err := io.Copy(d, tr); err != nil {
				return nil, errors.WithContext(err, "path", hdr.Path)
			}
			e.Digest = d.Digest()
		}
		m.add(e)
	}
}

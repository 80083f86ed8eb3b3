package archiver

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/go/archive/checksum"
	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/fs/core"
	"github.com/jmgilman/go/archive/internal/logging"
	"github.com/jmgilman/go/archive/tar"
)

// member is one file found under the pack root.
type member struct {
	path string // filesystem path
	rel  string // archive path
	info os.FileInfo
}

// Pack archives the tree rooted at root on fsys into out and returns a
// manifest of what it wrote.
//
// Headers are staged concurrently; entries are written in walk order, so
// the output is deterministic for a given tree. Symlinks are archived as
// links, which requires fsys to implement core.SymlinkFS. out is not
// closed.
func Pack(ctx context.Context, fsys core.FS, root string, out io.Writer, opts ...Option) (m *Manifest, err error) {
	o := buildOptions(opts)
	log := o.Logger.WithOperation(logging.OpPack).WithPath(root)
	start := time.Now()
	defer func() {
		var entries int
		var size int64
		if m != nil {
			entries, size = len(m.Entries), m.TotalSize
		}
		logging.LogOperation(ctx, log, logging.OpPack, time.Since(start), entries, size, err)
	}()

	if fsys == nil || out == nil {
		return nil, errors.New(errors.CodeInvalidInput, "filesystem and output are required")
	}
	if o.Digest != 0 {
		if err := o.Digest.Valid(); err != nil {
			return nil, err
		}
	}
	if _, err := fsys.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithContext(errors.New(errors.CodeNotFound, "source directory does not exist"), "path", root)
		}
		return nil, errors.Wrap(err, errors.CodeIO, "failed to stat source directory")
	}

	members, total, err := collect(fsys, root)
	if err != nil {
		return nil, err
	}
	headers, err := stage(ctx, fsys, members, o)
	if err != nil {
		return nil, err
	}

	cw, err := compress.CompressStream(out, o.Compression)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(cw, o.tarOptions()...)

	m = newManifest(o.Compression)
	var written int64
	for i, hdr := range headers {
		e, err := writeMember(ctx, fsys, tw, members[i].path, hdr, o, func(n int64) {
			written += n
			if o.Progress != nil {
				o.Progress(written, total)
			}
		})
		if err != nil {
			return nil, errors.WithContext(err, "path", hdr.Path)
		}
		log.Debug(ctx, "member archived", "path", hdr.Path, "size", hdr.Size)
		m.add(e)
	}

	if err := tw.CloseArchive(ctx); err != nil {
		return nil, err
	}
	if err := cw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to flush compressor")
	}
	return m, nil
}

// collect walks root and returns every member below it along with the
// total payload size of regular files.
func collect(fsys core.FS, root string) ([]member, int64, error) {
	var members []member
	var total int64
	err := fsys.Walk(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		members = append(members, member{path: p, rel: filepath.ToSlash(rel), info: info})
		return nil
	})
	if err != nil {
		return nil, 0, errors.WithContext(errors.Wrap(err, errors.CodeIO, "failed to walk source directory"), "path", root)
	}
	return members, total, nil
}

// stage builds the header of every member, reading symlink targets
// concurrently.
func stage(ctx context.Context, fsys core.FS, members []member, o Options) ([]*tar.Header, error) {
	links, _ := fsys.(core.SymlinkFS)
	headers := make([]*tar.Header, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)

	for i, mb := range members {
		i, mb := i, mb
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return errors.Wrap(err, errors.CodeCanceled, "archiving canceled")
			}

			var link string
			if mb.info.Mode()&os.ModeSymlink != 0 {
				if links == nil {
					return errors.WithContext(errors.Wrap(core.ErrUnsupported, errors.CodeIO, "failed to read symlink"), "path", mb.path)
				}
				target, err := links.Readlink(mb.path)
				if err != nil {
					return errors.WithContext(errors.Wrap(err, errors.CodeIO, "failed to read symlink"), "path", mb.path)
				}
				link = filepath.ToSlash(target)
			}

			hdr, err := tar.FileInfoHeader(mb.info, link)
			if err != nil {
				return err
			}
			hdr.Path = mb.rel
			if hdr.Type == tar.TypeDir {
				hdr.Path += "/"
			}
			hdr.Dialect = o.Dialect
			if o.Dialect != tar.DialectPAX {
				// Only PAX records carry sub-second times.
				hdr.ModTime.Nanoseconds = 0
			}
			headers[i] = hdr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return headers, nil
}

// writeMember writes one header and, for regular files, exactly Size bytes
// of content.
func writeMember(
	ctx context.Context,
	fsys core.FS,
	tw *tar.Writer,
	p string,
	hdr *tar.Header,
	o Options,
	progress func(int64),
) (Entry, error) {
	e := newEntry(hdr)
	if err := tw.CreateEntry(ctx, hdr); err != nil {
		return e, err
	}
	if hdr.Type != tar.TypeReg {
		return e, tw.CloseEntry()
	}

	f, err := fsys.Open(p)
	if err != nil {
		return e, errors.Wrap(err, errors.CodeIO, "failed to open file")
	}
	defer f.Close()

	dst := io.Writer(tw)
	var d *checksum.Digester
	if o.Digest != 0 {
		d = o.Digest.NewDigester()
		dst = io.MultiWriter(tw, d)
	}

	n, err := io.CopyN(dst, f, hdr.Size)
	progress(n)
	if err != nil && err != io.EOF {
		return e, errors.Wrap(err, errors.CodeIO, "failed to copy file content")
	}
	// A file that shrank since it was stat'ed leaves the entry short and
	// CloseEntry reports it.
	if err := tw.CloseEntry(); err != nil {
		return e, err
	}
	if d != nil {
		e.Digest = d.Digest()
	}
	return e, nil
}

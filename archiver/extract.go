package archiver

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/jmgilman/go/archive/checksum"
	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/fs/core"
	"github.com/jmgilman/go/archive/internal/logging"
	"github.com/jmgilman/go/archive/internal/validate"
	"github.com/jmgilman/go/archive/tar"
)

// extraction is the state of one Extract call.
type extraction struct {
	fsys   core.FS
	meta   core.MetadataFS // nil when fsys has no metadata support
	links  core.SymlinkFS  // nil when fsys has no symlinks
	target string
	opts   Options
	log    *logging.Logger

	validators *ValidatorChain
	paths      *validate.PathValidator
	stats      ArchiveStats
	written    int64

	// dirs get their mode and times after every member is written, since
	// creating children updates a directory's mtime and a read-only mode
	// would block them.
	dirs []dirMeta
}

type dirMeta struct {
	path string
	hdr  *tar.Header
}

// Extract unpacks the archive read from in below target on fsys. The
// compression is detected from the stream.
//
// Every member is validated before anything is written for it: paths must
// stay inside target, symlink targets must resolve inside target and the
// configured size and count limits apply. Violations fail the extraction
// with SECURITY_VIOLATION. Device and FIFO members are skipped, as are
// symlinks when fsys does not implement core.SymlinkFS. Modes and times
// are applied when fsys implements core.MetadataFS.
func Extract(ctx context.Context, in io.Reader, fsys core.FS, target string, opts ...Option) (m *Manifest, err error) {
	o := buildOptions(opts)
	log := o.Logger.WithOperation(logging.OpExtract).WithPath(target)
	start := time.Now()
	defer func() {
		var entries int
		var size int64
		if m != nil {
			entries, size = len(m.Entries), m.TotalSize
		}
		logging.LogOperation(ctx, log, logging.OpExtract, time.Since(start), entries, size, err)
	}()

	if in == nil || fsys == nil {
		return nil, errors.New(errors.CodeInvalidInput, "input and filesystem are required")
	}
	if target == "" {
		return nil, errors.New(errors.CodeInvalidInput, "target directory cannot be empty")
	}

	rc, c, err := compress.DecompressStream(in)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if err := fsys.MkdirAll(target, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to create target directory")
	}

	x := &extraction{
		fsys:   fsys,
		target: target,
		opts:   o,
		log:    log,
		paths:  validate.NewPathValidator(),
		validators: NewValidatorChain(
			NewSizeValidator(o.MaxFileSize, o.MaxSize),
			NewFileCountValidator(o.MaxFiles),
		),
	}
	x.meta, _ = fsys.(core.MetadataFS)
	x.links, _ = fsys.(core.SymlinkFS)
	x.paths.AllowHidden = o.AllowHidden
	if !o.PreservePermissions {
		x.validators.Add(NewPermissionSanitizer())
	}

	m = newManifest(c)
	tr := tar.NewReader(rc, o.tarOptions()...)
	for {
		ok, err := tr.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		hdr := tr.Header()
		e, extracted, err := x.member(ctx, tr, hdr)
		if err != nil {
			return nil, errors.WithContext(err, "path", hdr.Path)
		}
		if extracted {
			m.add(e)
		}
	}

	x.applyDirMeta(ctx)
	return m, nil
}

// member validates and writes one entry. It reports false for members
// that were filtered out or skipped.
func (x *extraction) member(ctx context.Context, tr *tar.Reader, hdr *tar.Header) (Entry, bool, error) {
	e := newEntry(hdr)
	if err := x.paths.ValidatePath(hdr.Path); err != nil {
		return e, false, err
	}

	rel, ok := x.strip(hdr.Path)
	if !ok || !matchesInclude(x.opts.Include, hdr.Path) {
		return e, false, nil
	}

	x.stats.TotalFiles++
	x.stats.TotalSize += hdr.Size
	if err := x.validators.ValidateFile(FileInfo{Name: hdr.Path, Size: hdr.Size, Mode: hdr.Mode}); err != nil {
		return e, false, err
	}
	if err := x.validators.ValidateArchive(x.stats); err != nil {
		return e, false, err
	}

	full, err := x.join(rel)
	if err != nil {
		return e, false, err
	}
	if err := x.fsys.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return e, false, errors.Wrap(err, errors.CodeIO, "failed to create parent directory")
	}

	switch hdr.Type {
	case tar.TypeDir:
		// Owner access is kept until applyDirMeta so members below can be
		// written.
		if err := x.fsys.MkdirAll(full, x.mode(hdr, 0o755)|0o700); err != nil {
			return e, false, errors.Wrap(err, errors.CodeIO, "failed to create directory")
		}
		x.dirs = append(x.dirs, dirMeta{path: full, hdr: hdr})
		return e, true, nil

	case tar.TypeReg, tar.TypeRegA:
		d, err := x.writeFile(full, tr, hdr)
		if err != nil {
			return e, false, err
		}
		e.Digest = d
		x.chmod(ctx, full, hdr)
		x.chtimes(ctx, full, hdr)
		return e, true, nil

	case tar.TypeSymlink:
		if err := x.paths.ValidateSymlink(rel, hdr.LinkPath); err != nil {
			return e, false, err
		}
		if x.links == nil {
			x.log.Warn(ctx, "skipping symlink on a filesystem without symlinks", "path", hdr.Path)
			return e, false, nil
		}
		if err := x.replace(full); err != nil {
			return e, false, err
		}
		if err := x.links.Symlink(hdr.LinkPath, full); err != nil {
			return e, false, errors.Wrap(err, errors.CodeIO, "failed to create symlink")
		}
		return e, true, nil

	case tar.TypeLink:
		if err := x.paths.ValidateHardlink(hdr.Path, hdr.LinkPath); err != nil {
			return e, false, err
		}
		if err := x.link(full, hdr); err != nil {
			return e, false, err
		}
		return e, true, nil
	}

	x.log.Warn(ctx, "skipping unsupported member type", "path", hdr.Path, "type", hdr.Type.String())
	return e, false, nil
}

// strip removes StripPrefix from p when it is a leading run of whole
// components. It reports false when nothing is left.
func (x *extraction) strip(p string) (string, bool) {
	if prefix := strings.Trim(x.opts.StripPrefix, "/"); prefix != "" {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			p = strings.TrimPrefix(p[len(prefix):], "/")
		}
	}
	p = strings.TrimSuffix(p, "/")
	return p, p != "" && p != "."
}

// join resolves an archive path below the target.
func (x *extraction) join(rel string) (string, error) {
	root := filepath.Clean(x.target)
	full := filepath.Join(root, filepath.FromSlash(rel))
	prefix := strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	if root != "." && full != root && !strings.HasPrefix(full, prefix) {
		return "", securityViolation("path escapes target directory", map[string]interface{}{"path": rel})
	}
	return full, nil
}

// mode returns the permissions a member is created with.
func (x *extraction) mode(hdr *tar.Header, fallback os.FileMode) os.FileMode {
	if hdr.Mode == 0 {
		return fallback
	}
	h := *hdr
	if !x.opts.PreservePermissions {
		h.Mode = SanitizePermissions(h.Mode)
	}
	return h.FileMode() &^ os.ModeType
}

// replace removes a symlink or file already at full so a new member never
// writes through a link planted by an earlier one.
func (x *extraction) replace(full string) error {
	info, err := x.lstat(full)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		return securityViolation("member would replace a directory", map[string]interface{}{"path": full})
	}
	if err := x.fsys.Remove(full); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to replace existing file")
	}
	return nil
}

func (x *extraction) writeFile(full string, r io.Reader, hdr *tar.Header) (digest.Digest, error) {
	if err := x.replace(full); err != nil {
		return "", err
	}
	f, err := x.fsys.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, x.mode(hdr, 0o644))
	if err != nil {
		return "", errors.Wrap(err, errors.CodeIO, "failed to create file")
	}

	dst := io.Writer(f)
	var d *checksum.Digester
	if x.opts.Digest != 0 {
		d = x.opts.Digest.NewDigester()
		dst = io.MultiWriter(f, d)
	}

	n, err := io.Copy(dst, r)
	cerr := f.Close()
	x.written += n
	if x.opts.Progress != nil {
		x.opts.Progress(x.written, 0)
	}
	if err != nil {
		if errors.GetCode(err) != errors.CodeUnknown {
			return "", err
		}
		return "", errors.Wrap(err, errors.CodeIO, "failed to write file content")
	}
	if cerr != nil {
		return "", errors.Wrap(cerr, errors.CodeIO, "failed to close file")
	}
	if d == nil {
		return "", nil
	}
	return d.Digest(), nil
}

// link materializes a hard link by copying the already extracted target,
// since core.FS has no link operation.
func (x *extraction) link(full string, hdr *tar.Header) error {
	rel, ok := x.strip(hdr.LinkPath)
	if !ok {
		return securityViolation("hard link target removed by prefix", map[string]interface{}{"target": hdr.LinkPath})
	}
	src, err := x.join(rel)
	if err != nil {
		return err
	}
	info, err := x.lstat(src)
	if err != nil {
		return errors.WithContext(errors.Wrap(err, errors.CodeNotFound, "hard link target not extracted"), "target", hdr.LinkPath)
	}
	if !info.Mode().IsRegular() {
		return securityViolation("hard link target is not a regular file", map[string]interface{}{"target": hdr.LinkPath})
	}

	if err := x.replace(full); err != nil {
		return err
	}
	if err := core.CopyFile(x.fsys, src, full, info.Mode().Perm()); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to copy hard link content")
	}
	return nil
}

// lstat describes p without following a final symlink when fsys can.
func (x *extraction) lstat(p string) (os.FileInfo, error) {
	if x.meta != nil {
		return x.meta.Lstat(p)
	}
	return x.fsys.Stat(p)
}

// metaFailed logs a metadata change that failed for a reason other than
// the filesystem not supporting it.
func (x *extraction) metaFailed(ctx context.Context, op, full string, err error) {
	if err != nil && !errors.Is(err, core.ErrUnsupported) {
		x.log.Warn(ctx, "failed to apply "+op, "path", full, "error", err.Error())
	}
}

func (x *extraction) chmod(ctx context.Context, full string, hdr *tar.Header) {
	if x.meta == nil || hdr.Mode == 0 {
		return
	}
	x.metaFailed(ctx, "mode", full, x.meta.Chmod(full, x.mode(hdr, 0o644)))
}

func (x *extraction) chtimes(ctx context.Context, full string, hdr *tar.Header) {
	if x.meta == nil {
		return
	}
	atime := hdr.ModTime.Time()
	if hdr.AccessTime != nil {
		atime = hdr.AccessTime.Time()
	}
	x.metaFailed(ctx, "times", full, x.meta.Chtimes(full, atime, hdr.ModTime.Time()))
}

// applyDirMeta sets directory modes and times deepest first.
func (x *extraction) applyDirMeta(ctx context.Context) {
	for i := len(x.dirs) - 1; i >= 0; i-- {
		d := x.dirs[i]
		x.chmod(ctx, d.path, d.hdr)
		x.chtimes(ctx, d.path, d.hdr)
	}
}

package billy

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/jmgilman/go/archive/fs/core"
)

// FS adapts a billy.Filesystem to core.FS. It also implements
// core.MetadataFS and core.SymlinkFS. Chmod and Chtimes use billy.Change
// when the wrapped filesystem has it, go straight to the host for local
// filesystems and otherwise return core.ErrUnsupported.
type FS struct {
	bfs billy.Filesystem
	typ core.FSType
}

// New wraps an existing billy filesystem.
func New(bfs billy.Filesystem) *FS {
	return &FS{bfs: bfs, typ: core.FSTypeUnknown}
}

// NewLocal creates a local filesystem rooted at root.
func NewLocal(root string) *FS {
	return &FS{bfs: osfs.New(root), typ: core.FSTypeLocal}
}

// NewMemory creates an empty in-memory filesystem.
func NewMemory() *FS {
	return &FS{bfs: memfs.New(), typ: core.FSTypeMemory}
}

// Unwrap returns the underlying billy.Filesystem.
func (b *FS) Unwrap() billy.Filesystem {
	return b.bfs
}

// Type returns the filesystem type the adapter was created with.
func (b *FS) Type() core.FSType {
	return b.typ
}

// normalize converts paths to use forward slashes consistently.
func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// dirEntry wraps fs.FileInfo to implement fs.DirEntry.
type dirEntry struct {
	info fs.FileInfo
}

func (d *dirEntry) Name() string               { return d.info.Name() }
func (d *dirEntry) IsDir() bool                { return d.info.IsDir() }
func (d *dirEntry) Type() fs.FileMode          { return d.info.Mode().Type() }
func (d *dirEntry) Info() (fs.FileInfo, error) { return d.info, nil }

// Open opens the named file for reading.
func (b *FS) Open(name string) (fs.File, error) {
	name = normalize(name)
	f, err := b.bfs.Open(name)
	if err != nil {
		return nil, err
	}
	return &File{file: f, fs: b.bfs, name: name}, nil
}

// Stat returns file metadata for the named file.
func (b *FS) Stat(name string) (fs.FileInfo, error) {
	return b.bfs.Stat(normalize(name))
}

// ReadFile reads the named file and returns its contents.
func (b *FS) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(b.bfs, normalize(name))
}

// Exists reports whether the named file or directory exists.
func (b *FS) Exists(name string) (bool, error) {
	_, err := b.bfs.Stat(normalize(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Create creates or truncates the named file for writing.
func (b *FS) Create(name string) (core.File, error) {
	name = normalize(name)
	f, err := b.bfs.Create(name)
	if err != nil {
		return nil, err
	}
	return &File{file: f, fs: b.bfs, name: name}, nil
}

// OpenFile opens a file with the specified flags and permissions.
func (b *FS) OpenFile(name string, flag int, perm fs.FileMode) (core.File, error) {
	name = normalize(name)
	f, err := b.bfs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &File{file: f, fs: b.bfs, name: name}, nil
}

// WriteFile writes data to the named file, creating it if necessary.
func (b *FS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return util.WriteFile(b.bfs, normalize(name), data, perm)
}

// MkdirAll creates a directory named path, along with any necessary parents.
func (b *FS) MkdirAll(path string, perm fs.FileMode) error {
	return b.bfs.MkdirAll(normalize(path), perm)
}

// Remove removes the named file or empty directory.
func (b *FS) Remove(name string) error {
	return b.bfs.Remove(normalize(name))
}

// RemoveAll removes path and any children it contains.
func (b *FS) RemoveAll(path string) error {
	return util.RemoveAll(b.bfs, normalize(path))
}

// Rename renames (moves) oldpath to newpath.
func (b *FS) Rename(oldpath, newpath string) error {
	return b.bfs.Rename(normalize(oldpath), normalize(newpath))
}

// Walk walks the file tree rooted at root, calling walkFn for each file or
// directory in the tree, including root. Entries are described by Lstat,
// so symbolic links are reported and never followed.
func (b *FS) Walk(root string, walkFn fs.WalkDirFunc) error {
	root = normalize(root)
	info, err := b.bfs.Lstat(root)
	if err != nil {
		err = walkFn(root, nil, err)
	} else {
		err = b.walk(root, &dirEntry{info: info}, walkFn)
	}
	if errors.Is(err, fs.SkipDir) || errors.Is(err, fs.SkipAll) {
		return nil
	}
	return err
}

func (b *FS) walk(path string, d fs.DirEntry, walkFn fs.WalkDirFunc) error {
	if err := walkFn(path, d, nil); err != nil || !d.IsDir() {
		if errors.Is(err, fs.SkipDir) && d.IsDir() {
			err = nil
		}
		return err
	}

	entries, err := b.bfs.ReadDir(path)
	if err != nil {
		if err := walkFn(path, d, err); err != nil {
			return err
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		next := normalize(filepath.Join(path, entry.Name()))
		if err := b.walk(next, &dirEntry{info: entry}, walkFn); err != nil {
			if errors.Is(err, fs.SkipDir) {
				continue
			}
			return err
		}
	}
	return nil
}

// Lstat returns file info without following symbolic links.
func (b *FS) Lstat(name string) (fs.FileInfo, error) {
	return b.bfs.Lstat(normalize(name))
}

// Chmod changes the mode of the named file.
func (b *FS) Chmod(name string, mode fs.FileMode) error {
	if ch, ok := b.bfs.(billy.Change); ok {
		return ch.Chmod(normalize(name), mode)
	}
	if p, ok := b.hostPath(name); ok {
		return os.Chmod(p, mode)
	}
	return core.ErrUnsupported
}

// Chtimes changes the access and modification times of the named file.
func (b *FS) Chtimes(name string, atime, mtime time.Time) error {
	if ch, ok := b.bfs.(billy.Change); ok {
		return ch.Chtimes(normalize(name), atime, mtime)
	}
	if p, ok := b.hostPath(name); ok {
		return os.Chtimes(p, atime, mtime)
	}
	return core.ErrUnsupported
}

// hostPath maps name to a path on the host for local filesystems, whose
// billy implementation has no metadata operations.
func (b *FS) hostPath(name string) (string, bool) {
	if b.typ != core.FSTypeLocal {
		return "", false
	}
	return filepath.Join(b.bfs.Root(), filepath.Clean(string(filepath.Separator)+filepath.FromSlash(name))), true
}

// Symlink creates a symbolic link named newname pointing to oldname.
func (b *FS) Symlink(oldname, newname string) error {
	return b.bfs.Symlink(oldname, normalize(newname))
}

// Readlink returns the destination of the named symbolic link.
func (b *FS) Readlink(name string) (string, error) {
	return b.bfs.Readlink(normalize(name))
}

// Compile-time interface checks.
var (
	_ core.FS         = (*FS)(nil)
	_ core.MetadataFS = (*FS)(nil)
	_ core.SymlinkFS  = (*FS)(nil)
)

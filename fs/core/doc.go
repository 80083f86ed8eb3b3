// Package core defines the filesystem interfaces the archiver works
// against.
//
// FS covers the operations every provider supports: reading, writing,
// management and walking. Optional capabilities are separate interfaces
// discovered with a type assertion:
//
//   - MetadataFS: Lstat, Chmod and Chtimes
//   - SymlinkFS: Symlink and Readlink
//
// A provider that implements an optional interface but whose backend
// cannot perform the operation returns ErrUnsupported, so callers can tell
// "not possible here" apart from a real failure:
//
//	if mfs, ok := fsys.(core.MetadataFS); ok {
//	    if err := mfs.Chmod(name, 0o640); err != nil && !errors.Is(err, core.ErrUnsupported) {
//	        return err
//	    }
//	}
//
// The errors re-exported here match the io/fs sentinels, so errors.Is
// works with either.
package core

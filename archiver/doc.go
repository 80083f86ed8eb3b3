// Package archiver moves directory trees in and out of tar archives on
// core.FS filesystems.
//
// Pack walks a tree and writes it through the tar codec, optionally
// compressed:
//
//	fs := billy.NewLocal("/")
//	f, _ := fs.Create("/tmp/site.tar.zst")
//	defer f.Close()
//	m, err := archiver.Pack(ctx, fs, "/srv/site", f,
//	    archiver.WithCompression(compress.Zstd),
//	    archiver.WithDigest(checksum.SHA256))
//
// Extract detects the compression, validates every member and writes the
// tree below a target directory:
//
//	m, err := archiver.Extract(ctx, r, fs, "/tmp/out",
//	    archiver.WithLimits(1000, 512<<20, 64<<20),
//	    archiver.WithStripPrefix("site"))
//
// Modes and times are applied when the filesystem implements
// core.MetadataFS; symlinks need core.SymlinkFS.
//
// Members that would escape the target, symlinks that resolve outside it,
// setuid and setgid files and archives over the configured limits are
// rejected with SECURITY_VIOLATION before anything is written for them.
//
// List and Convert read an archive without touching a filesystem: List
// returns its Manifest and Convert rewrites it in another dialect or
// compression.
package archiver

// Package compress wraps archive streams in the compression formats tar
// archives commonly travel in.
//
// Decompression sniffs the stream's magic bytes, so callers never need to
// know up front whether an archive is compressed. Compression is explicit:
// pick a Compression by name, by file extension or by value.
package compress

import (
	"bytes"
	"strings"

	"github.com/jmgilman/go/archive/errors"
)

// Compression identifies a stream compression format.
type Compression int

const (
	None  Compression = 0 // None is an uncompressed stream.
	Bzip2 Compression = 1 // Bzip2 is bzip2, readable only.
	Gzip  Compression = 2 // Gzip is gzip.
	Xz    Compression = 3 // Xz is xz.
	Zstd  Compression = 4 // Zstd is zstandard.
)

var names = map[Compression]string{
	None:  "none",
	Bzip2: "bzip2",
	Gzip:  "gzip",
	Xz:    "xz",
	Zstd:  "zstd",
}

// String returns the compression name.
func (c Compression) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "unknown"
}

// Extension returns the file extension of a tar archive in this format.
func (c Compression) Extension() string {
	switch c {
	case None:
		return "tar"
	case Bzip2:
		return "tar.bz2"
	case Gzip:
		return "tar.gz"
	case Xz:
		return "tar.xz"
	case Zstd:
		return "tar.zst"
	}
	return ""
}

// ParseCompression maps a name such as "gzip" or "zst" to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none", "tar":
		return None, nil
	case "gzip", "gz", "tgz":
		return Gzip, nil
	case "bzip2", "bz2":
		return Bzip2, nil
	case "xz", "txz":
		return Xz, nil
	case "zstd", "zst":
		return Zstd, nil
	}
	return None, errors.WithContext(
		errors.New(errors.CodeUnsupportedFormat, "unknown compression"),
		"name", s)
}

// FromFilename guesses the compression of an archive from its name. Names
// it does not recognize are treated as uncompressed.
func FromFilename(name string) Compression {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return Gzip
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return Bzip2
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return Xz
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return Zstd
	}
	return None
}

var (
	bzip2Magic = []byte{0x42, 0x5A, 0x68}
	gzipMagic  = []byte{0x1F, 0x8B, 0x08}
	xzMagic    = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// zstd skippable frames use magic numbers 0x184D2A50 through 0x184D2A5F.
func isZstdSkippable(source []byte) bool {
	return len(source) >= 4 &&
		source[0]&0xf0 == 0x50 && source[1] == 0x2a && source[2] == 0x4d && source[3] == 0x18
}

// Detect returns the compression whose magic bytes start source.
func Detect(source []byte) Compression {
	switch {
	case bytes.HasPrefix(source, bzip2Magic):
		return Bzip2
	case bytes.HasPrefix(source, gzipMagic):
		return Gzip
	case bytes.HasPrefix(source, xzMagic):
		return Xz
	case bytes.HasPrefix(source, zstdMagic), isZstdSkippable(source):
		return Zstd
	}
	return None
}

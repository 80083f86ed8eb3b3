package testutil

import (
	"fmt"
	"strings"
)

// PathTraversalArchive returns an archive whose entries try to escape the
// extraction root, followed by one legitimate file.
func PathTraversalArchive() []byte {
	b := NewArchiveBuilder()
	for _, name := range []string{
		"../../../etc/passwd",
		"subdir/../../../root.txt",
		"/etc/shadow",
		"normal-file.txt",
	} {
		b.AddFile(name, "content")
	}
	return b.End()
}

// SymlinkEscapeArchive returns an archive with a symlink pointing outside
// the extraction root and a file written through it.
func SymlinkEscapeArchive() []byte {
	return NewArchiveBuilder().
		Add(RawEntry{Name: "escape", Type: '2', Linkname: "../../outside", Mode: 0o777}).
		AddFile("escape/owned.txt", "pwned").
		End()
}

// FileCountBomb returns an archive of n empty files.
func FileCountBomb(n int) []byte {
	b := NewArchiveBuilder()
	for i := 0; i < n; i++ {
		b.AddFile(fmt.Sprintf("file-%05d.txt", i), "")
	}
	return b.End()
}

// HeaderChainBomb returns an archive where n PAX extended headers precede
// a single entry.
func HeaderChainBomb(n int) []byte {
	b := NewArchiveBuilder()
	for i := 0; i < n; i++ {
		b.AddPAX('x', PAXRecord("comment", fmt.Sprint(i)))
	}
	return b.AddFile("victim.txt", "x").End()
}

// OversizedPAXArchive returns an archive whose extended header declares
// size bytes of records.
func OversizedPAXArchive(size int) []byte {
	value := strings.Repeat("a", size)
	return NewArchiveBuilder().
		AddPAX('x', PAXRecord("comment", value)).
		AddFile("victim.txt", "x").
		End()
}

// LargeFileArchive returns an archive declaring one file of size bytes
// whose payload is filled with 'x'.
func LargeFileArchive(size int) []byte {
	return NewArchiveBuilder().
		Add(RawEntry{Name: "large.bin", Mode: 0o644, Type: '0', Payload: []byte(strings.Repeat("x", size))}).
		End()
}

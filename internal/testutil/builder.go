// Package testutil builds raw tar streams for tests.
//
// The builders here format header blocks byte by byte, independently of
// the tar package, so tests can feed the codec inputs it would never
// produce itself: mixed dialects, broken checksums, hostile header chains.
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// BlockSize is the tar block size.
const BlockSize = 512

// Magic values for RawEntry.Magic.
const (
	MagicUSTAR = "ustar\x0000"
	MagicGNU   = "ustar  \x00"
)

// RawEntry describes one header block field by field. Zero values produce
// an empty field, except Magic which defaults to MagicUSTAR.
type RawEntry struct {
	Name     string
	Mode     int64
	UID      int64
	GID      int64
	Size     int64
	ModTime  int64
	Type     byte
	Linkname string
	Magic    string
	Uname    string
	Gname    string
	Prefix   string

	// Payload is written after the header and padded. When Size is zero
	// it defaults to len(Payload).
	Payload []byte

	// Checksum, when non-zero, replaces the computed checksum.
	Checksum int64
}

// HeaderBlock formats e as a 512-byte header block.
func HeaderBlock(e RawEntry) []byte {
	b := make([]byte, BlockSize)
	size := e.Size
	if size == 0 {
		size = int64(len(e.Payload))
	}
	magic := e.Magic
	if magic == "" {
		magic = MagicUSTAR
	}

	copy(b[0:100], e.Name)
	putOctal(b[100:108], e.Mode)
	putOctal(b[108:116], e.UID)
	putOctal(b[116:124], e.GID)
	putOctal(b[124:136], size)
	putOctal(b[136:148], e.ModTime)
	b[156] = e.Type
	copy(b[157:257], e.Linkname)
	copy(b[257:265], magic)
	copy(b[265:297], e.Uname)
	copy(b[297:329], e.Gname)
	copy(b[345:500], e.Prefix)

	sum := e.Checksum
	if sum == 0 {
		sum = Checksum(b)
	}
	copy(b[148:156], fmt.Sprintf("%06o\x00 ", sum))
	return b
}

// Checksum returns the unsigned header checksum of b with the checksum
// field read as spaces.
func Checksum(b []byte) int64 {
	var sum int64
	for i, c := range b[:BlockSize] {
		if i >= 148 && i < 156 {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}

func putOctal(dst []byte, v int64) {
	copy(dst, fmt.Sprintf("%0*o\x00", len(dst)-1, v))
}

// PAXRecord formats one "len key=value\n" record.
func PAXRecord(key, value string) string {
	body := " " + key + "=" + value + "\n"
	n := len(body) + 1
	for len(fmt.Sprint(n))+len(body) != n {
		n++
	}
	return fmt.Sprint(n) + body
}

// ArchiveBuilder accumulates raw blocks into a tar stream.
type ArchiveBuilder struct {
	buf bytes.Buffer
}

// NewArchiveBuilder returns an empty builder.
func NewArchiveBuilder() *ArchiveBuilder {
	return &ArchiveBuilder{}
}

// Add appends a header block and its padded payload.
func (a *ArchiveBuilder) Add(e RawEntry) *ArchiveBuilder {
	a.buf.Write(HeaderBlock(e))
	a.buf.Write(e.Payload)
	if pad := len(e.Payload) % BlockSize; pad != 0 {
		a.buf.Write(make([]byte, BlockSize-pad))
	}
	return a
}

// AddFile appends a regular file entry.
func (a *ArchiveBuilder) AddFile(name, content string) *ArchiveBuilder {
	return a.Add(RawEntry{Name: name, Mode: 0o644, Type: '0', Payload: []byte(content)})
}

// AddPAX appends an extended header of type typ ('x' or 'g') holding the
// given records verbatim.
func (a *ArchiveBuilder) AddPAX(typ byte, records ...string) *ArchiveBuilder {
	payload := strings.Join(records, "")
	return a.Add(RawEntry{Name: "PaxHeaders.0/entry", Mode: 0o644, Type: typ, Payload: []byte(payload)})
}

// AddLongName appends a GNU continuation entry of type typ ('L' or 'K').
func (a *ArchiveBuilder) AddLongName(typ byte, text string) *ArchiveBuilder {
	return a.Add(RawEntry{
		Name:    "././@LongLink",
		Type:    typ,
		Magic:   MagicGNU,
		Payload: append([]byte(text), 0),
	})
}

// AddRaw appends arbitrary bytes.
func (a *ArchiveBuilder) AddRaw(b []byte) *ArchiveBuilder {
	a.buf.Write(b)
	return a
}

// AddZeroBlock appends one zero block.
func (a *ArchiveBuilder) AddZeroBlock() *ArchiveBuilder {
	a.buf.Write(make([]byte, BlockSize))
	return a
}

// End appends the end-of-archive marker and returns the stream.
func (a *ArchiveBuilder) End() []byte {
	a.buf.Write(make([]byte, 2*BlockSize))
	return a.Bytes()
}

// Bytes returns the stream built so far.
func (a *ArchiveBuilder) Bytes() []byte {
	return bytes.Clone(a.buf.Bytes())
}

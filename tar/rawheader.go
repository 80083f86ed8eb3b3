package tar

import (
	"bytes"
	"strings"

	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/internal/blockdev"
)

// rawHeader is the byte-exact 512-byte header layout. The GNU layout
// reuses the ustar prefix area for access and change times.
type rawHeader blockdev.Block

func (h *rawHeader) name() []byte     { return h[0:][:100] }
func (h *rawHeader) mode() []byte     { return h[100:][:8] }
func (h *rawHeader) uid() []byte      { return h[108:][:8] }
func (h *rawHeader) gid() []byte      { return h[116:][:8] }
func (h *rawHeader) size() []byte     { return h[124:][:12] }
func (h *rawHeader) modTime() []byte  { return h[136:][:12] }
func (h *rawHeader) chksum() []byte   { return h[148:][:8] }
func (h *rawHeader) typeFlag() []byte { return h[156:][:1] }
func (h *rawHeader) linkName() []byte { return h[157:][:100] }
func (h *rawHeader) magic() []byte    { return h[257:][:6] }
func (h *rawHeader) version() []byte  { return h[263:][:2] }
func (h *rawHeader) userName() []byte { return h[265:][:32] }
func (h *rawHeader) groupName() []byte {
	return h[297:][:32]
}
func (h *rawHeader) devMajor() []byte   { return h[329:][:8] }
func (h *rawHeader) devMinor() []byte   { return h[337:][:8] }
func (h *rawHeader) prefix() []byte     { return h[345:][:155] }
func (h *rawHeader) accessTime() []byte { return h[345:][:12] }
func (h *rawHeader) changeTime() []byte { return h[357:][:12] }

// checksum returns the unsigned byte sum of the block with the chksum
// field read as eight spaces.
func (h *rawHeader) checksum() int64 {
	var sum int64
	for i, c := range h {
		if 148 <= i && i < 156 {
			c = ' '
		}
		sum += int64(c)
	}
	return sum
}

// dialect reports the dialect named by the magic and version fields.
func (h *rawHeader) dialect() Dialect {
	switch {
	case string(h.magic()) == magicUSTAR && string(h.version()) == versionUSTAR:
		return DialectUSTAR
	case string(h.magic()) == magicGNU && string(h.version()) == versionGNU:
		return DialectGNU
	}
	return DialectUnknown
}

// cString returns the bytes before the first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// terminatedString is cString for fields that must hold a NUL.
func terminatedString(field string, b []byte) (string, error) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return "", errors.WithContext(
			errors.Newf(errors.CodeMalformedHeader, "%s is not NUL-terminated", field),
			"field", field)
	}
	return string(b[:i]), nil
}

// decodeHeader validates a header block and converts it into a Header.
// The returned header carries the raw type flag; extension types are
// resolved by the Reader.
func decodeHeader(h *rawHeader) (*Header, error) {
	stored, err := decodeNumeric("chksum", h.chksum())
	if err != nil {
		return nil, err
	}
	if sum := h.checksum(); stored.Value != sum {
		return nil, errors.WithContextMap(
			errors.New(errors.CodeMalformedHeader, "header checksum mismatch"),
			map[string]interface{}{"stored": stored.Value, "computed": sum})
	}

	hdr := &Header{
		Path:     cString(h.name()),
		LinkPath: cString(h.linkName()),
		Type:     TypeFlag(h.typeFlag()[0]),
		Dialect:  h.dialect(),
	}
	if hdr.Dialect == DialectUnknown {
		return nil, errors.WithContext(
			errors.New(errors.CodeMalformedHeader, "unrecognized header magic"),
			"magic", string(h[257:265]))
	}
	if hdr.Type == TypeRegA {
		hdr.Type = TypeReg
	}

	if hdr.UserName, err = terminatedString("uname", h.userName()); err != nil {
		return nil, err
	}
	if hdr.GroupName, err = terminatedString("gname", h.groupName()); err != nil {
		return nil, err
	}

	fields := []struct {
		name string
		raw  []byte
		dst  *int64
	}{
		{"mode", h.mode(), &hdr.Mode},
		{"uid", h.uid(), &hdr.UID},
		{"gid", h.gid(), &hdr.GID},
		{"size", h.size(), &hdr.Size},
		{"mtime", h.modTime(), &hdr.ModTime.Seconds},
		{"devmajor", h.devMajor(), &hdr.DevMajor},
		{"devminor", h.devMinor(), &hdr.DevMinor},
	}
	for _, f := range fields {
		n, err := decodeNumeric(f.name, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = n.Value
	}
	if hdr.Size < 0 {
		return nil, errors.WithContext(
			errors.New(errors.CodeMalformedHeader, "negative entry size"),
			"size", hdr.Size)
	}

	switch hdr.Dialect {
	case DialectUSTAR:
		if prefix := cString(h.prefix()); prefix != "" {
			hdr.Path = prefix + "/" + hdr.Path
		}
	case DialectGNU:
		if hdr.AccessTime, err = decodeGNUTime("atime", h.accessTime()); err != nil {
			return nil, err
		}
		if hdr.ChangeTime, err = decodeGNUTime("ctime", h.changeTime()); err != nil {
			return nil, err
		}
	}
	return hdr, nil
}

func decodeGNUTime(field string, b []byte) (*Timestamp, error) {
	if b[0] == 0 {
		return nil, nil
	}
	n, err := decodeNumeric(field, b)
	if err != nil {
		return nil, err
	}
	return &Timestamp{Seconds: n.Value}, nil
}

// encodeHeader fills h with the fixed-field form of hdr in dialect d.
// Callers have already moved whatever does not fit into extension
// entries; name is the value for the name field and prefix the ustar
// prefix. Numbers that fit neither octal nor binary fail with
// UNREPRESENTABLE_FIELD.
func encodeHeader(h *rawHeader, hdr *Header, d Dialect, name, prefix string) error {
	(*blockdev.Block)(h).Reset()

	copy(h.name(), name)
	copy(h.linkName(), truncate(hdr.LinkPath, nameSize))
	h.typeFlag()[0] = byte(hdr.Type)
	copy(h.userName(), truncate(hdr.UserName, ownerSize-1))
	copy(h.groupName(), truncate(hdr.GroupName, ownerSize-1))

	if d == DialectGNU {
		copy(h.magic(), magicGNU)
		copy(h.version(), versionGNU)
	} else {
		copy(h.magic(), magicUSTAR)
		copy(h.version(), versionUSTAR)
		copy(h.prefix(), prefix)
	}

	fields := []struct {
		name string
		raw  []byte
		v    int64
	}{
		{"mode", h.mode(), hdr.Mode},
		{"uid", h.uid(), hdr.UID},
		{"gid", h.gid(), hdr.GID},
		{"size", h.size(), hdr.Size},
		{"mtime", h.modTime(), hdr.ModTime.Seconds},
		{"devmajor", h.devMajor(), hdr.DevMajor},
		{"devminor", h.devMinor(), hdr.DevMinor},
	}
	if d == DialectGNU {
		if hdr.AccessTime != nil {
			fields = append(fields, struct {
				name string
				raw  []byte
				v    int64
			}{"atime", h.accessTime(), hdr.AccessTime.Seconds})
		}
		if hdr.ChangeTime != nil {
			fields = append(fields, struct {
				name string
				raw  []byte
				v    int64
			}{"ctime", h.changeTime(), hdr.ChangeTime.Seconds})
		}
	}
	for _, f := range fields {
		if _, ok := encodeNumeric(f.raw, f.v); !ok {
			return errors.WithContextMap(
				errors.New(errors.CodeUnrepresentable, "numeric field out of range"),
				map[string]interface{}{"field": f.name, "value": f.v})
		}
	}

	encodeOctal(h.chksum()[:7], h.checksum())
	h.chksum()[7] = ' '
	return nil
}

// splitUSTARPath splits p into a prefix and name that fit the ustar
// fields, with prefix + "/" + name == p. ok is false when no such split
// exists or p is not ASCII.
func splitUSTARPath(p string) (prefix, name string, ok bool) {
	if !isASCII(p) {
		return "", "", false
	}
	if len(p) <= nameSize {
		return "", p, true
	}

	// The last slash inside the prefix window gives the longest prefix and
	// so the shortest name; any earlier slash only lengthens the name. A
	// trailing slash belongs to the name.
	end := len(p)
	if p[end-1] == '/' {
		end--
	}
	i := strings.LastIndexByte(p[:min(end, prefixSize+1)], '/')
	if i <= 0 {
		return "", "", false
	}
	prefix, name = p[:i], p[i+1:]
	if name == "" || len(name) > nameSize {
		return "", "", false
	}
	return prefix, name, true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 || s[i] == 0 {
			return false
		}
	}
	return true
}

// fitsField reports whether s can be stored in an n-byte string field.
func fitsField(s string, n int) bool {
	return len(s) <= n && isASCII(s)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// asciiField cuts s to n bytes and replaces non-ASCII bytes, for fixed
// fields whose real value is carried by an extension entry.
func asciiField(s string, n int) string {
	b := []byte(truncate(s, n))
	for i, c := range b {
		if c >= 0x80 {
			b[i] = '_'
		}
	}
	return string(b)
}

// hasNUL reports whether s contains a NUL, which no header field can carry.
func hasNUL(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}

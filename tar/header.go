package tar

import (
	"io/fs"
	"time"

	"github.com/jmgilman/go/archive/errors"
)

// Timestamp is a point in time as seconds and nanoseconds since the Unix
// epoch. Nanoseconds is always in [0, 1e9), so instants before the epoch
// have negative Seconds and a positive fraction.
type Timestamp struct {
	Seconds     int64
	Nanoseconds int32
}

// TimestampOf converts t to a Timestamp.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanoseconds: int32(t.Nanosecond())}
}

// Time returns the Timestamp as a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanoseconds)).UTC()
}

// IsZero reports whether ts is the epoch.
func (ts Timestamp) IsZero() bool {
	return ts.Seconds == 0 && ts.Nanoseconds == 0
}

// Header is the canonical description of one archive entry, independent of
// the dialect it was read from or will be written in.
type Header struct {
	Path     string
	LinkPath string // target of hard links and symlinks

	Mode int64 // permission bits, including setuid, setgid and sticky
	UID  int64
	GID  int64
	Size int64 // payload length in bytes, never negative

	ModTime    Timestamp
	AccessTime *Timestamp
	ChangeTime *Timestamp

	Type      TypeFlag
	UserName  string
	GroupName string
	DevMajor  int64
	DevMinor  int64

	// Dialect reports the convention an entry was read in. On write it
	// selects the convention to produce; DialectUnknown means USTAR.
	Dialect Dialect

	Comment string
	Charset string
}

// FileMode converts the header's mode and type into an fs.FileMode.
func (h *Header) FileMode() fs.FileMode {
	mode := fs.FileMode(h.Mode & 0o777)
	if h.Mode&0o4000 != 0 {
		mode |= fs.ModeSetuid
	}
	if h.Mode&0o2000 != 0 {
		mode |= fs.ModeSetgid
	}
	if h.Mode&0o1000 != 0 {
		mode |= fs.ModeSticky
	}

	switch h.Type {
	case TypeDir:
		mode |= fs.ModeDir
	case TypeSymlink:
		mode |= fs.ModeSymlink
	case TypeChar:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case TypeBlock:
		mode |= fs.ModeDevice
	case TypeFifo:
		mode |= fs.ModeNamedPipe
	}
	return mode
}

// FileInfoHeader builds a Header from fs.FileInfo. link is the symlink
// target and is ignored for other types. Ownership is left zero; the
// caller fills it in when it is known. Sockets and other types a tar
// archive cannot describe are rejected with UNSUPPORTED_FORMAT.
func FileInfoHeader(fi fs.FileInfo, link string) (*Header, error) {
	fm := fi.Mode()
	h := &Header{
		Path:    fi.Name(),
		Mode:    int64(fm.Perm()),
		ModTime: TimestampOf(fi.ModTime()),
	}
	if fm&fs.ModeSetuid != 0 {
		h.Mode |= 0o4000
	}
	if fm&fs.ModeSetgid != 0 {
		h.Mode |= 0o2000
	}
	if fm&fs.ModeSticky != 0 {
		h.Mode |= 0o1000
	}

	switch {
	case fm.IsRegular():
		h.Type = TypeReg
		h.Size = fi.Size()
	case fm.IsDir():
		h.Type = TypeDir
		h.Path += "/"
	case fm&fs.ModeSymlink != 0:
		h.Type = TypeSymlink
		h.LinkPath = link
	case fm&fs.ModeDevice != 0:
		if fm&fs.ModeCharDevice != 0 {
			h.Type = TypeChar
		} else {
			h.Type = TypeBlock
		}
	case fm&fs.ModeNamedPipe != 0:
		h.Type = TypeFifo
	default:
		return nil, errors.WithContext(
			errors.Newf(errors.CodeUnsupportedFormat, "cannot archive file mode %v", fm),
			"path", fi.Name())
	}
	return h, nil
}

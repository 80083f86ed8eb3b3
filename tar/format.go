package tar

// Dialect identifies which on-disk header convention an entry used.
//
//	                  |  USTAR |       PAX |       GNU
//	------------------+--------+-----------+----------
//	Path              |   256B | unlimited | unlimited
//	LinkPath          |   100B | unlimited | unlimited
//	UserName/GroupName|    32B | unlimited |       32B
//	AccessTime        |    n/a | unlimited |   seconds
//	sub-second times  |     no |       yes |        no
//	string encoding   |  ASCII |     UTF-8 |    binary
//
// Numeric fields too large for octal are written in the binary form in
// every dialect; PAX additionally carries uid and gid as records when
// even the binary form is too small.
type Dialect int

const (
	// DialectUnknown is the zero value. Writers treat it as DialectUSTAR.
	DialectUnknown Dialect = iota

	// DialectUSTAR is the POSIX.1-1988 ustar format.
	DialectUSTAR

	// DialectGNU uses the GNU magic and "././@LongLink" continuation
	// entries for long paths.
	DialectGNU

	// DialectPAX precedes entries with POSIX.1-2001 extended headers.
	DialectPAX
)

// String returns the lower-case dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectUSTAR:
		return "ustar"
	case DialectGNU:
		return "gnu"
	case DialectPAX:
		return "pax"
	default:
		return "unknown"
	}
}

// ParseDialect maps a dialect name back to its value.
func ParseDialect(s string) (Dialect, bool) {
	switch s {
	case "ustar":
		return DialectUSTAR, true
	case "gnu":
		return DialectGNU, true
	case "pax":
		return DialectPAX, true
	}
	return DialectUnknown, false
}

// TypeFlag is the one-byte entry type stored at offset 156.
type TypeFlag byte

const (
	TypeReg     TypeFlag = '0'
	TypeRegA    TypeFlag = '\x00' // historic regular file, normalized to TypeReg
	TypeLink    TypeFlag = '1'
	TypeSymlink TypeFlag = '2'
	TypeChar    TypeFlag = '3'
	TypeBlock   TypeFlag = '4'
	TypeDir     TypeFlag = '5'
	TypeFifo    TypeFlag = '6'

	// TypeGlobalHeader carries PAX records that apply to every later entry.
	TypeGlobalHeader TypeFlag = 'g'

	// TypeExtendedHeader carries PAX records for the next entry only.
	TypeExtendedHeader TypeFlag = 'x'

	// TypeGNULongName carries the path of the next entry.
	TypeGNULongName TypeFlag = 'L'

	// TypeGNULongLink carries the link target of the next entry.
	TypeGNULongLink TypeFlag = 'K'
)

// String returns a short human-readable name for the type.
func (t TypeFlag) String() string {
	switch t {
	case TypeReg, TypeRegA:
		return "regular"
	case TypeLink:
		return "hardlink"
	case TypeSymlink:
		return "symlink"
	case TypeChar:
		return "char"
	case TypeBlock:
		return "block"
	case TypeDir:
		return "dir"
	case TypeFifo:
		return "fifo"
	case TypeGlobalHeader:
		return "pax-global"
	case TypeExtendedHeader:
		return "pax"
	case TypeGNULongName:
		return "gnu-longname"
	case TypeGNULongLink:
		return "gnu-longlink"
	default:
		return "unknown(" + string(rune(t)) + ")"
	}
}

// isExtension reports whether the type is metadata for a following header.
func (t TypeFlag) isExtension() bool {
	switch t {
	case TypeGlobalHeader, TypeExtendedHeader, TypeGNULongName, TypeGNULongLink:
		return true
	}
	return false
}

const (
	magicUSTAR   = "ustar\x00"
	versionUSTAR = "00"
	magicGNU     = "ustar "
	versionGNU   = " \x00"

	// longLinkName is the name field of GNU continuation entries.
	longLinkName = "././@LongLink"

	nameSize   = 100
	prefixSize = 155
	ownerSize  = 32
)

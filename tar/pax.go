package tar

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jmgilman/go/archive/errors"
)

// Recognized PAX keywords.
const (
	paxPath     = "path"
	paxLinkpath = "linkpath"
	paxUname    = "uname"
	paxGname    = "gname"
	paxUID      = "uid"
	paxGID      = "gid"
	paxSize     = "size"
	paxMtime    = "mtime"
	paxAtime    = "atime"
	paxCtime    = "ctime"
	paxComment  = "comment"
	paxCharset  = "charset"
)

// optional is a value that may be absent.
type optional[T any] struct {
	value T
	set   bool
}

func some[T any](v T) optional[T] {
	return optional[T]{value: v, set: true}
}

// apply stores the value into dst when present.
func (o optional[T]) apply(dst *T) {
	if o.set {
		*dst = o.value
	}
}

// override holds header fields supplied by PAX records. Each slot is
// either absent, leaving the header's own value in place, or present and
// replacing it.
type override struct {
	path      optional[string]
	linkPath  optional[string]
	userName  optional[string]
	groupName optional[string]
	comment   optional[string]
	charset   optional[string]
	uid       optional[int64]
	gid       optional[int64]
	size      optional[int64]
	modTime   optional[Timestamp]
	accTime   optional[Timestamp]
	chgTime   optional[Timestamp]
}

// merge applies every present slot to hdr.
func (o *override) merge(hdr *Header) {
	o.path.apply(&hdr.Path)
	o.linkPath.apply(&hdr.LinkPath)
	o.userName.apply(&hdr.UserName)
	o.groupName.apply(&hdr.GroupName)
	o.comment.apply(&hdr.Comment)
	o.charset.apply(&hdr.Charset)
	o.uid.apply(&hdr.UID)
	o.gid.apply(&hdr.GID)
	o.size.apply(&hdr.Size)
	o.modTime.apply(&hdr.ModTime)
	if o.accTime.set {
		ts := o.accTime.value
		hdr.AccessTime = &ts
	}
	if o.chgTime.set {
		ts := o.chgTime.value
		hdr.ChangeTime = &ts
	}
}

// set applies one record. An empty value clears the slot. Unknown
// keywords report known == false and leave the override unchanged.
func (o *override) set(key, value string) (known bool, err error) {
	switch key {
	case paxPath:
		o.path = stringSlot(value)
	case paxLinkpath:
		o.linkPath = stringSlot(value)
	case paxUname:
		o.userName = stringSlot(value)
	case paxGname:
		o.groupName = stringSlot(value)
	case paxComment:
		o.comment = stringSlot(value)
	case paxCharset:
		o.charset = stringSlot(value)
	case paxUID:
		o.uid, err = intSlot(key, value, false)
	case paxGID:
		o.gid, err = intSlot(key, value, false)
	case paxSize:
		o.size, err = intSlot(key, value, true)
	case paxMtime:
		o.modTime, err = timeSlot(key, value)
	case paxAtime:
		o.accTime, err = timeSlot(key, value)
	case paxCtime:
		o.chgTime, err = timeSlot(key, value)
	default:
		return false, nil
	}
	return true, err
}

func stringSlot(v string) optional[string] {
	if v == "" {
		return optional[string]{}
	}
	return some(v)
}

func intSlot(key, v string, nonNegative bool) (optional[int64], error) {
	if v == "" {
		return optional[int64]{}, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || (nonNegative && n < 0) {
		return optional[int64]{}, badRecord("invalid integer value", key, v)
	}
	return some(n), nil
}

func timeSlot(key, v string) (optional[Timestamp], error) {
	if v == "" {
		return optional[Timestamp]{}, nil
	}
	ts, err := parsePAXTime(v)
	if err != nil {
		return optional[Timestamp]{}, errors.WithContext(err, "key", key)
	}
	return some(ts), nil
}

func badRecord(msg, key, value string) error {
	return errors.WithContextMap(
		errors.New(errors.CodeBadExtendedHeaderRecord, msg),
		map[string]interface{}{"key": key, "value": value})
}

// parsePAXRecord parses one "<len> <key>=<value>\n" record from the front
// of s and returns the remainder. The length counts the whole record,
// including its own digits and the trailing newline.
func parsePAXRecord(s string) (key, value, rest string, err error) {
	sp := strings.IndexByte(s, ' ')
	if sp <= 0 {
		return "", "", s, errors.New(errors.CodeBadExtendedHeaderRecord, "record length not followed by a space")
	}
	digits := s[:sp]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", "", s, badRecord("record length is not decimal", "", digits)
		}
	}
	n, perr := strconv.ParseInt(digits, 10, 0)
	if perr != nil || n < int64(sp)+3 || n > int64(len(s)) {
		return "", "", s, badRecord("record length out of range", "", digits)
	}

	rec, rest := s[sp+1:n], s[n:]
	if !strings.HasSuffix(rec, "\n") {
		return "", "", s, badRecord("record does not end in a newline", "", rec)
	}
	rec = rec[:len(rec)-1]

	eq := strings.IndexByte(rec, '=')
	if eq < 0 {
		return "", "", s, badRecord("record has no '=' separator", "", rec)
	}
	if eq == 0 {
		return "", "", s, badRecord("record has an empty keyword", "", rec)
	}
	return rec[:eq], rec[eq+1:], rest, nil
}

// formatPAXRecord renders key and value as one record.
func formatPAXRecord(key, value string) string {
	const padding = 3 // space, '=' and '\n'
	size := len(key) + len(value) + padding
	size += len(strconv.Itoa(size))
	record := strconv.Itoa(size) + " " + key + "=" + value + "\n"

	// Adding the length's own digits may carry into one more digit.
	if len(record) != size {
		size = len(record)
		record = strconv.Itoa(size) + " " + key + "=" + value + "\n"
	}
	return record
}

// formatPAXRecords renders records in a stable order so identical headers
// produce identical bytes.
func formatPAXRecords(records map[string]string) string {
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(formatPAXRecord(k, records[k]))
	}
	return b.String()
}

// parsePAXTime parses "SECONDS[.FRACTION]". The fraction is cut or padded
// to nanoseconds.
//
// A negative value "-S.F" is the instant S.F seconds before the epoch and
// is normalized to Seconds = -S-1, Nanoseconds = 1e9-F (or -S, 0 when F
// is zero). A negative value without a fraction follows the fixed-point
// convention of some legacy writers, where the digits double as a
// microsecond count (modulo one second): "-5" reads as Seconds -6,
// Nanoseconds 999995000.
func parsePAXTime(s string) (Timestamp, error) {
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")

	secs, frac, dotted := strings.Cut(body, ".")
	if secs == "" || !allDigits(secs) || !allDigits(frac) || (dotted && frac == "") {
		return Timestamp{}, badRecord("invalid timestamp", "", s)
	}
	sec, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return Timestamp{}, badRecord("timestamp out of range", "", s)
	}

	var nsec int64
	switch {
	case dotted:
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		nsec, _ = strconv.ParseInt(frac, 10, 64)
	case neg:
		nsec = sec % 1e6 * 1e3
	}

	if !neg {
		return Timestamp{Seconds: sec, Nanoseconds: int32(nsec)}, nil
	}
	if nsec == 0 {
		return Timestamp{Seconds: -sec}, nil
	}
	return Timestamp{Seconds: -sec - 1, Nanoseconds: int32(1e9 - nsec)}, nil
}

// formatPAXTime renders ts so parsePAXTime returns it unchanged. Negative
// instants always carry an explicit fraction.
func formatPAXTime(ts Timestamp) string {
	sec, nsec := ts.Seconds, int64(ts.Nanoseconds)
	if sec >= 0 {
		if nsec == 0 {
			return strconv.FormatInt(sec, 10)
		}
		return strconv.FormatInt(sec, 10) + "." + fraction(nsec)
	}

	if nsec == 0 {
		return strconv.FormatInt(sec, 10) + ".0"
	}
	// sec + nsec/1e9 == -((-sec-1) + (1e9-nsec)/1e9)
	return "-" + strconv.FormatInt(-sec-1, 10) + "." + fraction(1e9-nsec)
}

func fraction(nsec int64) string {
	s := strconv.FormatInt(nsec+1e9, 10)[1:]
	s = strings.TrimRight(s, "0")
	if s == "" {
		return "0"
	}
	return s
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

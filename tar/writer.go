package tar

import (
	"context"
	"io"
	"path"
	"strconv"

	"github.com/jmgilman/go/archive"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/internal/blockdev"
	"github.com/jmgilman/go/archive/internal/logging"
)

var _ archive.EntryWriter[*Header] = (*Writer)(nil)

// Writer appends entries to a tar stream.
//
// CreateEntry writes the header chain for an entry, Write appends exactly
// Size payload bytes, CloseEntry pads the payload to the block boundary
// and CloseArchive writes the end-of-archive marker. A Writer is not safe
// for concurrent use. I/O failures are sticky; validation failures leave
// the Writer usable.
type Writer struct {
	dev  *blockdev.Writer
	opts Options
	log  *logging.Logger

	hdr      *Header
	ctx      context.Context
	declared int64
	written  int64
	entries  int

	closed bool
	err    error
}

// NewWriter returns a Writer over w. Closing the Writer does not close w.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	o := buildOptions(opts)
	return &Writer{
		dev:  blockdev.NewWriter(w),
		opts: o,
		log:  o.Logger,
		ctx:  context.Background(),
	}
}

// entryPlan is the header chain chosen for one entry.
type entryPlan struct {
	dialect  Dialect
	strategy string
	records  map[string]string
	longName optional[string]
	longLink optional[string]
	fixed    Header
	name     string
	prefix   string
}

// CreateEntry finishes the open entry, if any, and writes the headers for
// hdr. Later Write calls supply exactly hdr.Size payload bytes.
//
// USTAR headers whose fields do not fit the fixed layout escalate according
// to the Writer's Fallback; GNU headers store long paths in long-name
// entries; PAX headers always carry the path as a record.
func (w *Writer) CreateEntry(ctx context.Context, hdr *Header) error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return errors.New(errors.CodeInvalidState, "archive already closed")
	}
	if w.hdr != nil {
		if err := w.CloseEntry(); err != nil {
			return err
		}
	}
	if err := validateHeader(hdr); err != nil {
		return err
	}

	p, err := w.plan(hdr)
	if err != nil {
		return errors.WithContext(err, "path", hdr.Path)
	}
	if err := w.emit(ctx, hdr, p); err != nil {
		w.err = err
		return err
	}

	h := *hdr
	w.hdr = &h
	w.ctx = ctx
	w.declared = hdr.Size
	w.written = 0
	w.log.Debug(ctx, "entry created",
		"path", hdr.Path,
		"size", hdr.Size,
		"dialect", p.dialect.String(),
		"strategy", p.strategy)
	return nil
}

// Write appends payload bytes to the open entry. A write that would pass
// the declared size is rejected without writing anything.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.hdr == nil {
		return 0, errors.New(errors.CodeInvalidState, "no open entry")
	}
	if int64(len(p)) > w.declared-w.written {
		return 0, errors.WithContextMap(
			errors.New(errors.CodeOutOfDeclaredSize, "write exceeds declared entry size"),
			map[string]interface{}{
				"path":     w.hdr.Path,
				"declared": w.declared,
				"written":  w.written,
				"attempt":  len(p),
			})
	}

	n, err := w.dev.Write(w.ctx, p)
	w.written += int64(n)
	if err != nil {
		w.err = err
	}
	return n, err
}

// CloseEntry pads the open entry to the block boundary. It fails, leaving
// the entry open, when fewer than Size bytes were written.
func (w *Writer) CloseEntry() error {
	if w.err != nil {
		return w.err
	}
	if w.hdr == nil {
		return nil
	}
	if w.written != w.declared {
		return errors.WithContextMap(
			errors.New(errors.CodeIncompletePayload, "entry closed before its declared size was written"),
			map[string]interface{}{"path": w.hdr.Path, "declared": w.declared, "written": w.written})
	}
	if err := w.dev.Pad(w.ctx, w.written); err != nil {
		w.err = err
		return err
	}
	w.hdr = nil
	w.entries++
	return nil
}

// CloseArchive finishes the open entry and writes the end-of-archive
// marker. Calling it again is a no-op.
func (w *Writer) CloseArchive(ctx context.Context) error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return nil
	}
	if err := w.CloseEntry(); err != nil {
		return err
	}
	if err := w.dev.WriteEnd(ctx); err != nil {
		w.err = err
		return err
	}
	w.closed = true
	w.log.Debug(ctx, "archive closed", "entries", w.entries, "bytes", w.dev.Offset())
	return nil
}

func validateHeader(h *Header) error {
	if h == nil {
		return errors.New(errors.CodeInvalidInput, "nil header")
	}
	if h.Path == "" {
		return errors.New(errors.CodeInvalidInput, "empty entry path")
	}
	if h.Size < 0 {
		return errors.WithContext(errors.New(errors.CodeInvalidInput, "negative entry size"), "size", h.Size)
	}
	if h.Type.isExtension() {
		return errors.WithContext(
			errors.New(errors.CodeInvalidInput, "extension entries are written implicitly"),
			"type", h.Type.String())
	}
	for field, s := range map[string]string{
		"path": h.Path, "linkpath": h.LinkPath, "uname": h.UserName,
		"gname": h.GroupName, "comment": h.Comment, "charset": h.Charset,
	} {
		if hasNUL(s) {
			return errors.WithContext(errors.New(errors.CodeInvalidInput, "field contains a NUL byte"), "field", field)
		}
	}
	for field, ts := range map[string]*Timestamp{"mtime": &h.ModTime, "atime": h.AccessTime, "ctime": h.ChangeTime} {
		if ts != nil && (ts.Nanoseconds < 0 || ts.Nanoseconds >= 1e9) {
			return errors.WithContext(errors.New(errors.CodeInvalidInput, "nanoseconds out of range"), "field", field)
		}
	}
	return nil
}

// plan decides which extension entries hdr needs.
func (w *Writer) plan(hdr *Header) (*entryPlan, error) {
	d := hdr.Dialect
	if d == DialectUnknown {
		d = DialectUSTAR
	}
	if !fitsBinary(8, hdr.Mode) || !fitsBinary(8, hdr.DevMajor) || !fitsBinary(8, hdr.DevMinor) {
		return nil, errors.WithContext(
			errors.New(errors.CodeUnrepresentable, "mode or device number out of range"),
			"dialect", d.String())
	}

	if d == DialectUSTAR {
		p, err := planUSTAR(hdr)
		if err == nil {
			return p, nil
		}
		switch w.opts.Fallback {
		case FallbackPAX:
			d = DialectPAX
		case FallbackGNU:
			d = DialectGNU
		default:
			return nil, err
		}
	}

	if d == DialectGNU {
		return planGNU(hdr), nil
	}
	return planPAX(hdr), nil
}

func newPlan(hdr *Header, d Dialect) *entryPlan {
	p := &entryPlan{dialect: d, fixed: *hdr, records: map[string]string{}}
	if p.fixed.Type == TypeRegA {
		p.fixed.Type = TypeReg
	}
	return p
}

// planUSTAR succeeds only when every field fits the fixed layout.
func planUSTAR(hdr *Header) (*entryPlan, error) {
	p := newPlan(hdr, DialectUSTAR)
	p.strategy = "ustar"

	prefix, name, ok := splitUSTARPath(hdr.Path)
	if !ok || !fitsField(hdr.LinkPath, nameSize) {
		return nil, errors.WithContext(
			errors.New(errors.CodePathTooLong, "path does not fit a ustar header"),
			"length", len(hdr.Path))
	}
	if prefix != "" {
		p.strategy = "ustar-split"
	}
	p.prefix, p.name = prefix, name

	switch {
	case !fitsField(hdr.UserName, ownerSize-1), !fitsField(hdr.GroupName, ownerSize-1):
		return nil, unrepresentable("owner name")
	case hdr.ModTime.Nanoseconds != 0:
		return nil, unrepresentable("sub-second mtime")
	case hdr.AccessTime != nil, hdr.ChangeTime != nil:
		return nil, unrepresentable("atime or ctime")
	case hdr.Comment != "", hdr.Charset != "":
		return nil, unrepresentable("comment or charset")
	case !fitsBinary(8, hdr.UID), !fitsBinary(8, hdr.GID):
		return nil, unrepresentable("uid or gid")
	}
	return p, nil
}

func unrepresentable(what string) error {
	return errors.WithContext(
		errors.New(errors.CodeUnrepresentable, "field does not fit a ustar header"),
		"field", what)
}

// planGNU moves long paths into long-name entries. Values only PAX can
// carry still produce records.
func planGNU(hdr *Header) *entryPlan {
	p := newPlan(hdr, DialectGNU)
	p.strategy = "gnu"

	p.name = asciiField(hdr.Path, nameSize)
	if !fitsField(hdr.Path, nameSize) {
		p.longName = some(hdr.Path)
		p.strategy = "gnu-longname"
	}
	if !fitsField(hdr.LinkPath, nameSize) {
		p.longLink = some(hdr.LinkPath)
		p.fixed.LinkPath = asciiField(hdr.LinkPath, nameSize)
	}

	if !fitsField(hdr.UserName, ownerSize-1) {
		p.records[paxUname] = hdr.UserName
		p.fixed.UserName = asciiField(hdr.UserName, ownerSize-1)
	}
	if !fitsField(hdr.GroupName, ownerSize-1) {
		p.records[paxGname] = hdr.GroupName
		p.fixed.GroupName = asciiField(hdr.GroupName, ownerSize-1)
	}
	if !fitsBinary(8, hdr.UID) {
		p.records[paxUID] = strconv.FormatInt(hdr.UID, 10)
		p.fixed.UID = 0
	}
	if !fitsBinary(8, hdr.GID) {
		p.records[paxGID] = strconv.FormatInt(hdr.GID, 10)
		p.fixed.GID = 0
	}
	if hdr.ModTime.Nanoseconds != 0 {
		p.records[paxMtime] = formatPAXTime(hdr.ModTime)
	}
	if hdr.AccessTime != nil && hdr.AccessTime.Nanoseconds != 0 {
		p.records[paxAtime] = formatPAXTime(*hdr.AccessTime)
	}
	if hdr.ChangeTime != nil && hdr.ChangeTime.Nanoseconds != 0 {
		p.records[paxCtime] = formatPAXTime(*hdr.ChangeTime)
	}
	addStringRecords(p, hdr)
	return p
}

// planPAX records the path and anything else the fixed layout cannot hold.
func planPAX(hdr *Header) *entryPlan {
	p := newPlan(hdr, DialectPAX)
	p.strategy = "pax"

	p.records[paxPath] = hdr.Path
	if prefix, name, ok := splitUSTARPath(hdr.Path); ok {
		p.prefix, p.name = prefix, name
	} else {
		p.name = asciiField(hdr.Path, nameSize)
	}

	if !fitsField(hdr.LinkPath, nameSize) {
		p.records[paxLinkpath] = hdr.LinkPath
		p.fixed.LinkPath = asciiField(hdr.LinkPath, nameSize)
	}
	if !fitsField(hdr.UserName, ownerSize-1) {
		p.records[paxUname] = hdr.UserName
		p.fixed.UserName = ""
	}
	if !fitsField(hdr.GroupName, ownerSize-1) {
		p.records[paxGname] = hdr.GroupName
		p.fixed.GroupName = ""
	}

	for _, f := range []struct {
		key   string
		v     int64
		n     int
		fixed *int64
	}{
		{paxUID, hdr.UID, 8, &p.fixed.UID},
		{paxGID, hdr.GID, 8, &p.fixed.GID},
		{paxSize, hdr.Size, 12, &p.fixed.Size},
	} {
		if !fitsOctal(f.n, f.v) {
			p.records[f.key] = strconv.FormatInt(f.v, 10)
			*f.fixed = 0
		}
	}

	if hdr.ModTime.Nanoseconds != 0 || !fitsOctal(12, hdr.ModTime.Seconds) {
		p.records[paxMtime] = formatPAXTime(hdr.ModTime)
		if !fitsOctal(12, hdr.ModTime.Seconds) {
			p.fixed.ModTime = Timestamp{}
		}
	}
	if hdr.AccessTime != nil {
		p.records[paxAtime] = formatPAXTime(*hdr.AccessTime)
	}
	if hdr.ChangeTime != nil {
		p.records[paxCtime] = formatPAXTime(*hdr.ChangeTime)
	}
	addStringRecords(p, hdr)
	return p
}

func addStringRecords(p *entryPlan, hdr *Header) {
	if hdr.Comment != "" {
		p.records[paxComment] = hdr.Comment
	}
	if hdr.Charset != "" {
		p.records[paxCharset] = hdr.Charset
	}
}

// emit writes the header chain of p: an optional PAX header, optional GNU
// long-link and long-name entries, then the entry's own header.
func (w *Writer) emit(ctx context.Context, hdr *Header, p *entryPlan) error {
	var blk rawHeader

	if len(p.records) > 0 || p.dialect == DialectPAX {
		payload := formatPAXRecords(p.records)
		xh := &Header{
			Type:    TypeExtendedHeader,
			Mode:    0o644,
			Size:    int64(len(payload)),
			ModTime: Timestamp{Seconds: max(p.fixed.ModTime.Seconds, 0)},
		}
		if err := encodeHeader(&blk, xh, DialectUSTAR, paxHeaderName(hdr.Path), ""); err != nil {
			return err
		}
		if err := w.writeExtension(ctx, &blk, []byte(payload)); err != nil {
			return err
		}
	}

	for _, long := range []struct {
		t    TypeFlag
		text optional[string]
	}{
		{TypeGNULongLink, p.longLink},
		{TypeGNULongName, p.longName},
	} {
		if !long.text.set {
			continue
		}
		lh, payload := longNameEntry(long.t, long.text.value)
		if err := encodeHeader(&blk, lh, DialectGNU, lh.Path, ""); err != nil {
			return err
		}
		if err := w.writeExtension(ctx, &blk, payload); err != nil {
			return err
		}
	}

	headerDialect := p.dialect
	if headerDialect == DialectPAX {
		headerDialect = DialectUSTAR
	}
	if err := encodeHeader(&blk, &p.fixed, headerDialect, p.name, p.prefix); err != nil {
		return err
	}
	return w.dev.WriteBlock(ctx, (*blockdev.Block)(&blk))
}

func (w *Writer) writeExtension(ctx context.Context, blk *rawHeader, payload []byte) error {
	if err := w.dev.WriteBlock(ctx, (*blockdev.Block)(blk)); err != nil {
		return err
	}
	if _, err := w.dev.Write(ctx, payload); err != nil {
		return err
	}
	return w.dev.Pad(ctx, int64(len(payload)))
}

// paxHeaderName is the conventional name of the PAX header for p.
func paxHeaderName(p string) string {
	dir, file := path.Split(path.Clean(p))
	name := path.Join(dir, "PaxHeaders.0", file)
	return asciiField(name, nameSize)
}

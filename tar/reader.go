package tar

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/jmgilman/go/archive"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/internal/blockdev"
	"github.com/jmgilman/go/archive/internal/logging"
)

var _ archive.EntryReader[*Header] = (*Reader)(nil)

// Reader iterates over the entries of a tar stream.
//
// Call Next to advance to an entry, Header to inspect it and Read to
// consume its payload. Extension entries (PAX headers and GNU long names)
// are folded into the entry they describe and never surface on their own.
// A Reader is not safe for concurrent use. Once an error is returned every
// later call returns the same error.
type Reader struct {
	dev  *blockdev.Reader
	opts Options
	log  *logging.Logger

	// global holds the records of the last PAX global header and applies
	// to every later entry in this archive.
	global override

	hdr       *Header
	ctx       context.Context
	remaining int64
	pad       int64

	done bool
	err  error
}

// NewReader returns a Reader over r. If r implements io.Seeker, skipped
// payloads are seeked over instead of read.
func NewReader(r io.Reader, opts ...Option) *Reader {
	o := buildOptions(opts)
	return &Reader{
		dev:  blockdev.NewReader(r),
		opts: o,
		log:  o.Logger,
		ctx:  context.Background(),
	}
}

// Next advances to the next entry, skipping whatever is left of the
// current one. It returns false with a nil error at the end of the
// archive. Payload reads through Read honor ctx until the next call.
func (r *Reader) Next(ctx context.Context) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if r.done {
		return false, nil
	}

	hdr, err := r.next(ctx)
	r.hdr, r.remaining, r.pad = nil, 0, 0
	if err != nil {
		r.err = err
		return false, err
	}
	if hdr == nil {
		r.done = true
		return false, nil
	}

	r.hdr = hdr
	r.ctx = ctx
	r.remaining = hdr.Size
	r.pad = blockdev.Padding(hdr.Size)
	r.log.Debug(ctx, "entry decoded",
		"path", hdr.Path,
		"type", hdr.Type.String(),
		"size", hdr.Size,
		"dialect", hdr.Dialect.String())
	return true, nil
}

// Header returns a copy of the current entry's header, or nil when no
// entry is open.
func (r *Reader) Header() *Header {
	if r.hdr == nil {
		return nil
	}
	h := *r.hdr
	if h.AccessTime != nil {
		ts := *h.AccessTime
		h.AccessTime = &ts
	}
	if h.ChangeTime != nil {
		ts := *h.ChangeTime
		h.ChangeTime = &ts
	}
	return &h
}

// Read reads payload bytes of the current entry. It returns io.EOF once
// Size bytes have been read.
func (r *Reader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.hdr == nil || r.remaining == 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}

	n, err := r.dev.Read(r.ctx, p)
	r.remaining -= int64(n)
	switch {
	case err == io.EOF && r.remaining > 0:
		r.err = errors.WithContextMap(
			errors.Wrap(io.ErrUnexpectedEOF, errors.CodeUnexpectedEnd, "stream ended inside a payload"),
			map[string]interface{}{"path": r.hdr.Path, "missing": r.remaining})
		return n, r.err
	case err == io.EOF:
		return n, nil
	case err != nil:
		r.err = err
		return n, err
	}
	return n, nil
}

func (r *Reader) next(ctx context.Context) (*Header, error) {
	if err := r.dev.Skip(ctx, r.remaining+r.pad); err != nil {
		return nil, err
	}

	hdr, end, err := r.readHeader(ctx, false)
	if err != nil || end {
		return nil, err
	}

	var (
		extended [][]byte
		longPath optional[string]
		longLink optional[string]
		isPAX    bool
	)
	for chain := 0; hdr.Type.isExtension(); chain++ {
		if chain >= r.opts.MaxChainedHeaders {
			return nil, errors.WithContextMap(
				errors.New(errors.CodeMalformedHeader, "too many chained extension headers"),
				map[string]interface{}{"limit": r.opts.MaxChainedHeaders, "offset": r.dev.Offset()})
		}

		payload, err := r.readExtension(ctx, hdr)
		if err != nil {
			return nil, err
		}

		switch hdr.Type {
		case TypeGlobalHeader:
			var g override
			if err := r.parseRecords(ctx, payload, &g); err != nil {
				return nil, err
			}
			r.global = g
			isPAX = true
			r.log.Debug(ctx, "global extended header applied", "records", len(payload))
		case TypeExtendedHeader:
			extended = append(extended, payload)
			isPAX = true
		case TypeGNULongName:
			longPath = some(decodeLongName(payload))
		case TypeGNULongLink:
			longLink = some(decodeLongName(payload))
		}

		if hdr, _, err = r.readHeader(ctx, true); err != nil {
			return nil, err
		}
	}

	// Per-entry records start from a copy of the global ones, so an empty
	// record clears a global value for this entry only.
	local := r.global
	for _, payload := range extended {
		if err := r.parseRecords(ctx, payload, &local); err != nil {
			return nil, err
		}
	}
	local.merge(hdr)
	longPath.apply(&hdr.Path)
	longLink.apply(&hdr.LinkPath)
	if isPAX {
		hdr.Dialect = DialectPAX
	}
	return hdr, nil
}

// readHeader reads and decodes one header block. When required is set the
// header continues a chain, so the end of the archive is an error.
func (r *Reader) readHeader(ctx context.Context, required bool) (*Header, bool, error) {
	var blk blockdev.Block
	end, err := r.dev.NextHeader(ctx, &blk)
	switch {
	case err != nil && stderrors.Is(err, io.EOF):
		if !required && r.opts.LenientEnd {
			return nil, true, nil
		}
		if err == io.EOF {
			err = errors.WithContext(
				errors.Wrap(err, errors.CodeUnexpectedEnd, "stream ended without an end-of-archive marker"),
				"offset", r.dev.Offset())
		}
		return nil, false, err
	case err != nil:
		return nil, false, err
	case end && required:
		return nil, false, errors.WithContext(
			errors.New(errors.CodeUnexpectedEnd, "end of archive inside an extension header chain"),
			"offset", r.dev.Offset())
	case end:
		return nil, true, nil
	}

	hdr, err := decodeHeader((*rawHeader)(&blk))
	if err != nil {
		return nil, false, errors.WithContext(err, "offset", r.dev.Offset()-blockdev.Size)
	}
	return hdr, false, nil
}

// readExtension reads the payload of an extension entry and the padding
// that follows it.
func (r *Reader) readExtension(ctx context.Context, hdr *Header) ([]byte, error) {
	if hdr.Size > r.opts.MaxExtendedHeaderSize {
		code := errors.CodeMalformedHeader
		if hdr.Type == TypeGlobalHeader || hdr.Type == TypeExtendedHeader {
			code = errors.CodeBadExtendedHeaderRecord
		}
		return nil, errors.WithContextMap(
			errors.New(code, "extension header payload exceeds limit"),
			map[string]interface{}{"type": hdr.Type.String(), "size": hdr.Size, "limit": r.opts.MaxExtendedHeaderSize})
	}

	payload := make([]byte, hdr.Size)
	if err := r.dev.ReadFull(ctx, payload); err != nil {
		return nil, err
	}
	if err := r.dev.Skip(ctx, blockdev.Padding(hdr.Size)); err != nil {
		return nil, err
	}
	return payload, nil
}

// parseRecords applies every record in payload to o.
func (r *Reader) parseRecords(ctx context.Context, payload []byte, o *override) error {
	s := string(payload)
	for len(s) > 0 {
		key, value, rest, err := parsePAXRecord(s)
		if err != nil {
			return errors.WithContext(err, "record_offset", len(payload)-len(s))
		}
		known, err := o.set(key, value)
		if err != nil {
			return err
		}
		if !known {
			r.log.Debug(ctx, "ignoring unknown extended header keyword", "key", key)
		}
		s = rest
	}
	return nil
}

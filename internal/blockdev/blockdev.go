// Package blockdev reads and writes the fixed 512-byte blocks that make up
// a tar stream.
//
// A Reader hands out whole blocks for headers and raw bytes for payloads,
// skips payload remainders (seeking when the source supports it) and
// recognizes the two-zero-block end marker. A Writer emits blocks, payload
// bytes and zero padding. Neither owns the underlying stream.
package blockdev

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/jmgilman/go/archive/errors"
)

// Size is the tar block size in bytes.
const Size = 512

// Block is one raw 512-byte block.
type Block [Size]byte

var zeroBlock Block

// IsZero reports whether every byte of the block is zero.
func (b *Block) IsZero() bool {
	return *b == zeroBlock
}

// Reset zeroes the block.
func (b *Block) Reset() {
	*b = zeroBlock
}

// Padding returns the number of zero bytes that follow n payload bytes to
// reach the next block boundary.
func Padding(n int64) int64 {
	return -n & (Size - 1)
}

// canceled converts a done context into the module's error type.
func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeCanceled, "operation canceled")
	}
	return nil
}

// Reader is the read side of the block device.
type Reader struct {
	r      io.Reader
	offset int64
}

// NewReader returns a Reader over r. If r also implements io.Seeker, Skip
// seeks instead of reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Offset returns the number of bytes consumed from the stream so far.
func (d *Reader) Offset() int64 {
	return d.offset
}

// ReadBlock reads exactly one block. It returns io.EOF, unwrapped, when the
// stream ends cleanly on a block boundary and an UNEXPECTED_END_OF_ARCHIVE
// error when it ends inside the block.
func (d *Reader) ReadBlock(ctx context.Context, blk *Block) error {
	if err := canceled(ctx); err != nil {
		return err
	}
	n, err := io.ReadFull(d.r, blk[:])
	d.offset += int64(n)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, io.EOF):
		return io.EOF
	case stderrors.Is(err, io.ErrUnexpectedEOF):
		return errors.WithContext(
			errors.Wrap(err, errors.CodeUnexpectedEnd, "stream ended inside a block"),
			"offset", d.offset)
	default:
		return errors.Wrap(err, errors.CodeIO, "failed to read block")
	}
}

// NextHeader reads the block that should hold the next header.
//
// It reports end == true when it finds the end-of-archive marker of two
// consecutive zero blocks. A zero block followed by anything else is a
// MALFORMED_HEADER error. A clean end of stream before the block returns
// io.EOF unwrapped; an end of stream right after a single zero block
// returns UNEXPECTED_END_OF_ARCHIVE wrapping io.EOF. Callers decide
// whether either is acceptable.
func (d *Reader) NextHeader(ctx context.Context, blk *Block) (end bool, err error) {
	if err := d.ReadBlock(ctx, blk); err != nil {
		return false, err
	}
	if !blk.IsZero() {
		return false, nil
	}

	if err := d.ReadBlock(ctx, blk); err != nil {
		if err == io.EOF {
			return false, errors.WithContext(
				errors.Wrap(io.EOF, errors.CodeUnexpectedEnd, "stream ended after a single zero block"),
				"offset", d.offset)
		}
		return false, err
	}
	if !blk.IsZero() {
		return false, errors.WithContext(
			errors.New(errors.CodeMalformedHeader, "zero block followed by a non-zero block"),
			"offset", d.offset-Size)
	}
	return true, nil
}

// Read reads raw payload bytes. A clean end of stream is reported as io.EOF.
func (d *Reader) Read(ctx context.Context, p []byte) (int, error) {
	if err := canceled(ctx); err != nil {
		return 0, err
	}
	n, err := d.r.Read(p)
	d.offset += int64(n)
	if err != nil && err != io.EOF {
		return n, errors.Wrap(err, errors.CodeIO, "failed to read payload")
	}
	return n, err
}

// ReadFull reads exactly len(p) payload bytes.
func (d *Reader) ReadFull(ctx context.Context, p []byte) error {
	if err := canceled(ctx); err != nil {
		return err
	}
	n, err := io.ReadFull(d.r, p)
	d.offset += int64(n)
	if err == nil {
		return nil
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.WithContext(
			errors.Wrap(io.ErrUnexpectedEOF, errors.CodeUnexpectedEnd, "stream ended inside a payload"),
			"offset", d.offset)
	}
	return errors.Wrap(err, errors.CodeIO, "failed to read payload")
}

// Skip discards n bytes. Seekable sources seek over all but the last byte,
// which is still read so truncation is detected.
func (d *Reader) Skip(ctx context.Context, n int64) error {
	if n <= 0 {
		return nil
	}
	if err := canceled(ctx); err != nil {
		return err
	}

	if sk, ok := d.r.(io.Seeker); ok && n > 1 {
		if _, err := sk.Seek(n-1, io.SeekCurrent); err == nil {
			d.offset += n - 1
			n = 1
		}
	}

	copied, err := io.CopyN(io.Discard, d.r, n)
	d.offset += copied
	if err == nil {
		return nil
	}
	if stderrors.Is(err, io.EOF) {
		return errors.WithContext(
			errors.Wrap(io.ErrUnexpectedEOF, errors.CodeUnexpectedEnd, "stream ended while skipping payload"),
			"offset", d.offset)
	}
	return errors.Wrap(err, errors.CodeIO, "failed to skip payload")
}

// Writer is the write side of the block device.
type Writer struct {
	w      io.Writer
	offset int64
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Offset returns the number of bytes written so far.
func (d *Writer) Offset() int64 {
	return d.offset
}

// WriteBlock writes one block.
func (d *Writer) WriteBlock(ctx context.Context, blk *Block) error {
	_, err := d.Write(ctx, blk[:])
	return err
}

// Write writes raw payload bytes.
func (d *Writer) Write(ctx context.Context, p []byte) (int, error) {
	if err := canceled(ctx); err != nil {
		return 0, err
	}
	n, err := d.w.Write(p)
	d.offset += int64(n)
	if err != nil {
		return n, errors.Wrap(err, errors.CodeIO, "failed to write")
	}
	return n, nil
}

// Pad writes the zero bytes that follow n payload bytes.
func (d *Writer) Pad(ctx context.Context, n int64) error {
	pad := Padding(n)
	if pad == 0 {
		return nil
	}
	_, err := d.Write(ctx, zeroBlock[:pad])
	return err
}

// WriteEnd writes the end-of-archive marker of two zero blocks.
func (d *Writer) WriteEnd(ctx context.Context) error {
	for i := 0; i < 2; i++ {
		if err := d.WriteBlock(ctx, &zeroBlock); err != nil {
			return err
		}
	}
	return nil
}

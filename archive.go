// Package archive defines the capability interfaces shared by the
// container codecs in this module and helpers that work across them.
//
// A codec exposes a pull-style EntryReader and a push-style EntryWriter,
// parameterized by its own header type. The tar package is the reference
// implementation:
//
//	r := tar.NewReader(f)
//	for {
//	    ok, err := r.Next(ctx)
//	    if err != nil || !ok {
//	        return err
//	    }
//	    fmt.Println(r.Header().Path)
//	}
package archive

import (
	"context"
	"io"

	"github.com/jmgilman/go/archive/errors"
)

// EntryReader iterates over the entries of an archive.
//
// Next advances to the following entry and reports false at the end of the
// archive. Header describes the current entry. Read consumes its payload
// and returns io.EOF at the end of it.
type EntryReader[H any] interface {
	io.Reader
	Next(ctx context.Context) (bool, error)
	Header() H
}

// EntryWriter appends entries to an archive.
//
// CreateEntry starts an entry, Write appends payload up to the size the
// header declared, CloseEntry finishes it and CloseArchive writes the
// archive trailer. The underlying stream stays open.
type EntryWriter[H any] interface {
	io.Writer
	CreateEntry(ctx context.Context, hdr H) error
	CloseEntry() error
	CloseArchive(ctx context.Context) error
}

// HeaderFunc rewrites a header while entries are copied. Returning a nil
// error with skip set drops the entry.
type HeaderFunc[H any] func(hdr H) (out H, skip bool, err error)

// Transcode copies every entry of src into dst, passing headers through fn
// when it is non-nil. It returns the number of entries written. dst is not
// closed.
func Transcode[H any](ctx context.Context, dst EntryWriter[H], src EntryReader[H], fn HeaderFunc[H]) (int, error) {
	count := 0
	for {
		ok, err := src.Next(ctx)
		if err != nil {
			return count, err
		}
		if !ok {
			return count, nil
		}

		hdr := src.Header()
		if fn != nil {
			var skip bool
			if hdr, skip, err = fn(hdr); err != nil {
				return count, err
			}
			if skip {
				continue
			}
		}

		if err := dst.CreateEntry(ctx, hdr); err != nil {
			return count, err
		}
		if _, err := io.Copy(dst, src); err != nil {
			return count, errors.WithContext(err, "entry", count)
		}
		if err := dst.CloseEntry(); err != nil {
			return count, err
		}
		count++
	}
}

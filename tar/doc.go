// Package tar reads and writes POSIX tar archives.
//
// An archive is a sequence of 512-byte blocks. Each entry is a header
// block followed by its payload, zero-padded to a block boundary, and the
// archive ends with two zero blocks. Three header dialects coexist in the
// wild and are all understood here:
//
//   - USTAR: the fixed POSIX.1-1988 layout. Paths up to 256 bytes are
//     split across the prefix and name fields.
//   - GNU: long paths and link targets travel in "././@LongLink"
//     continuation entries that precede the real header.
//   - PAX: "len key=value\n" records in an extended header entry override
//     fields of the next header; a global extended header overrides fields
//     of every later entry until the next one replaces it.
//
// Reader folds all of these into one canonical Header per entry. Writer
// takes a Header and emits whichever chain of headers its Dialect needs,
// escalating plain USTAR headers according to the configured Fallback.
//
// Numeric header fields are octal text, or big-endian binary when the top
// bit of the first byte is set. Header checksums are the unsigned sum of
// the block with the checksum field read as spaces.
//
// # Reading
//
//	r := tar.NewReader(f)
//	for {
//	    ok, err := r.Next(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    if !ok {
//	        break
//	    }
//	    hdr := r.Header()
//	    if _, err := io.Copy(dst, r); err != nil {
//	        return err
//	    }
//	}
//
// # Writing
//
//	w := tar.NewWriter(f)
//	hdr := &tar.Header{Path: "hello.txt", Mode: 0o644, Size: 5, Type: tar.TypeReg}
//	if err := w.CreateEntry(ctx, hdr); err != nil {
//	    return err
//	}
//	if _, err := w.Write([]byte("world")); err != nil {
//	    return err
//	}
//	return w.CloseArchive(ctx)
//
// Errors carry codes from the errors package of this module, such as
// CodeMalformedHeader or CodeUnexpectedEnd.
package tar

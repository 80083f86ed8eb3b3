package tar

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/archive/errors"
)

// writeArchive writes each header followed by its payload and closes the
// archive.
func writeArchive(t *testing.T, w *Writer, entries ...entry) {
	t.Helper()
	ctx := context.Background()
	for _, e := range entries {
		require.NoError(t, w.CreateEntry(ctx, e.hdr))
		_, err := io.WriteString(w, e.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.CloseArchive(ctx))
}

func TestWriter_SingleFile(t *testing.T) {
	var buf bytes.Buffer
	writeArchive(t, NewWriter(&buf), entry{
		hdr:  &Header{Path: "hello.txt", Type: TypeReg, Mode: 0o644, Size: 5, ModTime: Timestamp{Seconds: 1700000000}},
		body: "world",
	})

	out := buf.Bytes()
	require.Len(t, out, 4*512)

	blk := out[:512]
	assert.Equal(t, "hello.txt", string(bytes.TrimRight(blk[0:100], "\x00")))
	assert.Equal(t, "00000000005\x00", string(blk[124:136]))
	assert.Equal(t, byte('0'), blk[156])
	assert.Equal(t, "ustar\x00", string(blk[257:263]))
	assert.Equal(t, "00", string(blk[263:265]))
	assert.Equal(t, byte(0), blk[154])
	assert.Equal(t, byte(' '), blk[155])

	assert.Equal(t, "world", string(out[512:517]))
	assert.Equal(t, make([]byte, 512-5), out[517:1024])
	assert.Equal(t, make([]byte, 1024), out[1024:])

	entries, err := readAll(t, NewReader(bytes.NewReader(out)))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "world", entries[0].body)
	assert.Equal(t, DialectUSTAR, entries[0].hdr.Dialect)
	assert.Equal(t, Timestamp{Seconds: 1700000000}, entries[0].hdr.ModTime)
}

func TestWriter_GNULongName(t *testing.T) {
	longPath := strings.Repeat("a", 200)

	var buf bytes.Buffer
	writeArchive(t, NewWriter(&buf), entry{
		hdr: &Header{Path: longPath, Type: TypeReg, Mode: 0o644, Dialect: DialectGNU},
	})

	out := buf.Bytes()
	require.Len(t, out, 5*512)

	long := out[:512]
	assert.Equal(t, "././@LongLink", string(bytes.TrimRight(long[0:100], "\x00")))
	assert.Equal(t, byte('L'), long[156])
	assert.Equal(t, "00000000311\x00", string(long[124:136]), "201 bytes in octal")
	assert.Equal(t, "ustar  \x00", string(long[257:265]))
	assert.Equal(t, longPath+"\x00", string(out[512:713]))

	main := out[1024:1536]
	assert.Equal(t, longPath[:100], string(main[0:100]))
	assert.Equal(t, byte('0'), main[156])

	entries, err := readAll(t, NewReader(bytes.NewReader(out)))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, longPath, entries[0].hdr.Path)
	assert.Equal(t, DialectGNU, entries[0].hdr.Dialect)
}

func TestWriter_GNULongLinkPrecedesLongName(t *testing.T) {
	longPath := strings.Repeat("p", 150)
	longLink := strings.Repeat("l", 150)

	var buf bytes.Buffer
	writeArchive(t, NewWriter(&buf), entry{
		hdr: &Header{Path: longPath, LinkPath: longLink, Type: TypeSymlink, Mode: 0o777, Dialect: DialectGNU},
	})

	out := buf.Bytes()
	assert.Equal(t, byte('K'), out[156])
	assert.Equal(t, byte('L'), out[2*512+156])

	entries, err := readAll(t, NewReader(bytes.NewReader(out)))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, longPath, entries[0].hdr.Path)
	assert.Equal(t, longLink, entries[0].hdr.LinkPath)
}

func TestWriter_GNUTimes(t *testing.T) {
	atime := Timestamp{Seconds: 1600000000}
	ctime := Timestamp{Seconds: 1600000001, Nanoseconds: 5}

	var buf bytes.Buffer
	writeArchive(t, NewWriter(&buf), entry{
		hdr: &Header{Path: "t", Type: TypeReg, Dialect: DialectGNU, AccessTime: &atime, ChangeTime: &ctime},
	})

	entries, err := readAll(t, NewReader(bytes.NewReader(buf.Bytes())))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].hdr.AccessTime)
	require.NotNil(t, entries[0].hdr.ChangeTime)
	assert.Equal(t, atime, *entries[0].hdr.AccessTime)
	assert.Equal(t, ctime, *entries[0].hdr.ChangeTime)
	// The sub-second ctime needs a PAX record.
	assert.Equal(t, byte('x'), buf.Bytes()[156])
}

func TestWriter_USTARSplit(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		typ        TypeFlag
		wantPrefix string
	}{
		{
			name:       "101 bytes",
			path:       strings.Repeat("d", 50) + "/" + strings.Repeat("f", 50),
			wantPrefix: strings.Repeat("d", 50),
		},
		{
			name:       "255 bytes",
			path:       strings.Repeat("d", 155) + "/" + strings.Repeat("f", 99),
			wantPrefix: strings.Repeat("d", 155),
		},
		{
			name:       "nested directories",
			path:       strings.Repeat("a", 60) + "/" + strings.Repeat("b", 60) + "/" + strings.Repeat("c", 60),
			wantPrefix: strings.Repeat("a", 60) + "/" + strings.Repeat("b", 60),
		},
		{
			name:       "directory",
			path:       strings.Repeat("a", 60) + "/" + strings.Repeat("b", 60) + "/",
			typ:        TypeDir,
			wantPrefix: strings.Repeat("a", 60),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := tt.typ
			if typ == 0 {
				typ = TypeReg
			}
			var buf bytes.Buffer
			writeArchive(t, NewWriter(&buf, WithFallback(FallbackNone)), entry{
				hdr: &Header{Path: tt.path, Type: typ},
			})

			out := buf.Bytes()
			require.Len(t, out, 3*512, "no extension entries")
			assert.Equal(t, tt.wantPrefix, string(bytes.TrimRight(out[345:500], "\x00")))

			entries, err := readAll(t, NewReader(bytes.NewReader(out)))
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.path, entries[0].hdr.Path)
			assert.Equal(t, DialectUSTAR, entries[0].hdr.Dialect)
		})
	}
}

func TestWriter_Fallback(t *testing.T) {
	longPath := strings.Repeat("x", 300)

	tests := []struct {
		name        string
		fallback    Fallback
		hdr         *Header
		wantCode    errors.ErrorCode
		wantType    byte
		wantDialect Dialect
	}{
		{
			name:        "pax carries long path",
			fallback:    FallbackPAX,
			hdr:         &Header{Path: longPath, Type: TypeReg},
			wantType:    'x',
			wantDialect: DialectPAX,
		},
		{
			name:        "gnu carries long path",
			fallback:    FallbackGNU,
			hdr:         &Header{Path: longPath, Type: TypeReg},
			wantType:    'L',
			wantDialect: DialectGNU,
		},
		{
			name:     "none rejects long path",
			fallback: FallbackNone,
			hdr:      &Header{Path: longPath, Type: TypeReg},
			wantCode: errors.CodePathTooLong,
		},
		{
			name:     "none rejects non-ascii path",
			fallback: FallbackNone,
			hdr:      &Header{Path: "données/日本.txt", Type: TypeReg},
			wantCode: errors.CodePathTooLong,
		},
		{
			name:     "none rejects sub-second mtime",
			fallback: FallbackNone,
			hdr:      &Header{Path: "f", Type: TypeReg, ModTime: Timestamp{Seconds: 1, Nanoseconds: 1}},
			wantCode: errors.CodeUnrepresentable,
		},
		{
			name:     "none rejects long owner",
			fallback: FallbackNone,
			hdr:      &Header{Path: "f", Type: TypeReg, UserName: strings.Repeat("u", 40)},
			wantCode: errors.CodeUnrepresentable,
		},
		{
			name:     "mode out of range",
			fallback: FallbackPAX,
			hdr:      &Header{Path: "f", Type: TypeReg, Mode: -1 << 62},
			wantCode: errors.CodeUnrepresentable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			var buf bytes.Buffer
			w := NewWriter(&buf, WithFallback(tt.fallback))

			err := w.CreateEntry(ctx, tt.hdr)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.GetCode(err))
				assert.Zero(t, buf.Len(), "nothing written for a rejected entry")

				// The writer stays usable.
				require.NoError(t, w.CreateEntry(ctx, &Header{Path: "ok", Type: TypeReg}))
				require.NoError(t, w.CloseArchive(ctx))
				return
			}
			require.NoError(t, err)
			require.NoError(t, w.CloseArchive(ctx))

			assert.Equal(t, tt.wantType, buf.Bytes()[156])
			entries, err := readAll(t, NewReader(bytes.NewReader(buf.Bytes())))
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.hdr.Path, entries[0].hdr.Path)
			assert.Equal(t, tt.wantDialect, entries[0].hdr.Dialect)
		})
	}
}

func TestWriter_NonASCIIPaths(t *testing.T) {
	paths := []string{"données/résumé.txt", "日本語/ファイル.txt", "emoji-🎉.bin"}

	for _, d := range []Dialect{DialectUSTAR, DialectPAX, DialectGNU} {
		t.Run(d.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			var in []entry
			for _, p := range paths {
				in = append(in, entry{hdr: &Header{Path: p, Type: TypeReg, Size: 2, Dialect: d}, body: "ok"})
			}
			writeArchive(t, w, in...)

			entries, err := readAll(t, NewReader(bytes.NewReader(buf.Bytes())))
			require.NoError(t, err)
			require.Len(t, entries, len(paths))
			for i, p := range paths {
				assert.Equal(t, p, entries[i].hdr.Path)
				assert.Equal(t, "ok", entries[i].body)
			}
		})
	}
}

func TestWriter_NonASCIIFixedFields(t *testing.T) {
	tests := []struct {
		dialect  Dialect
		uname    string
		wantType byte
	}{
		{DialectGNU, "", byte(TypeGNULongName)},
		{DialectPAX, "josé", byte(TypeExtendedHeader)},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			hdr := &Header{Path: "café.txt", Type: TypeReg, UserName: tt.uname, Size: 2, Dialect: tt.dialect}
			var buf bytes.Buffer
			writeArchive(t, NewWriter(&buf), entry{hdr: hdr, body: "ok"})

			out := buf.Bytes()
			assert.Equal(t, tt.wantType, out[156])
			for _, blk := range [][]byte{out[0:512], out[1024:1536]} {
				for _, field := range [][]byte{blk[0:100], blk[157:257], blk[265:297]} {
					for _, c := range field {
						assert.Less(t, c, byte(0x80), "%q", field)
					}
				}
			}

			entries, err := readAll(t, NewReader(bytes.NewReader(out)))
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "café.txt", entries[0].hdr.Path)
			assert.Equal(t, tt.uname, entries[0].hdr.UserName)
			assert.Equal(t, "ok", entries[0].body)
		})
	}
}

func TestWriter_PAXRecords(t *testing.T) {
	atime := Timestamp{Seconds: -6, Nanoseconds: 999995000}
	hdr := &Header{
		Path:       "f.txt",
		Type:       TypeReg,
		UID:        1 << 40,
		UserName:   strings.Repeat("u", 64),
		ModTime:    Timestamp{Seconds: 1321468784, Nanoseconds: 123456789},
		AccessTime: &atime,
		Comment:    "built by tests",
		Charset:    "ISO-IR 10646 2000 UTF-8",
		Dialect:    DialectPAX,
	}

	var buf bytes.Buffer
	writeArchive(t, NewWriter(&buf), entry{hdr: hdr})

	out := buf.Bytes()
	assert.Equal(t, "PaxHeaders.0/f.txt", string(bytes.TrimRight(out[0:100], "\x00")))
	assert.Contains(t, string(out[512:1024]), "atime=-5.000005\n")

	entries, err := readAll(t, NewReader(bytes.NewReader(out)))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0].hdr
	assert.Equal(t, hdr.UID, got.UID)
	assert.Equal(t, hdr.UserName, got.UserName)
	assert.Equal(t, hdr.ModTime, got.ModTime)
	require.NotNil(t, got.AccessTime)
	assert.Equal(t, atime, *got.AccessTime)
	assert.Equal(t, hdr.Comment, got.Comment)
	assert.Equal(t, hdr.Charset, got.Charset)
}

func TestWriter_BinaryNumericFields(t *testing.T) {
	hdr := &Header{Path: "big-ids", Type: TypeReg, UID: 1 << 40, GID: 1 << 33}

	var buf bytes.Buffer
	writeArchive(t, NewWriter(&buf, WithFallback(FallbackNone)), entry{hdr: hdr})

	out := buf.Bytes()
	require.Len(t, out, 3*512)
	assert.Equal(t, byte(0x80), out[108]&0x80)

	entries, err := readAll(t, NewReader(bytes.NewReader(out)))
	require.NoError(t, err)
	assert.Equal(t, hdr.UID, entries[0].hdr.UID)
	assert.Equal(t, hdr.GID, entries[0].hdr.GID)
}

func TestWriter_PayloadAccounting(t *testing.T) {
	ctx := context.Background()

	t.Run("write past declared size", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.CreateEntry(ctx, &Header{Path: "f", Type: TypeReg, Size: 3}))

		n, err := w.Write([]byte("abcd"))
		assert.Equal(t, 0, n)
		assert.Equal(t, errors.CodeOutOfDeclaredSize, errors.GetCode(err))

		n, err = w.Write([]byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		_, err = w.Write([]byte("d"))
		assert.Equal(t, errors.CodeOutOfDeclaredSize, errors.GetCode(err))
		require.NoError(t, w.CloseArchive(ctx))
	})

	t.Run("close before declared size", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.CreateEntry(ctx, &Header{Path: "f", Type: TypeReg, Size: 5}))
		_, err := w.Write([]byte("ab"))
		require.NoError(t, err)

		err = w.CloseEntry()
		assert.Equal(t, errors.CodeIncompletePayload, errors.GetCode(err))
		err = w.CloseArchive(ctx)
		assert.Equal(t, errors.CodeIncompletePayload, errors.GetCode(err))
		err = w.CreateEntry(ctx, &Header{Path: "g", Type: TypeReg})
		assert.Equal(t, errors.CodeIncompletePayload, errors.GetCode(err))

		// The entry is still open and can be completed.
		_, err = w.Write([]byte("cde"))
		require.NoError(t, err)
		require.NoError(t, w.CloseArchive(ctx))

		entries, err := readAll(t, NewReader(bytes.NewReader(buf.Bytes())))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "abcde", entries[0].body)
	})

	t.Run("write without entry", func(t *testing.T) {
		w := NewWriter(io.Discard)
		_, err := w.Write([]byte("x"))
		assert.Equal(t, errors.CodeInvalidState, errors.GetCode(err))
	})

	t.Run("entry after close", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		require.NoError(t, w.CloseArchive(ctx))
		require.NoError(t, w.CloseArchive(ctx))
		assert.Equal(t, 1024, buf.Len())

		err := w.CreateEntry(ctx, &Header{Path: "late", Type: TypeReg})
		assert.Equal(t, errors.CodeInvalidState, errors.GetCode(err))
	})
}

func TestWriter_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name string
		hdr  *Header
	}{
		{name: "nil", hdr: nil},
		{name: "empty path", hdr: &Header{Type: TypeReg}},
		{name: "negative size", hdr: &Header{Path: "f", Size: -1}},
		{name: "extension type", hdr: &Header{Path: "f", Type: TypeExtendedHeader}},
		{name: "nul in path", hdr: &Header{Path: "a\x00b"}},
		{name: "nanoseconds out of range", hdr: &Header{Path: "f", ModTime: Timestamp{Nanoseconds: 1e9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewWriter(io.Discard).CreateEntry(context.Background(), tt.hdr)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
		})
	}
}

type failingWriter struct {
	after int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, stderrors.New("disk full")
	}
	f.after -= len(p)
	return len(p), nil
}

func TestWriter_IOErrorsAreSticky(t *testing.T) {
	ctx := context.Background()
	w := NewWriter(&failingWriter{after: 512})

	require.NoError(t, w.CreateEntry(ctx, &Header{Path: "a", Type: TypeReg, Size: 1}))
	_, err := w.Write([]byte("x"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeIO, errors.GetCode(err))
	assert.True(t, errors.IsRetryable(err))

	assert.Equal(t, err, w.CloseEntry())
	assert.Equal(t, err, w.CloseArchive(ctx))
}

func TestWriter_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewWriter(io.Discard).CreateEntry(ctx, &Header{Path: "a", Type: TypeReg})
	assert.Equal(t, errors.CodeCanceled, errors.GetCode(err))
	assert.ErrorIs(t, err, context.Canceled)
}

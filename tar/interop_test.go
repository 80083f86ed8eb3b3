package tar_test

import (
	stdtar "archive/tar"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	splittar "github.com/vbatts/tar-split/archive/tar"
	"github.com/vbatts/tar-split/tar/asm"
	"github.com/vbatts/tar-split/tar/storage"

	"github.com/jmgilman/go/archive/tar"
)

var (
	longPath = strings.Repeat("deep/", 40) + "file.txt"
	longLink = strings.Repeat("target/", 20) + "end"
)

func TestInterop_ReadsStandardLibraryArchives(t *testing.T) {
	mtime := time.Unix(1700000000, 0)

	for _, format := range []stdtar.Format{stdtar.FormatUSTAR, stdtar.FormatPAX, stdtar.FormatGNU} {
		t.Run(format.String(), func(t *testing.T) {
			files := []*stdtar.Header{
				{Name: "hello.txt", Typeflag: stdtar.TypeReg, Mode: 0o644, Size: 5, ModTime: mtime, Uname: "alice", Format: format},
				{Name: "dir/", Typeflag: stdtar.TypeDir, Mode: 0o755, ModTime: mtime, Format: format},
				{Name: "link", Typeflag: stdtar.TypeSymlink, Linkname: "hello.txt", ModTime: mtime, Format: format},
			}
			if format != stdtar.FormatUSTAR {
				files = append(files, &stdtar.Header{
					Name: longPath, Typeflag: stdtar.TypeSymlink, Linkname: longLink, ModTime: mtime, Format: format,
				})
			}

			var buf bytes.Buffer
			tw := stdtar.NewWriter(&buf)
			for _, h := range files {
				require.NoError(t, tw.WriteHeader(h))
				if h.Size > 0 {
					_, err := tw.Write([]byte("world"))
					require.NoError(t, err)
				}
			}
			require.NoError(t, tw.Close())

			ctx := context.Background()
			r := tar.NewReader(bytes.NewReader(buf.Bytes()))
			for _, want := range files {
				ok, err := r.Next(ctx)
				require.NoError(t, err)
				require.True(t, ok)

				got := r.Header()
				assert.Equal(t, want.Name, got.Path)
				assert.Equal(t, want.Linkname, got.LinkPath)
				assert.Equal(t, want.Size, got.Size)
				assert.Equal(t, want.ModTime.Unix(), got.ModTime.Seconds)
				assert.Equal(t, tar.TypeFlag(want.Typeflag), got.Type)
				assert.Equal(t, want.Uname, got.UserName)

				body, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, int(want.Size), len(body))
			}
			ok, err := r.Next(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestInterop_ReadsStandardLibraryPAXTimes(t *testing.T) {
	mtime := time.Unix(1321468784, 123456789)
	atime := time.Unix(-6, 999995000)

	var buf bytes.Buffer
	tw := stdtar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&stdtar.Header{
		Name: "timed", Typeflag: stdtar.TypeReg, ModTime: mtime, AccessTime: atime, Format: stdtar.FormatPAX,
		PAXRecords: map[string]string{"comment": "from the standard library"},
	}))
	require.NoError(t, tw.Close())

	r := tar.NewReader(bytes.NewReader(buf.Bytes()))
	ok, err := r.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	got := r.Header()
	assert.Equal(t, tar.TimestampOf(mtime), got.ModTime)
	require.NotNil(t, got.AccessTime)
	assert.Equal(t, tar.Timestamp{Seconds: -6, Nanoseconds: 999995000}, *got.AccessTime)
	assert.Equal(t, "from the standard library", got.Comment)
	assert.Equal(t, tar.DialectPAX, got.Dialect)
}

// buildArchive writes one archive per dialect with a short file, a long
// path and a symlink with a long target.
func buildArchive(t *testing.T, d tar.Dialect) []byte {
	t.Helper()
	ctx := context.Background()
	atime := tar.Timestamp{Seconds: 1600000000}

	var buf bytes.Buffer
	w := tar.NewWriter(&buf)
	for _, e := range []struct {
		hdr  *tar.Header
		body string
	}{
		{hdr: &tar.Header{Path: "hello.txt", Type: tar.TypeReg, Mode: 0o644, Size: 5, UserName: "alice", AccessTime: &atime}, body: "world"},
		{hdr: &tar.Header{Path: longPath, Type: tar.TypeReg, Mode: 0o600, Size: 3, UID: 1 << 30}, body: "abc"},
		{hdr: &tar.Header{Path: "ln", LinkPath: longLink, Type: tar.TypeSymlink, Mode: 0o777}},
		{hdr: &tar.Header{Path: "dir/", Type: tar.TypeDir, Mode: 0o755}},
	} {
		e.hdr.Dialect = d
		e.hdr.ModTime = tar.Timestamp{Seconds: 1700000000}
		require.NoError(t, w.CreateEntry(ctx, e.hdr))
		_, err := io.WriteString(w, e.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.CloseArchive(ctx))
	return buf.Bytes()
}

func TestInterop_TarSplitReadsOurArchives(t *testing.T) {
	for _, d := range []tar.Dialect{tar.DialectUSTAR, tar.DialectGNU, tar.DialectPAX} {
		t.Run(d.String(), func(t *testing.T) {
			tr := splittar.NewReader(bytes.NewReader(buildArchive(t, d)))

			var names []string
			for {
				h, err := tr.Next()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				names = append(names, h.Name)

				body, err := io.ReadAll(tr)
				require.NoError(t, err)
				switch h.Name {
				case "hello.txt":
					assert.Equal(t, "world", string(body))
					assert.Equal(t, "alice", h.Uname)
					assert.Equal(t, int64(1700000000), h.ModTime.Unix())
				case longPath:
					assert.Equal(t, "abc", string(body))
					assert.Equal(t, 1<<30, h.Uid)
				case "ln":
					assert.Equal(t, longLink, h.Linkname)
				}
			}
			assert.Equal(t, []string{"hello.txt", longPath, "ln", "dir/"}, names)
		})
	}
}

func TestInterop_StandardLibraryReadsOurArchives(t *testing.T) {
	tr := stdtar.NewReader(bytes.NewReader(buildArchive(t, tar.DialectGNU)))
	h, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "hello.txt", h.Name)
	assert.Equal(t, stdtar.FormatGNU, h.Format)
	assert.Equal(t, int64(1600000000), h.AccessTime.Unix())
}

// Disassembling an archive into tar-split metadata and reassembling it must
// reproduce our output byte for byte.
func TestInterop_TarSplitReassembly(t *testing.T) {
	for _, d := range []tar.Dialect{tar.DialectUSTAR, tar.DialectGNU, tar.DialectPAX} {
		t.Run(d.String(), func(t *testing.T) {
			original := buildArchive(t, d)

			var meta bytes.Buffer
			fgp := storage.NewBufferFileGetPutter()
			stream, err := asm.NewInputTarStream(bytes.NewReader(original), storage.NewJSONPacker(&meta), fgp)
			require.NoError(t, err)

			// The disassembly stream passes the archive through unchanged, so
			// our reader can consume it at the same time.
			r := tar.NewReader(stream)
			ctx := context.Background()
			count := 0
			for {
				ok, err := r.Next(ctx)
				require.NoError(t, err)
				if !ok {
					break
				}
				count++
			}
			assert.Equal(t, 4, count)
			_, err = io.Copy(io.Discard, stream)
			require.NoError(t, err)

			out := asm.NewOutputTarStream(fgp, storage.NewJSONUnpacker(&meta))
			defer out.Close()
			rebuilt, err := io.ReadAll(out)
			require.NoError(t, err)
			assert.Equal(t, original, rebuilt)
		})
	}
}

package archive_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/archive"
	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/tar"
)

func sampleArchive(t *testing.T) []byte {
	t.Helper()
	ctx := context.Background()
	var buf bytes.Buffer
	w := tar.NewWriter(&buf)
	for _, f := range []struct{ path, body string }{
		{"keep/a.txt", "alpha"},
		{"drop/b.txt", "bravo"},
		{"keep/" + strings.Repeat("c", 120) + ".txt", "charlie"},
	} {
		require.NoError(t, w.CreateEntry(ctx, &tar.Header{Path: f.path, Type: tar.TypeReg, Mode: 0o644, Size: int64(len(f.body))}))
		_, err := io.WriteString(w, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.CloseArchive(ctx))
	return buf.Bytes()
}

func TestTranscode_ConvertsDialect(t *testing.T) {
	ctx := context.Background()
	src := tar.NewReader(bytes.NewReader(sampleArchive(t)))

	var out bytes.Buffer
	dst := tar.NewWriter(&out)
	n, err := archive.Transcode[*tar.Header](ctx, dst, src, func(h *tar.Header) (*tar.Header, bool, error) {
		h.Dialect = tar.DialectGNU
		return h, strings.HasPrefix(h.Path, "drop/"), nil
	})
	require.NoError(t, err)
	require.NoError(t, dst.CloseArchive(ctx))
	assert.Equal(t, 2, n)

	r := tar.NewReader(bytes.NewReader(out.Bytes()))
	var paths []string
	for {
		ok, err := r.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.Equal(t, tar.DialectGNU, r.Header().Dialect)
		paths = append(paths, r.Header().Path)
	}
	assert.Equal(t, []string{"keep/a.txt", "keep/" + strings.Repeat("c", 120) + ".txt"}, paths)
}

func TestTranscode_NilFuncCopiesEverything(t *testing.T) {
	ctx := context.Background()
	original := sampleArchive(t)

	var out bytes.Buffer
	dst := tar.NewWriter(&out)
	n, err := archive.Transcode[*tar.Header](ctx, dst, tar.NewReader(bytes.NewReader(original)), nil)
	require.NoError(t, err)
	require.NoError(t, dst.CloseArchive(ctx))
	assert.Equal(t, 3, n)
	assert.Equal(t, original, out.Bytes())
}

func TestTranscode_StopsOnError(t *testing.T) {
	ctx := context.Background()
	boom := stderrors.New("boom")

	dst := tar.NewWriter(io.Discard)
	n, err := archive.Transcode[*tar.Header](ctx, dst, tar.NewReader(bytes.NewReader(sampleArchive(t))),
		func(h *tar.Header) (*tar.Header, bool, error) {
			if strings.HasPrefix(h.Path, "drop/") {
				return nil, false, boom
			}
			return h, false, nil
		})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestTranscode_SourceErrors(t *testing.T) {
	truncated := sampleArchive(t)[:512+3]
	n, err := archive.Transcode[*tar.Header](context.Background(), tar.NewWriter(io.Discard),
		tar.NewReader(bytes.NewReader(truncated)), nil)
	assert.Equal(t, 0, n)
	assert.Equal(t, errors.CodeUnexpectedEnd, errors.GetCode(err))
}

package tar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/archive/errors"
	"github.com/jmgilman/go/archive/internal/testutil"
)

func toRaw(b []byte) *rawHeader {
	var h rawHeader
	copy(h[:], b)
	return &h
}

func TestDecodeHeader(t *testing.T) {
	blk := testutil.HeaderBlock(testutil.RawEntry{
		Name:    "file.txt",
		Prefix:  "some/dir",
		Mode:    0o640,
		UID:     1000,
		GID:     100,
		Size:    5,
		ModTime: 1321468784,
		Type:    '0',
		Uname:   "alice",
		Gname:   "staff",
	})

	hdr, err := decodeHeader(toRaw(blk))
	require.NoError(t, err)
	assert.Equal(t, &Header{
		Path:      "some/dir/file.txt",
		Mode:      0o640,
		UID:       1000,
		GID:       100,
		Size:      5,
		ModTime:   Timestamp{Seconds: 1321468784},
		Type:      TypeReg,
		UserName:  "alice",
		GroupName: "staff",
		Dialect:   DialectUSTAR,
	}, hdr)
}

func TestDecodeHeader_NormalizesTypeNUL(t *testing.T) {
	hdr, err := decodeHeader(toRaw(testutil.HeaderBlock(testutil.RawEntry{Name: "a", Type: 0})))
	require.NoError(t, err)
	assert.Equal(t, TypeReg, hdr.Type)
}

func TestDecodeHeader_GNUTimes(t *testing.T) {
	var h rawHeader
	hdr := &Header{
		Path:       "a",
		Type:       TypeReg,
		AccessTime: &Timestamp{Seconds: 100},
		ChangeTime: &Timestamp{Seconds: 200},
	}
	require.NoError(t, encodeHeader(&h, hdr, DialectGNU, "a", ""))

	got, err := decodeHeader(&h)
	require.NoError(t, err)
	assert.Equal(t, DialectGNU, got.Dialect)
	require.NotNil(t, got.AccessTime)
	require.NotNil(t, got.ChangeTime)
	assert.Equal(t, int64(100), got.AccessTime.Seconds)
	assert.Equal(t, int64(200), got.ChangeTime.Seconds)
}

func TestDecodeHeader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		block   func() []byte
		wantMsg string
	}{
		{
			name: "bad checksum",
			block: func() []byte {
				return testutil.HeaderBlock(testutil.RawEntry{Name: "a", Checksum: 1})
			},
		},
		{
			name: "unknown magic",
			block: func() []byte {
				return testutil.HeaderBlock(testutil.RawEntry{Name: "a", Magic: "nope\x00\x00\x00\x00"})
			},
		},
		{
			name: "unterminated uname",
			block: func() []byte {
				return testutil.HeaderBlock(testutil.RawEntry{Name: "a", Uname: strings.Repeat("u", 32)})
			},
			wantMsg: "uname is not NUL-terminated",
		},
		{
			name: "unterminated gname",
			block: func() []byte {
				return testutil.HeaderBlock(testutil.RawEntry{Name: "a", Gname: strings.Repeat("g", 32)})
			},
			wantMsg: "gname is not NUL-terminated",
		},
		{
			name: "negative size",
			block: func() []byte {
				var h rawHeader
				require.NoError(t, encodeHeader(&h, &Header{Path: "a", Type: TypeReg}, DialectUSTAR, "a", ""))
				encodeBinary(h.size(), -1)
				encodeOctal(h.chksum()[:7], h.checksum())
				return h[:]
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeHeader(toRaw(tt.block()))
			require.Error(t, err)
			assert.Equal(t, errors.CodeMalformedHeader, errors.GetCode(err))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDecodeHeader_SingleByteFlipFails(t *testing.T) {
	var h rawHeader
	hdr := &Header{
		Path:      "dir/file.txt",
		LinkPath:  "target",
		Mode:      0o644,
		UID:       1,
		GID:       2,
		Size:      42,
		ModTime:   Timestamp{Seconds: 1700000000},
		Type:      TypeReg,
		UserName:  "root",
		GroupName: "wheel",
	}
	require.NoError(t, encodeHeader(&h, hdr, DialectUSTAR, "file.txt", "dir"))
	_, err := decodeHeader(&h)
	require.NoError(t, err)

	for i := range h {
		if i >= 148 && i < 156 {
			continue
		}
		flipped := h
		flipped[i] ^= 0x01
		_, err := decodeHeader(&flipped)
		require.Error(t, err, "flip at offset %d", i)
		assert.Equal(t, errors.CodeMalformedHeader, errors.GetCode(err), "offset %d", i)
	}
}

func TestEncodeHeader_Checksum(t *testing.T) {
	var h rawHeader
	require.NoError(t, encodeHeader(&h, &Header{Path: "a", Type: TypeReg}, DialectUSTAR, "a", ""))

	assert.Equal(t, testutil.Checksum(h[:]), h.checksum())
	assert.Equal(t, byte(0), h.chksum()[6])
	assert.Equal(t, byte(' '), h.chksum()[7])
	assert.Equal(t, "ustar\x00", string(h.magic()))
	assert.Equal(t, "00", string(h.version()))
}

func TestEncodeHeader_Unrepresentable(t *testing.T) {
	var h rawHeader
	err := encodeHeader(&h, &Header{Path: "a", UID: 1 << 60}, DialectUSTAR, "a", "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnrepresentable, errors.GetCode(err))
}

func TestSplitUSTARPath(t *testing.T) {
	long := strings.Repeat("d", 150) + "/" + strings.Repeat("f", 100)

	tests := []struct {
		name       string
		path       string
		wantPrefix string
		wantName   string
		ok         bool
	}{
		{"short", "a/b.txt", "", "a/b.txt", true},
		{"exactly 100", strings.Repeat("x", 100), "", strings.Repeat("x", 100), true},
		{"split", long, strings.Repeat("d", 150), strings.Repeat("f", 100), true},
		{"name too long", strings.Repeat("d", 10) + "/" + strings.Repeat("f", 101), "", "", false},
		{"prefix too long", strings.Repeat("d", 156) + "/f", "", "", false},
		{"no slash", strings.Repeat("x", 101), "", "", false},
		{"trailing slash only", strings.Repeat("x", 101) + "/", "", "", false},
		{"directory", strings.Repeat("a", 60) + "/" + strings.Repeat("b", 60) + "/", strings.Repeat("a", 60), strings.Repeat("b", 60) + "/", true},
		{"non ascii", "café.txt", "", "", false},
		{"over 256", strings.Repeat("a/", 130), "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix, name, ok := splitUSTARPath(tt.path)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantPrefix, prefix)
			assert.Equal(t, tt.wantName, name)
			if prefix != "" {
				assert.Equal(t, tt.path, prefix+"/"+name)
			}
		})
	}
}

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/archive/errors"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "plain file", path: "file.txt"},
		{name: "nested", path: "a/b/c/d/file.txt"},
		{name: "directory entry", path: "dir/"},
		{name: "dot prefix", path: "./file.txt"},
		{name: "parentheses", path: "file (1).txt"},
		{name: "unicode", path: "données/日本.txt"},
		{name: "empty", path: "", wantErr: "empty"},
		{name: "whitespace", path: " \t", wantErr: "empty"},
		{name: "absolute", path: "/etc/passwd", wantErr: "absolute"},
		{name: "windows drive", path: "C:\\Windows\\file.txt", wantErr: "absolute"},
		{name: "unc", path: "\\\\server\\share\\file", wantErr: "absolute"},
		{name: "parent", path: "../file.txt", wantErr: "traversal"},
		{name: "deep parent", path: "dir/../../../etc/passwd", wantErr: "traversal"},
		{name: "inner parent", path: "normal/../escape.txt", wantErr: "traversal"},
		{name: "backslash parent", path: "dir\\..\\..\\file.txt", wantErr: "traversal"},
		{name: "encoded slash", path: "..%2ffile.txt", wantErr: "encoded"},
		{name: "encoded dots", path: "%2E%2E%2Ffile.txt", wantErr: "encoded"},
		{name: "overlong utf8", path: "..%c0%afetc", wantErr: "encoded"},
		{name: "nul", path: "file\x00.txt", wantErr: "NUL"},
		{name: "control", path: "file\x1b.txt", wantErr: "control"},
		{name: "del", path: "file\x7f.txt", wantErr: "control"},
		{name: "hidden file", path: ".bashrc", wantErr: "hidden"},
		{name: "hidden dir", path: "dir/.git/config", wantErr: "hidden"},
	}

	v := NewPathValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePath(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, errors.CodeSecurityViolation, errors.GetCode(err))
		})
	}
}

func TestValidatePath_Options(t *testing.T) {
	v := &PathValidator{AllowHidden: true}
	assert.NoError(t, v.ValidatePath("dir/.config"))
	assert.Error(t, v.ValidatePath("données.txt"), "non-ASCII rejected unless allowed")

	v.AllowNonASCII = true
	assert.NoError(t, v.ValidatePath("données.txt"))
}

func TestValidateSymlink(t *testing.T) {
	tests := []struct {
		name   string
		link   string
		target string
		ok     bool
	}{
		{name: "sibling", link: "a/link", target: "file.txt", ok: true},
		{name: "up within root", link: "a/b/link", target: "../file.txt", ok: true},
		{name: "to root", link: "a/link", target: "..", ok: true},
		{name: "root level", link: "link", target: "dir/file", ok: true},
		{name: "escape", link: "link", target: "../outside", ok: false},
		{name: "deep escape", link: "a/b/link", target: "../../../etc/passwd", ok: false},
		{name: "absolute", link: "link", target: "/etc/passwd", ok: false},
		{name: "encoded", link: "link", target: "..%2f..%2fetc", ok: false},
		{name: "empty", link: "link", target: "", ok: false},
	}

	v := NewPathValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSymlink(tt.link, tt.target)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, errors.CodeSecurityViolation, errors.GetCode(err))
		})
	}
}

func TestValidateHardlink(t *testing.T) {
	v := NewPathValidator()
	assert.NoError(t, v.ValidateHardlink("b", "dir/a"))
	assert.Error(t, v.ValidateHardlink("b", "../a"))
	assert.Error(t, v.ValidateHardlink("b", "/etc/shadow"))
}

func FuzzValidatePath(f *testing.F) {
	for _, s := range []string{
		"file.txt",
		"dir/sub/file.txt",
		"../escape.txt",
		"..\\escape.txt",
		"/etc/passwd",
		"..%2fsecret",
		"file\x00name.txt",
		".hidden/file",
	} {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, p string) {
		v := NewPathValidator()
		if v.ValidatePath(p) == nil {
			_ = v.ValidateSymlink(p, p)
		}
	})
}

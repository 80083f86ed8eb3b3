package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/archive/archiver"
	"github.com/jmgilman/go/archive/errors"
	fsbilly "github.com/jmgilman/go/archive/fs/billy"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ustar", cfg.Create.Format)
	assert.Equal(t, archiver.DefaultMaxFiles, cfg.Extract.MaxFiles)
	assert.Len(t, cfg.CreateOptions(), 3)
	assert.Len(t, cfg.ExtractOptions(), 2)
}

func TestLoad(t *testing.T) {
	fs := fsbilly.NewMemory()
	require.NoError(t, fs.WriteFile("tarx.yaml", []byte(`
log_level: debug
create:
  format: gnu
  compression: zstd
extract:
  max_files: 50
  allow_hidden: true
`), 0o644))

	cfg, err := Load(fs, "tarx.yaml")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "gnu", cfg.Create.Format)
	assert.Equal(t, "zstd", cfg.Create.Compression)
	assert.Equal(t, "pax", cfg.Create.Fallback)
	assert.Equal(t, 50, cfg.Extract.MaxFiles)
	assert.Equal(t, int64(archiver.DefaultMaxSize), cfg.Extract.MaxSize)
	assert.True(t, cfg.Extract.AllowHidden)
	assert.Len(t, cfg.ExtractOptions(), 3)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"syntax", "create: [", errors.CodeInvalidConfig},
		{"log level", "log_level: loud", errors.CodeInvalidConfig},
		{"format", "create:\n  format: cpio", errors.CodeInvalidConfig},
		{"compression", "create:\n  compression: lz4", errors.CodeInvalidConfig},
		{"fallback", "create:\n  fallback: truncate", errors.CodeInvalidConfig},
		{"negative limit", "extract:\n  max_size: -1", errors.CodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := fsbilly.NewMemory()
			require.NoError(t, fs.WriteFile("tarx.yaml", []byte(tt.content), 0o644))
			_, err := Load(fs, "tarx.yaml")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}

	_, err := Load(fsbilly.NewMemory(), "missing.yaml")
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/tradesim/internal/core"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()

	s, err := New(Config{Type: "localfs", Path: dir})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, s)

	s, err = New(Config{Type: "s3", S3: S3Config{Bucket: "bars", Region: "us-east-1"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want *core.Error
	}{
		{"localfs without path", Config{Type: "localfs"}, core.ErrConfigMissing},
		{"s3 without bucket", Config{Type: "s3"}, core.ErrConfigMissing},
		{"unknown type", Config{Type: "ftp"}, core.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

package randx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageFileName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	name, err := ImageFileName("Holiday.JPG", "image/jpeg", now)
	require.NoError(t, err)

	assert.Regexp(t, `^1700000000123-[0-9A-Za-z]+\.jpg$`, name)
	assert.Len(t, name, len("1700000000123-")+FileSuffixLength+len(".jpg"))
}

func TestImageFileNameUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})

	for range 1000 {
		name, err := ImageFileName("a.png", "image/png", now)
		require.NoError(t, err)
		require.NotContains(t, seen, name, "duplicate name")
		seen[name] = struct{}{}
	}
}

func TestImageExt(t *testing.T) {
	tests := []struct {
		name, contentType, want string
	}{
		{"cat.png", "image/png", ".png"},
		{"cat.JPEG", "image/jpeg", ".jpeg"},
		{"page.html", "image/png", ".png"},
		{"noext", "image/gif", ".gif"},
		{"noext", "image/x-unknown", ""},
		{"logo.svg", "image/svg+xml", ""},
		{"noext", "image/svg+xml", ""},
		{"noext", "", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ImageExt(tt.name, tt.contentType), "ImageExt(%q, %q)", tt.name, tt.contentType)
	}
}

func TestConnectionIDUnique(t *testing.T) {
	assert.NotEqual(t, ConnectionID(), ConnectionID())
}

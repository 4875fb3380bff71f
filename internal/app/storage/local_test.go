package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{ after int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.after <= 0 {
		return 0, errors.New("connection reset")
	}
	n := min(len(p), r.after)
	r.after -= n
	return n, nil
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "uploads/")
	require.NoError(t, err)

	data := []byte("\x89PNG fake image")
	url, err := store.Save(context.Background(), "1-abc.png", "image/png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1-abc.png", url)

	got, err := os.ReadFile(filepath.Join(dir, "1-abc.png"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = store.Save(context.Background(), "1-abc.png", "image/png", bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrObjectExists)
}

func TestLocalStoreSaveRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "broken.png", "image/png", &failingReader{after: 1024})
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "broken.png"), "partial file left behind")
}

func TestLocalStoreRejectsPathNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	for _, name := range []string{"", "../x.png", "a/b.png", ".hidden"} {
		_, err := store.Save(context.Background(), name, "image/png", io.LimitReader(nil, 0))
		assert.Error(t, err, "Save(%q) should fail", name)
	}
}

func TestLocalStoreOwns(t *testing.T) {
	store := &LocalStore{Dir: "unused", URLPrefix: "/uploads"}

	tests := []struct {
		url  string
		want bool
	}{
		{"/uploads/1700-abc.png", true},
		{"/uploads/", false},
		{"/uploads/../secret", false},
		{"/uploads/.env", false},
		{"/uploadsx/a.png", false},
		{"https://evil.example/a.png", false},
		{"/uploads/a.png?x=1", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, store.Owns(tt.url), "Owns(%q)", tt.url)
	}
}

func TestNewImageStoreUnknownBackend(t *testing.T) {
	_, err := NewImageStore(ServiceConfig{Backend: "ftp"})
	assert.Error(t, err)
}

func TestS3StoreOwns(t *testing.T) {
	store := &s3Store{publicURL: "https://cdn.example/chat"}

	assert.True(t, store.Owns("https://cdn.example/chat/chat-images/1-a.png"), "own object URL rejected")
	assert.False(t, store.Owns("https://cdn.example/chat/other/1-a.png"))
	assert.False(t, store.Owns("https://cdn.example/chat/chat-images/"))
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livechat/internal/app/chat"
	"livechat/internal/app/storage"
	"livechat/internal/configs"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/resp"
)

type testServer struct {
	*httptest.Server
	handler   http.Handler
	uploadDir string
	room      *chat.Room
}

// newTestServer builds the router on a local store in a temp dir. Options
// adjust the dependencies before the router is built.
func newTestServer(t *testing.T, opts ...func(*AppDeps)) *testServer {
	t.Helper()

	uploadDir := t.TempDir()
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<h1>livechat</h1>"), 0o644))

	cfg := &configs.AppConfig{
		Environment:     "development",
		Port:            3000,
		StaticDir:       staticDir,
		UploadDir:       uploadDir,
		UploadURLPrefix: "/uploads",
		StorageBackend:  configs.StorageLocal,
	}

	store, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix)
	require.NoError(t, err)

	room := chat.NewRoom(chat.RoomOptions{ImageURLs: store.Owns})
	go room.Run()

	deps := &AppDeps{Room: room, Config: cfg, Images: store}
	for _, opt := range opts {
		opt(deps)
	}

	handler := Router(deps)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		room.Stop()
		room.Wait()
	})

	return &testServer{Server: srv, handler: handler, uploadDir: uploadDir, room: room}
}

func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return body, mw.FormDataContentType()
}

// serve runs one request through the router in process.
func (s *testServer) serve(r *http.Request) *http.Response {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec.Result()
}

func (s *testServer) upload(t *testing.T, path, field, filename, contentType string, data []byte) *http.Response {
	t.Helper()

	body, ct := multipartBody(t, field, filename, contentType, data)
	r := httptest.NewRequest(http.MethodPost, path, body)
	r.Header.Set("Content-Type", ct)
	return s.serve(r)
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	defer res.Body.Close()

	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v), "decode response")
	return v
}

func payload(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = seed + byte(i%251)
	}
	return data
}

func (s *testServer) assertNoUploads(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload dir should be empty")
}

// brokenStore fails every write, like a full disk or an unreachable bucket.
type brokenStore struct{}

func (brokenStore) Save(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("no space left on device")
}

func (brokenStore) Owns(string) bool { return false }

func TestUploadRoundTrip(t *testing.T) {
	s := newTestServer(t)
	data := payload(2<<20, 7)

	for _, path := range []string{"/upload", "/api/upload"} {
		t.Run(path, func(t *testing.T) {
			res := s.upload(t, path, "image", "holiday.jpg", "image/jpeg", data)
			require.Equal(t, http.StatusOK, res.StatusCode)

			out := decodeBody[UploadResponse](t, res)
			assert.True(t, out.Success)
			assert.Equal(t, "holiday.jpg", out.OriginalName)
			assert.True(t, strings.HasPrefix(out.ImageURL, "/uploads/"), out.ImageURL)
			assert.True(t, strings.HasSuffix(out.ImageURL, ".jpg"), out.ImageURL)

			got := s.serve(httptest.NewRequest(http.MethodGet, out.ImageURL, nil))
			defer got.Body.Close()

			require.Equal(t, http.StatusOK, got.StatusCode)
			assert.Equal(t, "nosniff", got.Header.Get("X-Content-Type-Options"))
			assert.Contains(t, got.Header.Get("Content-Security-Policy"), "sandbox")

			served, err := io.ReadAll(got.Body)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(served, data), "served %d bytes, differs from the %d uploaded", len(served), len(data))
		})
	}
}

func TestUploadRejects(t *testing.T) {
	tests := []struct {
		name        string
		field       string
		filename    string
		contentType string
		size        int
		code        int
	}{
		{"too large", "image", "big.png", "image/png", 6 << 20, errs.ErrRequestEntityTooLarge},
		{"just over the limit", "image", "big.png", "image/png", int(MaxImageSize) + 1, errs.ErrFileSizeTooLarge},
		{"not an image", "image", "notes.txt", "text/plain", 1024, errs.ErrFileTypeNotAllowed},
		{"image extension but wrong type", "image", "fake.png", "application/octet-stream", 1024, errs.ErrFileTypeNotAllowed},
		{"wrong field", "file", "cat.png", "image/png", 1024, errs.ErrNoFileUploaded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)

			res := s.upload(t, "/upload", tt.field, tt.filename, tt.contentType, payload(tt.size, 1))
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)

			body := decodeBody[resp.ErrorBody](t, res)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)

			s.assertNoUploads(t)
		})
	}
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	s := newTestServer(t)

	r := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{}`))
	r.Header.Set("Content-Type", "application/json")
	res := s.serve(r)

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, errs.ErrFormParseFailed, decodeBody[resp.ErrorBody](t, res).Code)
}

func TestUploadStorageFailure(t *testing.T) {
	s := newTestServer(t, func(d *AppDeps) { d.Images = brokenStore{} })

	res := s.upload(t, "/upload", "image", "cat.png", "image/png", payload(1024, 3))
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	body := decodeBody[map[string]any](t, res)
	assert.EqualValues(t, errs.ErrFileStorageFailed, body["code"])
	assert.NotEmpty(t, body["error"])
	assert.NotContains(t, body, "imageUrl")
	assert.NotContains(t, body, "success")
}

func TestUploadSVGIsStoredWithoutScriptableExtension(t *testing.T) {
	s := newTestServer(t)

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
	res := s.upload(t, "/upload", "image", "logo.svg", "image/svg+xml", svg)
	require.Equal(t, http.StatusOK, res.StatusCode)

	out := decodeBody[UploadResponse](t, res)
	assert.False(t, strings.HasSuffix(out.ImageURL, ".svg"), out.ImageURL)

	got := s.serve(httptest.NewRequest(http.MethodGet, out.ImageURL, nil))
	defer got.Body.Close()

	assert.Equal(t, http.StatusOK, got.StatusCode)
	assert.NotEqual(t, "image/svg+xml", got.Header.Get("Content-Type"))
	assert.Contains(t, got.Header.Get("Content-Security-Policy"), "sandbox")
}

func TestConcurrentUploadsNeverCollide(t *testing.T) {
	s := newTestServer(t)

	const n = 16
	urls := make([]string, n)
	requests := make([]*http.Request, n)
	for i := range n {
		body, ct := multipartBody(t, "image", "same.png", "image/png", payload(4096, byte(i)))
		requests[i] = httptest.NewRequest(http.MethodPost, "/upload", body)
		requests[i].Header.Set("Content-Type", ct)
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()

			res := s.serve(requests[i])
			defer res.Body.Close()

			var out UploadResponse
			if assert.NoError(t, json.NewDecoder(res.Body).Decode(&out), "upload %d", i) &&
				assert.True(t, out.Success, "upload %d: status %d", i, res.StatusCode) {
				urls[i] = out.ImageURL
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]int, n)
	for i, url := range urls {
		if url == "" {
			continue
		}
		j, dup := seen[url]
		require.False(t, dup, "uploads %d and %d share %s", j, i, url)
		seen[url] = i

		stored, err := os.ReadFile(filepath.Join(s.uploadDir, strings.TrimPrefix(url, "/uploads/")))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(stored, payload(4096, byte(i))), "upload %d stored the wrong bytes", i)
	}
}

func TestUploadedFilesDoNotListDirectory(t *testing.T) {
	s := newTestServer(t)

	res := s.serve(httptest.NewRequest(http.MethodGet, "/uploads/", nil))
	res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHealthAndRoot(t *testing.T) {
	s := newTestServer(t)

	res := s.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	health := decodeBody[HealthResponse](t, res)
	assert.Equal(t, HealthResponse{Status: "ok", Service: ServiceName, Users: 0}, health)

	res = s.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	defer res.Body.Close()

	page, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(page), "livechat")
}

func TestCORSOrigins(t *testing.T) {
	production := func(origins ...string) func(*AppDeps) {
		return func(d *AppDeps) {
			d.Config.Environment = "production"
			d.Config.AllowedOrigins = origins
		}
	}

	tests := []struct {
		name    string
		opts    []func(*AppDeps)
		origin  string
		allowed bool
	}{
		{"development allows any origin", nil, "https://anywhere.example", true},
		{"production without allow-list", []func(*AppDeps){production()}, "https://evil.example", false},
		{"production allow-listed origin", []func(*AppDeps){production("https://app.example")}, "https://app.example", true},
		{"production other origin", []func(*AppDeps){production("https://app.example")}, "https://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.opts...)

			r := httptest.NewRequest(http.MethodOptions, "/upload", nil)
			r.Header.Set("Origin", tt.origin)
			r.Header.Set("Access-Control-Request-Method", http.MethodPost)
			res := s.serve(r)
			res.Body.Close()

			allowOrigin := res.Header.Get("Access-Control-Allow-Origin")
			if tt.allowed {
				assert.NotEmpty(t, allowOrigin)
			} else {
				assert.Empty(t, allowOrigin)
			}
		})
	}
}

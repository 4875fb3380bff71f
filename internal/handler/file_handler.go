package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"livechat/internal/app/storage"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/randx"
	"livechat/internal/pkg/req"
	"livechat/internal/pkg/resp"
	"livechat/internal/pkg/sanitize"
)

const (
	// MaxImageSize is the largest accepted image file.
	MaxImageSize int64 = 5 << 20

	// maxUploadBody leaves room for the multipart framing around the file.
	maxUploadBody = MaxImageSize + 1<<20

	// uploadField is the multipart field carrying the image.
	uploadField = "image"

	// saveAttempts bounds retries when a generated name is already taken.
	saveAttempts = 3
)

// UploadResponse is the success body of an image upload.
type UploadResponse struct {
	Success      bool   `json:"success"`
	ImageURL     string `json:"imageUrl"`
	OriginalName string `json:"originalName"`
}

// HandleUpload accepts one image in the "image" multipart field, stores it
// under a fresh name and returns the URL clients use in image messages.
func HandleUpload(images storage.ImageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		if customErr := req.ParseMultipart(w, r, maxUploadBody); customErr != nil {
			logger.Warn().Int("code", customErr.Code).Msg("Upload rejected: unreadable body")
			resp.RespondError(w, r, customErr)
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logger.Warn().Err(err).Msg("Failed to remove multipart temp files")
			}
		}()

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrNoFileUploaded))
			return
		}
		defer file.Close()

		if customErr := validateImage(header); customErr != nil {
			logger.Warn().
				Int("code", customErr.Code).
				Int64("size", header.Size).
				Str("content_type", header.Header.Get("Content-Type")).
				Msg("Upload rejected")
			resp.RespondError(w, r, customErr)
			return
		}

		originalName := sanitize.FileName(header.Filename)
		contentType := header.Header.Get("Content-Type")

		url, err := saveImage(r.Context(), images, file, originalName, contentType)
		if err != nil {
			logger.Error().Err(err).Str("original_name", originalName).Msg("Failed to store upload")
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		logger.Info().
			Str("image_url", url).
			Int64("size", header.Size).
			Str("content_type", contentType).
			Msg("Image uploaded")

		resp.RespondOK(w, r, UploadResponse{
			Success:      true,
			ImageURL:     url,
			OriginalName: originalName,
		})
	}
}

// validateImage checks the declared size and content type of an uploaded part.
func validateImage(header *multipart.FileHeader) *errs.CustomError {
	if header.Size > MaxImageSize {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxImageSize>>20)
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if !strings.HasPrefix(contentType, "image/") {
		return errs.NewError(errs.ErrFileTypeNotAllowed)
	}

	return nil
}

// saveImage stores file under a generated name, picking a new name if the
// store reports a collision.
func saveImage(ctx context.Context, images storage.ImageStore, file multipart.File, originalName, contentType string) (string, error) {
	var lastErr error

	for range saveAttempts {
		name, err := randx.ImageFileName(originalName, contentType, time.Now())
		if err != nil {
			return "", err
		}

		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return "", err
		}

		url, err := images.Save(ctx, name, contentType, file)
		if err == nil {
			return url, nil
		}
		if !errors.Is(err, storage.ErrObjectExists) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}

/*
Package req parses request bodies with size limits applied before any
handler logic runs.
*/
package req

import (
	"errors"
	"net/http"
	"strings"

	"livechat/internal/pkg/errs"
)

// MaxFormMemory is the part of a multipart body held in memory; the rest spills to temp files.
const MaxFormMemory int64 = 8 << 20

// ParseMultipart caps the body at maxBytes through http.MaxBytesReader and parses
// it as a multipart form. Callers should defer r.MultipartForm.RemoveAll on success.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrFormParseFailed)
	}

	return nil
}

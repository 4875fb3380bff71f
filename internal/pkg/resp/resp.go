/*
Package resp writes JSON responses.

Failures share one body shape, {"code": <int>, "error": "<message>"}, so clients can
show the message and branch on the code.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

// RespondJSON marshals payload and writes it with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", status, "uri", r.RequestURI)
		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// RespondOK writes payload with 200 OK.
func RespondOK(w http.ResponseWriter, r *http.Request, payload any) {
	RespondJSON(w, r, http.StatusOK, payload)
}

// RespondError writes customErr using its HTTP status. A nil error is reported as ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, ErrorBody{
		Code:  customErr.Code,
		Error: customErr.Message,
	})
}

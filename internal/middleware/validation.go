package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/onnwee/agrisync/backend/internal/apierr"
)

// MaxRequestBodySize is the maximum size of request bodies (1MB)
const MaxRequestBodySize = 1 << 20

// ValidateRequestBody caps the body size of write requests.
func ValidateRequestBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// DecodeJSON decodes a JSON request body into dst. Unknown fields are
// rejected. An empty body is allowed when allowEmpty is set, leaving dst
// untouched.
func DecodeJSON(r *http.Request, dst interface{}, allowEmpty bool) *apierr.Error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return apierr.ValidationInvalidFormat("Content-Type must be application/json")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierr.ValidationInvalidFormat("Request body too large")
		}
		return apierr.ValidationInvalidJSON()
	}
	if dec.More() {
		return apierr.ValidationInvalidJSON()
	}
	return nil
}

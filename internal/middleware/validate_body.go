package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

const maxBodyBytes = 1 << 20

// BodyValidator checks a raw JSON body against a named schema.
type BodyValidator interface {
	Validate(name string, body []byte) error
}

// ValidateBody rejects requests whose body does not satisfy the named schema.
// It reads the body, then replaces r.Body so the handler can decode it again.
func ValidateBody(v BodyValidator, schema string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
			r.Body.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read body")
				return
			}
			if len(bodyBytes) > maxBodyBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "body too large")
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			if err := v.Validate(schema, bodyBytes); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"wristwatch-be/internal/apperror"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst. An empty body leaves dst zero so
// field validation can report what is missing.
func decodeJSON(r *http.Request, op string, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperror.Invalid(op, "invalid JSON body")
	}
	return nil
}

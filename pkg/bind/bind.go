// Package bind decodes and validates an HTTP request body into a struct.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shashiranjanraj/kachra/config"
	"github.com/shashiranjanraj/kachra/pkg/validate"
)

const defaultMaxBody = 4 << 20

// maxBodyBytes returns the configured request body size limit (default 4 MB).
func maxBodyBytes() int64 {
	n := config.Int("MAX_BODY_BYTES", defaultMaxBody)
	if n <= 0 {
		return defaultMaxBody
	}
	return int64(n)
}

// Decode reads r.Body as a single JSON value into dest. Bodies larger than
// MAX_BODY_BYTES and trailing garbage are rejected.
func Decode(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}
	if dec.More() {
		return errors.New("invalid JSON: unexpected data after top-level value")
	}
	return nil
}

// JSON decodes r.Body into dest and runs validation.
// Returns (fields, nil) when there are validation failures and (nil, err)
// when the body is malformed or too large.
func JSON(r *http.Request, dest interface{}) (fields map[string]string, err error) {
	if err := Decode(r, dest); err != nil {
		return nil, err
	}

	fields = validate.Struct(dest)
	if validate.HasErrors(fields) {
		return fields, nil
	}
	return nil, nil
}

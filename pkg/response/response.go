package response

import (
	"encoding/json"
	"net/http"

	"github.com/shashiranjanraj/kachra/pkg/errs"
)

// Envelope is the JSON body of every API response except the image proxy.
type Envelope struct {
	Status  int         `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// JSON writes v as-is with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Error sends a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Status: status, Message: message})
}

// Fail translates a service error into the matching status code.
// Unclassified errors become a 500 without leaking their text.
func Fail(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := StatusFor(kind)

	body := Envelope{Status: status, Code: kind.String(), Message: errs.MessageOf(err)}
	if kind == errs.KindValidation {
		body.Errors = errs.FieldsOf(err)
	}
	JSON(w, status, body)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(k errs.Kind) int {
	switch k {
	case errs.KindValidation:
		return http.StatusUnprocessableEntity
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindAuthorization:
		return http.StatusForbidden
	case errs.KindUnauthenticated:
		return http.StatusUnauthorized
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindUpstream:
		return http.StatusBadGateway
	case errs.KindTimeout:
		return http.StatusGatewayTimeout
	case errs.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Unauthorized sends a 401.
func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "Unauthorized")
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}

package reqid_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/kachra/pkg/reqid"
)

func serve(header string) (string, string) {
	var seen string
	h := reqid.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = reqid.FromCtx(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(reqid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec.Header().Get(reqid.Header)
}

func TestGeneratesUUID(t *testing.T) {
	seen, echoed := serve("")
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, echoed)
}

func TestKeepsUpstreamID(t *testing.T) {
	seen, echoed := serve("gateway-42")
	assert.Equal(t, "gateway-42", seen)
	assert.Equal(t, "gateway-42", echoed)
}

func TestReplacesUnsafeID(t *testing.T) {
	seen, _ := serve("bad id\twith spaces")
	assert.NotEqual(t, "bad id\twith spaces", seen)

	seen, _ = serve(strings.Repeat("a", 500))
	assert.Len(t, seen, 36)
}

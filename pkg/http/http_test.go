package http_test

import (
	"encoding/json"
	"io"
	gohttp "net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kachra/pkg/http"
)

type roundTripFunc func(*gohttp.Request) (*gohttp.Response, error)

func (f roundTripFunc) RoundTrip(r *gohttp.Request) (*gohttp.Response, error) { return f(r) }

func reply(status int, body string) *gohttp.Response {
	return &gohttp.Response{
		StatusCode: status,
		Header:     gohttp.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestPostSendsJSONAndAuthorization(t *testing.T) {
	var seen *gohttp.Request
	var payload map[string]any
	http.DefaultClient.Transport = roundTripFunc(func(r *gohttp.Request) (*gohttp.Response, error) {
		seen = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		return reply(200, `{"images":[{"url":"https://cdn.example/a.png"}]}`), nil
	})
	defer http.ResetTransport()

	resp, err := http.Post("https://fal.example/run").
		Authorization("Key", "secret").
		Body(map[string]any{"prompt": "recycled plastic pellets"}).
		Send()
	require.NoError(t, err)
	require.True(t, resp.OK())

	assert.Equal(t, "Key secret", seen.Header.Get("Authorization"))
	assert.Equal(t, "application/json", seen.Header.Get("Content-Type"))
	assert.Equal(t, "recycled plastic pellets", payload["prompt"])

	var out struct {
		Images []struct{ URL string } `json:"images"`
	}
	require.NoError(t, resp.JSON(&out))
	require.Len(t, out.Images, 1)
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	http.DefaultClient.Transport = roundTripFunc(func(*gohttp.Request) (*gohttp.Response, error) {
		if calls.Add(1) < 3 {
			return reply(503, `{}`), nil
		}
		return reply(200, `{"ok":true}`), nil
	})
	defer http.ResetTransport()

	resp, err := http.Get("https://upstream.example").Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	http.DefaultClient.Transport = roundTripFunc(func(*gohttp.Request) (*gohttp.Response, error) {
		calls.Add(1)
		return reply(400, `{"detail":"bad prompt"}`), nil
	})
	defer http.ResetTransport()

	resp, err := http.Post("https://upstream.example").Retry(3, time.Millisecond).Send()
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	assert.ErrorContains(t, resp.Throw(), "status 400")
}

func TestTransportErrorExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	http.DefaultClient.Transport = roundTripFunc(func(*gohttp.Request) (*gohttp.Response, error) {
		calls.Add(1)
		return nil, io.ErrUnexpectedEOF
	})
	defer http.ResetTransport()

	_, err := http.Get("https://upstream.example").Retry(2, time.Millisecond).Send()
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.EqualValues(t, 2, calls.Load())
}

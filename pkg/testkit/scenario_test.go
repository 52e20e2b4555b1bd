package testkit_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/kachra/pkg/testkit"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFlow(t *testing.T) {
	dir := t.TempDir()

	single := writeFile(t, dir, "health.json", `{"name": "health", "url": "/health", "expectedCode": 200}`)
	s, err := testkit.LoadScenario(single)
	require.NoError(t, err)
	assert.Equal(t, "GET", s.Method)

	flow := writeFile(t, dir, "flow.json", `[
		{"name": "a", "method": "post", "url": "/a", "expectedCode": 201, "requestFileName": "a_req.json"},
		{"name": "b", "url": "/b/{{id}}", "expectedCode": 200}
	]`)
	writeFile(t, dir, "a_req.json", `{"x": 1}`)
	steps, err := testkit.LoadFlow(flow)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "POST", steps[0].Method)

	body, err := steps[0].RequestBody()
	require.NoError(t, err)
	assert.JSONEq(t, `{"x": 1}`, string(body))

	_, err = testkit.LoadScenario(flow)
	assert.Error(t, err)

	tests := map[string]string{
		"missing name": `{"url": "/x", "expectedCode": 200}`,
		"missing url":  `{"name": "x", "expectedCode": 200}`,
		"missing code": `{"name": "x", "url": "/x"}`,
		"two bodies":   `{"name": "x", "url": "/x", "expectedCode": 200, "body": {}, "requestFileName": "a_req.json"}`,
		"unnamed mock": `{"name": "x", "url": "/x", "expectedCode": 200, "mocks": [{"isMock": true}]}`,
		"empty flow":   `[]`,
		"invalid json": `{"name": `,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := testkit.LoadFlow(writeFile(t, dir, "bad.json", body))
			assert.Error(t, err)
		})
	}
}

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"data": []any{
			map[string]any{"requestId": "r-1", "price": 80.0},
			map[string]any{"requestId": "r-2"},
		},
		"status": 200.0,
	}

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"status", 200.0, true},
		{"data.#", 2.0, true},
		{"data.0.requestId", "r-1", true},
		{"data.1.requestId", "r-2", true},
		{"data.0.#", 2.0, true},
		{"data.2.requestId", nil, false},
		{"data.x", nil, false},
		{"status.code", nil, false},
		{"missing", nil, false},
	}
	for _, tc := range tests {
		got, ok := testkit.Lookup(doc, tc.path)
		assert.Equal(t, tc.ok, ok, tc.path)
		assert.Equal(t, tc.want, got, tc.path)
	}
}

func TestVarsExpand(t *testing.T) {
	v := testkit.Vars{"id": "AB12C", "token": "t0k"}
	assert.Equal(t, "/api/products/AB12C", v.Expand("/api/products/{{id}}"))
	assert.Equal(t, "Bearer t0k {{other}}", v.Expand("Bearer {{token}} {{other}}"))
	assert.Equal(t, "plain", testkit.Vars{}.Expand("plain"))
}

func TestMockTransport(t *testing.T) {
	s := &testkit.Scenario{
		IsMockRequired: true,
		Mocks: []testkit.MockStep{
			{Method: testkit.MethodHTTP, IsMock: true, MatchURL: "https://fal.run/", ReturnData: testkit.MockReturnData{JSON: []byte(`{"seed":7}`)}},
			{Method: testkit.MethodHTTP, IsMock: true, MatchURL: "https://b64.example/", ReturnData: testkit.MockReturnData{
				StatusCode: http.StatusTeapot,
				Body:       base64.StdEncoding.EncodeToString([]byte(`{"ok":false}`)),
			}},
			{Method: testkit.MethodHTTP, IsMock: true, MatchURL: "https://never.example/"},
			{Method: testkit.MethodGenerate, IsMock: true},
		},
	}
	mt := testkit.NewMockTransport(s)

	resp, err := mt.RoundTrip(httptest.NewRequest(http.MethodPost, "https://fal.run/fal-ai/fast-lightning-sdxl", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"seed":7}`, string(body))

	resp, err = mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://b64.example/x", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.JSONEq(t, `{"ok":false}`, string(body))

	_, err = mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://elsewhere.example/", nil))
	assert.Error(t, err)

	assert.Len(t, mt.Calls(), 3)
	errs := mt.AssertAllCalled()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "never.example")

	s.IsMockRequired = false
	resp, err = testkit.NewMockTransport(s).RoundTrip(httptest.NewRequest(http.MethodGet, "https://elsewhere.example/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTextMock(t *testing.T) {
	tm := testkit.NewTextMock()
	require.NoError(t, tm.Intercept([]byte("first")))
	require.NoError(t, tm.Intercept([]byte("second")))

	ctx := context.Background()
	out, err := tm.Generate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "first", out)
	out, err = tm.Generate(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	_, err = tm.Generate(ctx, "p3")
	assert.ErrorIs(t, err, testkit.ErrNothingQueued)
	assert.Equal(t, 3, tm.WasCalled())
	assert.Equal(t, []string{"p1", "p2", "p3"}, tm.Prompts())
	tm.Mock().AssertNumberOfCalls(t, "Generate", 3)

	tm.Reset()
	assert.Zero(t, tm.WasCalled())
	assert.Empty(t, tm.Prompts())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tm.Generate(cancelled, "p4")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestActivateFuncMocks(t *testing.T) {
	pricing := testkit.NewTextMock()
	testkit.RegisterMocker("pricing", pricing)
	require.Same(t, pricing, testkit.GetMocker("pricing"))

	s := &testkit.Scenario{
		Name: "pricing",
		Mocks: []testkit.MockStep{
			{Method: "pricing", IsMock: true, ReturnData: testkit.MockReturnData{Text: "42"}},
			{Method: "unregistered", IsMock: true},
		},
	}
	require.NoError(t, testkit.ActivateFuncMocks(s))
	assert.Len(t, testkit.AssertFuncMocksCalled(s), 1)

	out, err := pricing.Generate(context.Background(), "price copper")
	require.NoError(t, err)
	assert.Equal(t, "42", out)
	assert.Empty(t, testkit.AssertFuncMocksCalled(s))

	s.IsMockRequired = true
	assert.Error(t, testkit.ActivateFuncMocks(s))
	pricing.Reset()
}

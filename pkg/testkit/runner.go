package testkit

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	kachrahttp "github.com/shashiranjanraj/kachra/pkg/http"
)

// HandlerFactory builds a fresh application for one scenario file, so
// flows never see each other's data.
type HandlerFactory func(t *testing.T) http.Handler

// Run executes the scenario file at path against handler. Each step is a
// subtest; a failing step stops the rest of the flow.
func Run(t *testing.T, handler http.Handler, path string) {
	t.Helper()

	steps, err := LoadFlow(path)
	if err != nil {
		t.Fatalf("%v", err)
	}
	runFlow(t, handler, steps)
}

// RunDir runs every *.json file in dir as its own subtest, each against a
// handler from newHandler. Files that fail to load are reported and skipped.
//
//	func TestScenarios(t *testing.T) {
//	    testkit.RunDir(t, "testdata", func(t *testing.T) http.Handler { return newApp(t) })
//	}
func RunDir(t *testing.T, dir string, newHandler HandlerFactory) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		if strings.HasSuffix(name, "_req") || strings.HasSuffix(name, "_res") {
			continue
		}
		steps, err := LoadFlow(path)
		if err != nil {
			t.Errorf("%v", err)
			continue
		}
		t.Run(name, func(t *testing.T) {
			runFlow(t, newHandler(t), steps)
		})
	}
}

func runFlow(t *testing.T, handler http.Handler, steps []*Scenario) {
	t.Helper()

	vars := Vars{}
	for i, s := range steps {
		ok := t.Run(s.Name, func(t *testing.T) {
			runStep(t, handler, s, vars)
		})
		if !ok {
			if left := len(steps) - i - 1; left > 0 {
				t.Errorf("testkit: %d step(s) after %q not run", left, s.Name)
			}
			return
		}
	}
}

func runStep(t *testing.T, handler http.Handler, s *Scenario, vars Vars) {
	t.Helper()

	raw, err := s.RequestBody()
	require.NoError(t, err, "[%s] request body", s.Name)
	var body io.Reader
	if raw != nil {
		body = strings.NewReader(vars.Expand(string(raw)))
	}

	mt := NewMockTransport(s)
	original := kachrahttp.DefaultClient.Transport
	kachrahttp.DefaultClient.Transport = mt
	defer func() { kachrahttp.DefaultClient.Transport = original }()

	resetAllMockers()
	defer resetAllMockers()
	require.NoError(t, ActivateFuncMocks(s), "[%s] activate mocks", s.Name)

	req := httptest.NewRequest(s.Method, vars.Expand(s.URL), body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, vars.Expand(v))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code, rec.Body.Bytes())

	expected, err := s.ExpectedBody()
	require.NoError(t, err, "[%s] response file", s.Name)
	if expected != nil {
		AssertJSONBody(t, s, []byte(vars.Expand(string(expected))), rec.Body.Bytes())
	}

	if len(s.Expect) > 0 || len(s.Capture) > 0 {
		var doc any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc),
			"[%s] response is not JSON: %s", s.Name, rec.Body.String())
		AssertExpect(t, s, vars, doc)
		require.NoError(t, vars.capture(doc, s.Capture), "[%s]", s.Name)
	}

	AssertMocksAllCalled(t, s, mt)
}

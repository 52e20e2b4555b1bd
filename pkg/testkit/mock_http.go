package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MethodHTTP is the mock method answered by MockTransport.
const MethodHTTP = "httprequest"

// MockTransport is an http.RoundTripper answering outgoing calls from the
// "httprequest" steps of a scenario. Steps are tried in order and the first
// whose matchUrl prefixes the request URL wins.
//
//	mt := testkit.NewMockTransport(s)
//	http.DefaultClient.Transport = mt
//	defer http.ResetTransport()
type MockTransport struct {
	mu      sync.Mutex
	steps   []httpMockEntry
	require bool
	seen    []string
}

type httpMockEntry struct {
	step  MockStep
	calls int
}

func NewMockTransport(s *Scenario) *MockTransport {
	mt := &MockTransport{require: s.IsMockRequired}
	for _, step := range s.Mocks {
		if step.Method == MethodHTTP && step.IsMock {
			mt.steps = append(mt.steps, httpMockEntry{step: step})
		}
	}
	return mt
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	url := req.URL.String()
	mt.seen = append(mt.seen, req.Method+" "+url)
	if req.Body != nil {
		// drain so the client can reuse the request body reader
		_, _ = io.Copy(io.Discard, req.Body)
		_ = req.Body.Close()
	}

	for i := range mt.steps {
		entry := &mt.steps[i]
		if !strings.HasPrefix(url, entry.step.MatchURL) {
			continue
		}
		entry.calls++
		return buildHTTPResponse(req, entry.step.ReturnData)
	}

	if mt.require {
		return nil, fmt.Errorf("testkit: no mock step for outgoing %s %s", req.Method, url)
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Status:     "404 Not Found",
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Calls lists every outgoing request seen, as "METHOD url".
func (mt *MockTransport) Calls() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]string(nil), mt.seen...)
}

// AssertAllCalled returns one error per step that was never used.
func (mt *MockTransport) AssertAllCalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.calls == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock step %q (matchUrl=%q) was never called", e.step.Method, e.step.MatchURL))
		}
	}
	return errs
}

func buildHTTPResponse(req *http.Request, rd MockReturnData) (*http.Response, error) {
	code := rd.StatusCode
	if code == 0 {
		code = http.StatusOK
	}
	body, err := rd.Payload()
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}, nil
}

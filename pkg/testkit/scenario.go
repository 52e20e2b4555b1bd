// Package testkit drives the HTTP API from JSON scenario files.
//
// A scenario file holds one step object or an ordered array of steps (a
// flow). Steps in a flow share variables: values captured from one
// response are substituted as {{name}} into later URLs, headers and bodies.
//
//	[
//	  {"name": "seller signs up", "method": "POST", "url": "/api/auth/signup",
//	   "requestFileName": "seller_signup.json", "expectedCode": 201,
//	   "capture": {"sellerToken": "data.token"}},
//	  {"name": "seller lists sawdust", "method": "POST", "url": "/api/seller/products",
//	   "headers": {"Authorization": "Bearer {{sellerToken}}"},
//	   "body": {"name": "Sawdust", "type": "By Product", "...": "..."},
//	   "expectedCode": 201, "expect": {"data.status": "Available"}}
//	]
//
// Outgoing calls made through pkg/http are answered by "httprequest" mock
// steps. Other mock methods are handed to registered FuncMockers, such as
// the "generate" TextMock standing in for the text model.
package testkit

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Scenario is one request against the API and what to check in the reply.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	Method          string            `json:"method"`
	URL             string            `json:"url"`
	RequestFileName string            `json:"requestFileName"` // relative to the scenario file
	Body            json.RawMessage   `json:"body"`            // inline alternative to requestFileName
	Headers         map[string]string `json:"headers"`

	ExpectedCode     int               `json:"expectedCode"`
	ResponseFileName string            `json:"responseFileName"` // full-body JSON comparison
	Expect           map[string]any    `json:"expect"`           // path -> value, see Lookup
	Capture          map[string]string `json:"capture"`          // variable -> path

	// IsMockRequired turns an unmatched outgoing call into a transport error.
	IsMockRequired bool       `json:"isMockRequired"`
	Mocks          []MockStep `json:"mocks"`

	dir string
}

// MockStep describes one intercepted dependency call.
//
//	"httprequest"  answers outgoing pkg/http calls whose URL starts with matchUrl
//	"generate"     queues an answer for the text model
//	anything else  goes to the FuncMocker registered under that name
type MockStep struct {
	Method     string         `json:"method"`
	IsMock     bool           `json:"isMock"`
	MatchURL   string         `json:"matchUrl"`
	ReturnData MockReturnData `json:"returnData"`
}

// MockReturnData is the canned result of a mock step. Body is base64; JSON
// is used verbatim and wins when both are set.
type MockReturnData struct {
	StatusCode int             `json:"statusCode"`
	Body       string          `json:"body"`
	JSON       json.RawMessage `json:"json"`
	Text       string          `json:"text"`
}

// LoadScenario reads a single-step scenario file.
func LoadScenario(path string) (*Scenario, error) {
	flow, err := LoadFlow(path)
	if err != nil {
		return nil, err
	}
	if len(flow) != 1 {
		return nil, fmt.Errorf("testkit: %q holds %d steps, want 1", path, len(flow))
	}
	return flow[0], nil
}

// LoadFlow reads a scenario file holding either one step or an array of
// steps. Every step is validated.
func LoadFlow(path string) ([]*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var steps []*Scenario
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &steps)
	} else {
		var s Scenario
		err = json.Unmarshal(data, &s)
		steps = []*Scenario{&s}
	}
	if err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("testkit: %q has no steps", abs)
	}

	dir := filepath.Dir(abs)
	for i, s := range steps {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: %q step %d: %w", abs, i, err)
		}
		s.dir = dir
	}
	return steps, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.URL == "" {
		return fmt.Errorf("url is required")
	}
	if s.ExpectedCode == 0 {
		return fmt.Errorf("expectedCode is required")
	}
	if s.RequestFileName != "" && len(s.Body) > 0 {
		return fmt.Errorf("body and requestFileName are mutually exclusive")
	}
	if s.Method == "" {
		s.Method = "GET"
	}
	s.Method = strings.ToUpper(s.Method)
	for i, step := range s.Mocks {
		if step.Method == "" {
			return fmt.Errorf("mocks[%d].method is required", i)
		}
	}
	return nil
}

// RequestBody returns the raw request body, or nil when the step sends none.
func (s *Scenario) RequestBody() ([]byte, error) {
	if len(s.Body) > 0 {
		return s.Body, nil
	}
	if s.RequestFileName == "" {
		return nil, nil
	}
	return os.ReadFile(s.resolve(s.RequestFileName))
}

// ExpectedBody returns the expected response body, or nil when the step
// does not compare full bodies.
func (s *Scenario) ExpectedBody() ([]byte, error) {
	if s.ResponseFileName == "" {
		return nil, nil
	}
	return os.ReadFile(s.resolve(s.ResponseFileName))
}

func (s *Scenario) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// Payload decodes the canned result. JSON wins over Text, Text over the
// base64 Body.
func (rd MockReturnData) Payload() ([]byte, error) {
	switch {
	case len(rd.JSON) > 0:
		return rd.JSON, nil
	case rd.Text != "":
		return []byte(rd.Text), nil
	case rd.Body == "":
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(rd.Body)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(rd.Body)
		if err != nil {
			return nil, fmt.Errorf("testkit: base64 decode mock body: %w", err)
		}
	}
	return decoded, nil
}

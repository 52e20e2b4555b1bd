package testkit

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode checks the response code, printing the body on mismatch.
func AssertStatusCode(t *testing.T, s *Scenario, got int, body []byte) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch\nbody: %s", s.Name, body)
}

// AssertJSONBody compares two JSON documents after decoding, so key order
// and whitespace never matter.
func AssertJSONBody(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}

	var expVal, actVal any
	require.NoError(t, json.Unmarshal(expected, &expVal),
		"[%s] expected response file is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &actVal),
		"[%s] actual response is not valid JSON\nbody: %s", s.Name, actual) {
		return
	}
	assert.Equal(t, expVal, actVal, "[%s] response body mismatch", s.Name)
}

// AssertExpect checks every path listed under "expect" against doc.
// Numbers compare by value, strings after variable expansion.
func AssertExpect(t *testing.T, s *Scenario, vars Vars, doc any) {
	t.Helper()

	paths := make([]string, 0, len(s.Expect))
	for p := range s.Expect {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		got, ok := Lookup(doc, p)
		if !assert.True(t, ok, "[%s] %q missing from response", s.Name, p) {
			continue
		}
		assert.Equal(t, vars.expandValue(s.Expect[p]), got, "[%s] %q", s.Name, p)
	}
}

// AssertMocksAllCalled fails the step when an isMock=true step went unused.
func AssertMocksAllCalled(t *testing.T, s *Scenario, mt *MockTransport) {
	t.Helper()

	for _, err := range mt.AssertAllCalled() {
		assert.NoError(t, err, "[%s]", s.Name)
	}
	for _, err := range AssertFuncMocksCalled(s) {
		assert.NoError(t, err, "[%s]", s.Name)
	}
}

package testkit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MethodGenerate is the mock method answered by the registered TextMock.
const MethodGenerate = "generate"

// FuncMocker stands in for a non-HTTP dependency during a scenario.
type FuncMocker interface {
	// Intercept receives the decoded returnData of each active step.
	Intercept(payload []byte) error
	Reset()
	// WasCalled reports how often the dependency was used since Reset.
	WasCalled() int
	Mock() *mock.Mock
}

// ErrNothingQueued is returned by TextMock when no answer is left.
var ErrNothingQueued = errors.New("testkit: no generate answer queued")

// TextMock replaces the text model. Every "generate" step queues one answer
// and Generate hands them out in order.
type TextMock struct {
	m     mock.Mock
	mu    sync.Mutex
	queue []string
	calls int
}

func NewTextMock() *TextMock {
	tm := &TextMock{}
	tm.m.On("Generate", mock.AnythingOfType("string")).Return()
	return tm
}

func (tm *TextMock) Intercept(payload []byte) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.queue = append(tm.queue, string(payload))
	return nil
}

// Generate pops the next queued answer.
func (tm *TextMock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tm.mu.Lock()
	tm.calls++
	var (
		answer string
		ok     = len(tm.queue) > 0
	)
	if ok {
		answer, tm.queue = tm.queue[0], tm.queue[1:]
	}
	tm.mu.Unlock()

	tm.m.MethodCalled("Generate", prompt)
	if !ok {
		return "", ErrNothingQueued
	}
	return answer, nil
}

// Prompts returns the prompts received since the last Reset.
func (tm *TextMock) Prompts() []string {
	var out []string
	for _, c := range tm.m.Calls {
		out = append(out, c.Arguments.String(0))
	}
	return out
}

func (tm *TextMock) Reset() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.queue = nil
	tm.calls = 0
	tm.m.Calls = nil
}

func (tm *TextMock) WasCalled() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.calls
}

func (tm *TextMock) Mock() *mock.Mock { return &tm.m }

var (
	mockerMu       sync.RWMutex
	mockerRegistry = map[string]FuncMocker{
		MethodGenerate: NewTextMock(),
	}
)

// RegisterMocker adds or replaces the mocker for method.
func RegisterMocker(method string, m FuncMocker) {
	mockerMu.Lock()
	defer mockerMu.Unlock()
	mockerRegistry[method] = m
}

// GetMocker returns the mocker registered for method, or nil.
func GetMocker(method string) FuncMocker {
	mockerMu.RLock()
	defer mockerMu.RUnlock()
	return mockerRegistry[method]
}

// Text returns the registered "generate" mocker, ready to be passed where a
// text generator is expected.
func Text() *TextMock {
	tm, _ := GetMocker(MethodGenerate).(*TextMock)
	return tm
}

func resetAllMockers() {
	mockerMu.RLock()
	defer mockerMu.RUnlock()
	for _, m := range mockerRegistry {
		m.Reset()
	}
}

// ActivateFuncMocks hands every active non-HTTP step its payload.
func ActivateFuncMocks(s *Scenario) error {
	for i, step := range s.Mocks {
		if step.Method == MethodHTTP || !step.IsMock {
			continue
		}
		m := GetMocker(step.Method)
		if m == nil {
			if s.IsMockRequired {
				return fmt.Errorf("testkit: no mocker registered for %q (step %d)", step.Method, i)
			}
			continue
		}
		payload, err := step.ReturnData.Payload()
		if err != nil {
			return fmt.Errorf("testkit: mocks[%d]: %w", i, err)
		}
		if err := m.Intercept(payload); err != nil {
			return fmt.Errorf("testkit: mocks[%d] intercept: %w", i, err)
		}
	}
	return nil
}

// AssertFuncMocksCalled returns one error per mocked dependency that the
// scenario never used.
func AssertFuncMocksCalled(s *Scenario) []error {
	var errs []error
	seen := map[string]bool{}
	for _, step := range s.Mocks {
		if step.Method == MethodHTTP || !step.IsMock || seen[step.Method] {
			continue
		}
		seen[step.Method] = true
		m := GetMocker(step.Method)
		if m != nil && m.WasCalled() == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock %q was never called", step.Method))
		}
	}
	return errs
}

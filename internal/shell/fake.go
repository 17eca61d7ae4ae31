package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is a scripted Runner for tests. Responses are keyed by the full
// command line ("lpstat -v"); unknown commands fail with ErrNotInstalled.
type Fake struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	calls     []FakeCall
}

// FakeResponse is the canned result for one command line
type FakeResponse struct {
	Output string
	Err    error
}

// FakeCall records one invocation
type FakeCall struct {
	Line  string
	Stdin []byte
}

// NewFake creates an empty scripted runner
func NewFake() *Fake {
	return &Fake{responses: make(map[string]FakeResponse)}
}

// On scripts the output for a command line
func (f *Fake) On(line, output string) *Fake {
	return f.OnResult(line, FakeResponse{Output: output})
}

// OnError scripts a failure for a command line
func (f *Fake) OnError(line string, err error) *Fake {
	return f.OnResult(line, FakeResponse{Err: err})
}

// OnResult scripts a full response
func (f *Fake) OnResult(line string, resp FakeResponse) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = resp
	return f
}

// Run implements Runner
func (f *Fake) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.RunInput(ctx, nil, name, args...)
}

// RunInput implements Runner
func (f *Fake) RunInput(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FakeCall{Line: line, Stdin: stdin})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, ok := f.responses[line]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}
	return []byte(resp.Output), resp.Err
}

// Calls returns every recorded command line
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}

// Called reports how many times a command line ran
func (f *Fake) Called(line string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Line == line {
			n++
		}
	}
	return n
}

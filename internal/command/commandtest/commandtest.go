// Package commandtest provides a scripted command.Runner for tests.
package commandtest

import (
	"context"
	"strings"
	"sync"
)

// Call is one recorded invocation
type Call struct {
	Name string
	Args []string
}

// String renders the call as a shell-like command line
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is what the recorder returns for a matching command line
type Response struct {
	Output []byte
	Err    error
}

// Recorder records every command and answers with canned responses keyed
// by command-line prefix. Unmatched commands succeed with empty output.
type Recorder struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]Response
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{responses: make(map[string]Response)}
}

// On registers a response for commands whose rendered line starts with prefix
func (r *Recorder) On(prefix string, resp Response) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[prefix] = resp
	return r
}

// Calls returns the recorded invocations in order
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns the recorded invocations rendered as command lines
func (r *Recorder) Lines() []string {
	var lines []string
	for _, c := range r.Calls() {
		lines = append(lines, c.String())
	}
	return lines
}

// Run implements command.Runner
func (r *Recorder) Run(ctx context.Context, name string, args ...string) error {
	return r.record(name, args).Err
}

// Output implements command.Runner
func (r *Recorder) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	resp := r.record(name, args)
	return resp.Output, resp.Err
}

func (r *Recorder) record(name string, args []string) Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	call := Call{Name: name, Args: append([]string(nil), args...)}
	r.calls = append(r.calls, call)

	line := call.String()
	best := ""
	for prefix := range r.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Response{}
	}
	return r.responses[best]
}

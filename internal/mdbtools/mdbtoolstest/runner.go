// Package mdbtoolstest provides an in-memory mdbtools.Runner for tests.
package mdbtoolstest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/koustreak/mdbread/internal/mdbtools"
)

// Response is what the fake prints for one command line.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// Runner answers invocations from a table of canned responses and records
// every call. Command lines with no registered response exit with status 1.
type Runner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
	hook      func(line string)
}

// NewRunner returns an empty fake.
func NewRunner() *Runner {
	return &Runner{responses: make(map[string]Response)}
}

// On registers the response for the exact command line name + args.
func (r *Runner) On(resp Response, name string, args ...string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[Line(name, args...)] = resp
	return r
}

// OnCall installs a hook run at the start of every invocation, outside the
// runner's lock. Tests use it to block or observe concurrent callers.
func (r *Runner) OnCall(hook func(line string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = hook
}

// Run implements mdbtools.Runner.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*mdbtools.Result, error) {
	line := Line(name, args...)

	r.mu.Lock()
	r.calls = append(r.calls, line)
	hook := r.hook
	resp, ok := r.responses[line]
	r.mu.Unlock()

	if hook != nil {
		hook(line)
	}
	if err := ctx.Err(); err != nil {
		return &mdbtools.Result{ExitCode: -1}, err
	}
	if !ok {
		return &mdbtools.Result{Stderr: []byte("unexpected command: " + line), ExitCode: 1},
			errors.New("exit status 1")
	}

	res := &mdbtools.Result{
		Stdout:   []byte(resp.Stdout),
		Stderr:   []byte(resp.Stderr),
		ExitCode: resp.ExitCode,
	}
	return res, resp.Err
}

// Calls returns the number of invocations of the exact command line.
func (r *Runner) Calls(name string, args ...string) int {
	want := Line(name, args...)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == want {
			n++
		}
	}
	return n
}

// Total returns the number of invocations of any command.
func (r *Runner) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Line joins a command line the way the fake keys its responses.
func Line(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// Package health runs one-shot dependency checks before a job starts.
//
// Every check gets its own timeout and all checks run concurrently. Verify
// waits for all of them, so a report lists every failing dependency rather
// than the first one.
package health

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc is a health check function. It should return nil if the checked
// component is healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// Check is a named CheckFunc bounded by Timeout. A zero Timeout means no
// limit beyond the parent context.
type Check struct {
	Name    string
	Timeout time.Duration
	Func    CheckFunc
}

// NewCheck is shorthand for a Check literal.
func NewCheck(name string, timeout time.Duration, fn CheckFunc) Check {
	return Check{Name: name, Timeout: timeout, Func: fn}
}

// run executes the check once under its timeout.
func (c Check) run(ctx context.Context) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.Func(ctx)
}

// Error lists the checks that failed, keyed by name.
type Error struct {
	Failures map[string]error
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Failures))
	for name := range e.Failures {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("unhealthy:")
	for i, name := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, " %s: %v", name, e.Failures[name])
	}
	return b.String()
}

// Unwrap returns the individual check errors.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		errs = append(errs, err)
	}
	return errs
}

// Verify runs checks concurrently and returns *Error naming every failed
// check, or nil when all pass.
func Verify(ctx context.Context, checks ...Check) error {
	var (
		mu       sync.Mutex
		failures = make(map[string]error)
		g        errgroup.Group
	)
	for _, c := range checks {
		g.Go(func() error {
			if err := c.run(ctx); err != nil {
				mu.Lock()
				failures[c.Name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) > 0 {
		return &Error{Failures: failures}
	}
	return nil
}

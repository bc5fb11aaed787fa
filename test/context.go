// Package test provides helpers for unit tests.
package test

import (
	"context"
	"testing"
	"time"

	"github.com/ridge/shale/tlog"
)

// Context returns a new testing context with a logger injected, the same way
// run.Tool injects one for production code
func Context(t *testing.T) context.Context {
	return tlog.WithLogger(context.Background(), tlog.NewForTesting(t))
}

// ContextWithTimeout is a version of Context with a timeout.
//
// If the timeout expires, the test context is closed with
// context.DeadlineExceeded.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(Context(t), timeout)
	t.Cleanup(cancel)
	return ctx
}

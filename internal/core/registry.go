package core

import "sync"

// TestReporter is the minimal interface deepstub needs from test frameworks.
// testing.T and testing.B implement it.
type TestReporter interface {
	Helper()
	Errorf(format string, args ...any)
}

// Default returns the process-wide ambient context. It behaves like a single global registry:
// samples leak into the next test unless Reset is called, and tests that use it must not run in
// parallel.
func Default() *Context {
	defaultOnce.Do(func() {
		defaultContext = NewContext()
	})

	return defaultContext
}

// For returns the Context of the given test, creating one if needed. Multiple calls with the same
// TestReporter return the same Context.
//
// If the TestReporter supports Cleanup (like *testing.T), the Context is verified when the test
// completes, every violation is reported through Errorf, and the Context is reset and dropped from
// the registry.
func For(t TestReporter, opts ...Option) *Context {
	registryMu.Lock()
	defer registryMu.Unlock()

	if ctx, ok := registry[t]; ok {
		return ctx
	}

	ctx := NewContext(opts...)
	registry[t] = ctx

	if cr, ok := t.(cleanupRegistrar); ok {
		cr.Cleanup(func() {
			t.Helper()

			if err := ctx.Check(); err != nil {
				t.Errorf("%v", err)
			}

			ctx.Reset()

			registryMu.Lock()
			delete(registry, t)
			registryMu.Unlock()
		})
	}

	return ctx
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Package-level registry is intentional for test coordination
	registry = make(map[TestReporter]*Context)
	//nolint:gochecknoglobals // Mutex for registry
	registryMu sync.Mutex
	//nolint:gochecknoglobals // Ambient context for sequential drop-in use
	defaultContext *Context
	//nolint:gochecknoglobals // Guards defaultContext
	defaultOnce sync.Once
)

// cleanupRegistrar is the interface needed for registering cleanup functions.
// This is satisfied by *testing.T and *testing.B.
type cleanupRegistrar interface {
	Cleanup(cleanupFunc func())
}

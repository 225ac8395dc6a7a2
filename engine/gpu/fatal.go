package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/retort/common"
	"github.com/pkg/errors"
)

var (
	fatalMu      sync.Mutex
	fatalHandler = defaultFatalHandler
)

// defaultFatalHandler logs the error with its stack and terminates the process.
func defaultFatalHandler(err error) {
	common.Logger().Error("[GPU] unrecoverable device error", "error", err.Error())
	fmt.Fprintf(os.Stderr, "%+v\n", err)
	os.Exit(2)
}

// SetFatalHandler replaces the function invoked by Check and Must on an unrecoverable
// device status. The handler is not expected to return; the default logs and exits the
// process with status 2. Passing nil restores the default.
//
// Parameters:
//   - fn: the new handler, or nil for the default
//
// Returns:
//   - func(error): the handler that was installed before the call
func SetFatalHandler(fn func(error)) func(error) {
	fatalMu.Lock()
	defer fatalMu.Unlock()

	prev := fatalHandler
	if fn == nil {
		fn = defaultFatalHandler
	}
	fatalHandler = fn
	return prev
}

// Check passes a non-nil err to the fatal handler, annotated with the caller's file and line.
//
// Parameters:
//   - err: the status of a device call
func Check(err error) {
	if err != nil {
		fail(err, 2)
	}
}

// Must unwraps a device call's value, passing a non-nil err to the fatal handler.
//
// Parameters:
//   - v: the value returned by the call
//   - err: the status returned by the call
//
// Returns:
//   - T: v
func Must[T any](v T, err error) T {
	if err != nil {
		fail(err, 2)
	}
	return v
}

// IsTransient reports whether err carries a Result that a swapchain rebuild recovers from.
//
// Parameters:
//   - err: any error, possibly wrapping a Result
//
// Returns:
//   - bool: true for Suboptimal and ErrorOutOfDate
func IsTransient(err error) bool {
	var r Result
	if errors.As(err, &r) {
		return r.Transient()
	}
	return false
}

func fail(err error, skip int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		file, line = "???", 0
	}
	wrapped := errors.Wrapf(errors.WithStack(err), "%s:%d", filepath.Base(file), line)

	fatalMu.Lock()
	handler := fatalHandler
	fatalMu.Unlock()

	handler(wrapped)
}

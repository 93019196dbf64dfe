package script

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrScript is the base error type for script execution errors.
	ErrScript = errors.New("script error")

	// ErrCompile indicates the script source failed to parse.
	ErrCompile = fmt.Errorf("%w: compile failed", ErrScript)

	// ErrTimeout indicates an execution exceeded its time budget, whether
	// detected by the cooperative guard or the backstop timer.
	ErrTimeout = fmt.Errorf("%w: timeout", ErrScript)

	// ErrEmptySource indicates an engine was created with no source code.
	ErrEmptySource = fmt.Errorf("%w: empty source", ErrScript)
)

// timeoutSentinel travels out of the guard-check builtin when the
// cooperative guard trips.
var timeoutSentinel = errors.New("TIMEOUT")

// timeoutMessage is the user-facing timeout text. It is deliberately
// distinct from arbitrary script error messages.
func timeoutMessage(budget time.Duration) string {
	return fmt.Sprintf("script exceeded %dms, check for infinite loops", budget.Milliseconds())
}

// maxErrorDisplayLen bounds script error messages surfaced to the UI.
const maxErrorDisplayLen = 500

// truncateError trims an error message for display.
func truncateError(msg string) string {
	if len(msg) <= maxErrorDisplayLen {
		return msg
	}
	return msg[:maxErrorDisplayLen] + "..."
}

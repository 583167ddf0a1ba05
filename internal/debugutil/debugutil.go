// Package debugutil dumps machine state to stderr when a typed panic
// unwinds the run loop, so a crash report shows more than a bare Go
// stack trace.
package debugutil

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
)

// Dump writes a spew-formatted rendering of state to stderr under label.
func Dump(label string, state interface{}) {
	fmt.Fprintf(os.Stderr, "--- %s ---\n%s", label, spew.Sdump(state))
}

// RecoverAndDump recovers a panic in progress, dumps the result of
// snapshot under label, then re-panics with the original value so the
// caller's own top-level handling still runs.
func RecoverAndDump(label string, snapshot func() interface{}) {
	if r := recover(); r != nil {
		Dump(label, snapshot())
		panic(r)
	}
}

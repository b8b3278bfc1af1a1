package errutil

import (
	"fmt"
	"os"
)

var debug = os.Getenv("DEBUG") == "1"

func First(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func FatalIf(err error) {
	if err == nil {
		return
	}
	panic(fmt.Sprintf("FATAL: %v", err))
}

// Invariant panics when cond is false. It guards conditions that can only
// fail through a programming error, never through bad input.
func Invariant(cond bool, format string, msg ...any) {
	if !cond {
		panic(fmt.Sprintf("invariant violated: "+format, msg...))
	}
}

func Bug(format string, msg ...any) {
	if debug {
		panic(fmt.Sprintf(format, msg...))
	}
}

// BugOn panics when cond holds and DEBUG=1; a no-op otherwise.
func BugOn(cond bool, format string, msg ...any) {
	if debug && cond {
		Bug(format, msg...)
	}
}

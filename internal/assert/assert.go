package assert

import "fmt"

// True panics with the given message if the condition does not hold.
// Used for invariants that indicate programmer error, never for
// recoverable failures.
func True(condition bool, format string, args ...any) {
	if !condition {
		panic(fmt.Sprintf(format, args...))
	}
}

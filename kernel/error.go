// Package kernel contains the types shared by every subsystem of the rvos
// kernel core.
package kernel

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure so that callers can
// compare them by identity and no allocation is needed to report them.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// String returns the error formatted as "[module] message".
func (e *Error) String() string {
	return "[" + e.Module + "] " + e.Message
}

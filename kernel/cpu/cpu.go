// Package cpu exposes the processor control primitives used by the kernel
// core.
package cpu

// Halt stops the current hart. Without interrupts being delivered the hart
// never resumes, so Halt never returns.
//
//go:noinline
func Halt() {
	for {
	}
}

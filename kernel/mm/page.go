// Package mm defines the physical frame and virtual page types shared by the
// memory management subsystems, along with the frame allocator contract.
package mm

import (
	"math"

	"rvos/kernel"
)

// Frame describes a physical memory page index (physical page number).
type Frame uintptr

const (
	// InvalidFrame is returned by page allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns a pointer to the physical memory address pointed to by this Frame.
func (f Frame) Address() uintptr {
	return uintptr(f) << PageShift
}

// FrameFromAddress returns the Frame that contains physAddr. Unaligned
// addresses are rounded down.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(physAddr >> PageShift)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns a pointer to the virtual memory address pointed to by this Page.
func (p Page) Address() uintptr {
	return uintptr(p) << PageShift
}

// PageFromAddress returns the Page that contains virtAddr. Unaligned
// addresses are rounded down.
func PageFromAddress(virtAddr uintptr) Page {
	return Page(virtAddr >> PageShift)
}

// FrameAllocator is implemented by physical frame allocators. Allocators
// manage a single contiguous range of frames [l, r).
//
// Running out of frames is reported through an error value and is never
// fatal; callers may reclaim memory and retry.
type FrameAllocator interface {
	// Init configures the range of frames managed by the allocator. It
	// must be called exactly once before any allocation.
	Init(l, r Frame) *kernel.Error

	// AllocFrame reserves a single free frame.
	AllocFrame() (Frame, *kernel.Error)

	// FreeFrame releases a frame obtained via AllocFrame.
	FreeFrame(Frame) *kernel.Error

	// AllocFrames reserves count contiguous free frames and returns the
	// first one.
	AllocFrames(count uint32) (Frame, *kernel.Error)

	// FreeFrames releases count contiguous frames starting at start.
	FreeFrames(start Frame, count uint32) *kernel.Error
}

var (
	// frameAllocator is the allocator registered using SetFrameAllocator.
	frameAllocator FrameAllocator

	errNoFrameAllocator = &kernel.Error{Module: "mm", Message: "no frame allocator registered"}
)

// SetFrameAllocator registers the allocator used by the rest of the kernel
// when new physical frames are needed.
func SetFrameAllocator(alloc FrameAllocator) { frameAllocator = alloc }

// AllocFrame allocates a new physical frame using the currently active
// physical frame allocator.
func AllocFrame() (Frame, *kernel.Error) {
	if frameAllocator == nil {
		return InvalidFrame, errNoFrameAllocator
	}
	return frameAllocator.AllocFrame()
}

// FreeFrame returns a frame to the currently active physical frame
// allocator.
func FreeFrame(f Frame) *kernel.Error {
	if frameAllocator == nil {
		return errNoFrameAllocator
	}
	return frameAllocator.FreeFrame(f)
}

// registeredAllocator forwards every call to the allocator registered at the
// time of the call.
type registeredAllocator struct{}

// RegisteredFrameAllocator returns a FrameAllocator backed by whichever
// allocator is currently registered via SetFrameAllocator. Calls fail while
// no allocator is registered.
func RegisteredFrameAllocator() FrameAllocator { return registeredAllocator{} }

func (registeredAllocator) Init(l, r Frame) *kernel.Error {
	if frameAllocator == nil {
		return errNoFrameAllocator
	}
	return frameAllocator.Init(l, r)
}

func (registeredAllocator) AllocFrame() (Frame, *kernel.Error) { return AllocFrame() }

func (registeredAllocator) FreeFrame(f Frame) *kernel.Error { return FreeFrame(f) }

func (registeredAllocator) AllocFrames(count uint32) (Frame, *kernel.Error) {
	if frameAllocator == nil {
		return InvalidFrame, errNoFrameAllocator
	}
	return frameAllocator.AllocFrames(count)
}

func (registeredAllocator) FreeFrames(start Frame, count uint32) *kernel.Error {
	if frameAllocator == nil {
		return errNoFrameAllocator
	}
	return frameAllocator.FreeFrames(start, count)
}

// Package pmm contains code that manages physical memory frame allocations.
package pmm

import (
	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
	"rvos/kernel/sync"
)

var (
	// ErrOutOfMemory is returned when no suitable free frames exist. It is
	// recoverable: callers may reclaim frames and retry.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}

	// ErrInvalidRange is returned by Init when the frame range is empty.
	ErrInvalidRange = &kernel.Error{Module: "pmm", Message: "invalid frame range"}

	// ErrAlreadyInitialized is returned when Init is called twice.
	ErrAlreadyInitialized = &kernel.Error{Module: "pmm", Message: "allocator already initialized"}

	// ErrNotInitialized is raised when an allocator is used before Init.
	ErrNotInitialized = &kernel.Error{Module: "pmm", Message: "allocator used before Init"}

	// ErrFrameNotAllocated is returned when freeing frames that are outside
	// the managed range or not currently allocated.
	ErrFrameNotAllocated = &kernel.Error{Module: "pmm", Message: "frame is not allocated"}

	// ErrInvalidCount is returned when requesting zero frames.
	ErrInvalidCount = &kernel.Error{Module: "pmm", Message: "frame count must be greater than zero"}
)

// Strategy selects a frame allocator implementation.
type Strategy uint8

const (
	// SegmentTree selects the SegmentTreeAllocator.
	SegmentTree Strategy = iota

	// FirstFit selects the FirstFitAllocator.
	FirstFit
)

// String implements fmt.Stringer for Strategy.
func (s Strategy) String() string {
	switch s {
	case SegmentTree:
		return "segtree"
	case FirstFit:
		return "firstfit"
	default:
		return "unknown"
	}
}

// New returns an uninitialized allocator for the requested strategy.
func New(strategy Strategy) mm.FrameAllocator {
	if strategy == FirstFit {
		return &FirstFitAllocator{}
	}
	return &SegmentTreeAllocator{}
}

// LockedAllocator serialises access to a frame allocator with a spinlock.
type LockedAllocator struct {
	lock  sync.Spinlock
	alloc mm.FrameAllocator
}

// NewLockedAllocator wraps alloc.
func NewLockedAllocator(alloc mm.FrameAllocator) *LockedAllocator {
	return &LockedAllocator{alloc: alloc}
}

// Init implements mm.FrameAllocator.
func (l *LockedAllocator) Init(start, end mm.Frame) *kernel.Error {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.alloc.Init(start, end)
}

// AllocFrame implements mm.FrameAllocator.
func (l *LockedAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.alloc.AllocFrame()
}

// FreeFrame implements mm.FrameAllocator.
func (l *LockedAllocator) FreeFrame(frame mm.Frame) *kernel.Error {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.alloc.FreeFrame(frame)
}

// AllocFrames implements mm.FrameAllocator.
func (l *LockedAllocator) AllocFrames(count uint32) (mm.Frame, *kernel.Error) {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.alloc.AllocFrames(count)
}

// FreeFrames implements mm.FrameAllocator.
func (l *LockedAllocator) FreeFrames(start mm.Frame, count uint32) *kernel.Error {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.alloc.FreeFrames(start, count)
}

// Init sets up the kernel physical memory allocation sub-system. It creates a
// locked allocator for [l, r) using the requested strategy and registers it
// with mm.SetFrameAllocator.
func Init(strategy Strategy, l, r mm.Frame) (*LockedAllocator, *kernel.Error) {
	alloc := NewLockedAllocator(New(strategy))
	if err := alloc.Init(l, r); err != nil {
		return nil, err
	}

	kfmt.Printf("[pmm] %s allocator managing frames [0x%x - 0x%x), %d free\n",
		strategy.String(), uintptr(l), uintptr(r), uint64(r-l))
	mm.SetFrameAllocator(alloc)
	return alloc, nil
}

// maxFrameCount is the largest range an allocator can manage. The segment
// tree rounds its leaf count up to a power of two held in a uint32.
const maxFrameCount = 1 << 31

// checkRange validates l and r for an Init call.
func checkRange(initialized bool, l, r mm.Frame) *kernel.Error {
	switch {
	case initialized:
		return ErrAlreadyInitialized
	case l >= r || !r.Valid():
		return ErrInvalidRange
	case uint64(r-l) > maxFrameCount:
		return ErrInvalidRange
	}
	return nil
}

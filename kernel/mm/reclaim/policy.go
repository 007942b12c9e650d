// Package reclaim selects resident pages to evict when physical memory runs
// out and implements the allocate, evict and retry protocol used by the
// fault-handling path.
package reclaim

import "rvos/kernel/mm/vmm"

// Resident identifies a virtual page that is backed by a physical frame and
// may be reclaimed.
type Resident struct {
	VirtAddr uintptr
	Table    vmm.PageTable
}

// Policy is implemented by page replacement algorithms. A policy only ever
// returns records that were handed to it via PushFrame.
type Policy interface {
	// PushFrame registers a newly resident mapping. Calling it twice for
	// the same mapping tracks it twice.
	PushFrame(virtAddr uintptr, table vmm.PageTable)

	// ChooseVictim removes and returns a tracked mapping. It returns false
	// when nothing is tracked.
	ChooseVictim() (Resident, bool)

	// Tick is invoked on every scheduler tick.
	Tick()
}

// Kind selects a Policy implementation.
type Kind uint8

const (
	// KindFIFO selects the FIFO policy.
	KindFIFO Kind = iota

	// KindClock selects the Clock policy.
	KindClock
)

// String implements fmt.Stringer for Kind.
func (k Kind) String() string {
	switch k {
	case KindFIFO:
		return "fifo"
	case KindClock:
		return "clock"
	default:
		return "unknown"
	}
}

// NewPolicy returns an empty policy of the requested kind.
func NewPolicy(kind Kind) Policy {
	if kind == KindClock {
		return &Clock{}
	}
	return &FIFO{}
}

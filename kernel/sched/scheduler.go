// Package sched implements the thread scheduling algorithms of the kernel.
//
// Schedulers only track thread ids; thread objects are owned by the
// thread-management layer which serialises all calls into a Scheduler.
// Per-thread scheduling state is stored in index arrays keyed by tid+1 and
// linked into intrusive lists whose head and tail are anchored at slot 0.
package sched

import "rvos/kernel"

// Tid identifies a thread. Valid ids are non-negative.
type Tid int

// InvalidTid is returned when no thread is available.
const InvalidTid = Tid(-1)

var (
	// ErrInvalidTid is raised when a negative tid is passed to a scheduler.
	ErrInvalidTid = &kernel.Error{Module: "sched", Message: "invalid thread id"}

	// ErrAlreadyQueued is raised when pushing a thread that is already
	// waiting in the ready queue.
	ErrAlreadyQueued = &kernel.Error{Module: "sched", Message: "thread is already in the ready queue"}

	// ErrUnknownThread is returned when operating on a thread that was
	// never pushed to the scheduler.
	ErrUnknownThread = &kernel.Error{Module: "sched", Message: "thread is not known to the scheduler"}

	// ErrInvalidPriority is returned when setting a zero priority.
	ErrInvalidPriority = &kernel.Error{Module: "sched", Message: "priority must be greater than zero"}
)

// Scheduler is implemented by the scheduling algorithms.
type Scheduler interface {
	// Push marks tid as runnable. The thread must not already be in the
	// ready queue.
	Push(tid Tid)

	// Pop removes the next thread to run from the ready queue and records
	// it as the current thread. It returns false if no thread is runnable.
	Pop() (Tid, bool)

	// Tick is called on every timer tick while the current thread runs. It
	// returns true when the current thread must be preempted.
	Tick() bool

	// Exit removes tid from the scheduler permanently.
	Exit(tid Tid)
}

// Prioritizer is implemented by schedulers that support per-thread
// priorities.
type Prioritizer interface {
	// SetPriority changes the share of CPU time tid receives from now on.
	SetPriority(tid Tid, priority uint32) *kernel.Error
}

// slotFor maps a tid to its index in a scheduler table.
func slotFor(tid Tid) int {
	if tid < 0 {
		panic(ErrInvalidTid)
	}
	return int(tid) + 1
}

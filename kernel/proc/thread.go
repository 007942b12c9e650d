// Package proc runs kernel threads on a simulated single-core processor.
//
// Every thread is backed by a goroutine, but only one of them executes at a
// time: control is handed between the idle loop and the threads over
// channels, which stands in for the register context switch performed by
// the trap layer on real hardware. Scheduling decisions are delegated to a
// sched.Scheduler.
package proc

import "rvos/kernel/sched"

// Status describes the lifecycle state of a thread.
type Status uint8

const (
	// StatusReady threads wait in the scheduler's ready queue.
	StatusReady Status = iota

	// StatusRunning is the status of the thread that owns the CPU.
	StatusRunning

	// StatusSleeping threads are parked until woken up.
	StatusSleeping

	// StatusExited threads have finished and are waiting to be reaped.
	StatusExited
)

// String implements fmt.Stringer for Status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusSleeping:
		return "sleeping"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Thread is a kernel thread.
type Thread struct {
	Tid      sched.Tid
	Status   Status
	ExitCode int

	entry   func()
	started bool

	// resume is signalled by the idle loop to give the CPU to the thread.
	resume chan struct{}
}

func newThread(tid sched.Tid, entry func()) *Thread {
	return &Thread{
		Tid:    tid,
		Status: StatusReady,
		entry:  entry,
		resume: make(chan struct{}),
	}
}

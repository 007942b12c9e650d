package sync

import (
	"rvos/kernel"
	"rvos/kernel/sched"
)

// ErrNotInThread is the panic value raised when Wait is called while no
// thread is running.
var ErrNotInThread = &kernel.Error{Module: "sync", Message: "wait called outside of a thread"}

// ThreadParker is implemented by the thread-management layer. It exposes the
// two operations a Condvar is built on plus the identity of the running
// thread.
type ThreadParker interface {
	// CurrentTid returns the id of the running thread.
	CurrentTid() sched.Tid

	// Park suspends the running thread and hands the CPU back to the
	// scheduler. It returns once the thread has been woken up and
	// rescheduled.
	Park()

	// WakeUp makes a parked thread runnable again.
	WakeUp(tid sched.Tid)
}

// Condvar is a condition variable with FIFO wake-up order. It is not coupled
// to a mutex: a woken thread must re-check the condition it waited for, as
// another thread may have consumed it before the waiter got to run.
type Condvar struct {
	lock      Spinlock
	waitQueue []sched.Tid
	threads   ThreadParker
}

// NewCondvar returns a condition variable whose waiters are parked and woken
// through threads.
func NewCondvar(threads ThreadParker) *Condvar {
	return &Condvar{threads: threads}
}

// Wait enqueues the running thread and parks it until a matching Notify. It
// panics with ErrNotInThread if no thread is running.
func (c *Condvar) Wait() {
	tid := c.threads.CurrentTid()
	if tid == sched.InvalidTid {
		panic(ErrNotInThread)
	}

	c.lock.Acquire()
	c.waitQueue = append(c.waitQueue, tid)
	c.lock.Release()

	c.threads.Park()
}

// Notify wakes up the longest-waiting thread. It returns false if nobody was
// waiting, in which case the call has no effect.
func (c *Condvar) Notify() bool {
	c.lock.Acquire()
	if len(c.waitQueue) == 0 {
		c.lock.Release()
		return false
	}
	tid := c.waitQueue[0]
	c.waitQueue = c.waitQueue[1:]
	c.lock.Release()

	c.threads.WakeUp(tid)
	return true
}

// Waiters returns the number of threads blocked on c.
func (c *Condvar) Waiters() int {
	c.lock.Acquire()
	defer c.lock.Release()
	return len(c.waitQueue)
}

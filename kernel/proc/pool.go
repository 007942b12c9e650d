package proc

import (
	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/sched"
)

var (
	// ErrPoolFull is returned when adding a thread to a pool that has no
	// free slots left.
	ErrPoolFull = &kernel.Error{Module: "proc", Message: "thread pool is full"}

	// ErrNoPriorities is returned by SetPriority when the scheduler does
	// not support per-thread priorities.
	ErrNoPriorities = &kernel.Error{Module: "proc", Message: "scheduler does not support priorities"}
)

// ThreadPool owns the thread table and the scheduler that orders the
// runnable threads. A thread's id is its index in the table; ids of exited
// threads are reused. ThreadPool is not safe for concurrent use.
type ThreadPool struct {
	threads   []*Thread
	live      int
	scheduler sched.Scheduler
}

// NewThreadPool returns an empty pool with room for maxThreads threads.
func NewThreadPool(scheduler sched.Scheduler, maxThreads int) *ThreadPool {
	return &ThreadPool{
		threads:   make([]*Thread, maxThreads),
		scheduler: scheduler,
	}
}

// Add creates a ready thread running entry in the lowest free slot.
func (tp *ThreadPool) Add(entry func()) (*Thread, *kernel.Error) {
	for index, t := range tp.threads {
		if t != nil {
			continue
		}

		t = newThread(sched.Tid(index), entry)
		tp.threads[index] = t
		tp.live++
		tp.scheduler.Push(t.Tid)
		return t, nil
	}

	return nil, ErrPoolFull
}

// Acquire picks the next thread to run and marks it as running.
func (tp *ThreadPool) Acquire() (*Thread, bool) {
	tid, ok := tp.scheduler.Pop()
	if !ok {
		return nil, false
	}

	t := tp.threads[tid]
	t.Status = StatusRunning
	return t, true
}

// Retrieve takes back a thread that gave up the CPU. Running threads are
// queued again, exited threads release their slot and sleeping threads are
// left alone until woken up.
func (tp *ThreadPool) Retrieve(t *Thread) {
	switch t.Status {
	case StatusRunning:
		t.Status = StatusReady
		tp.scheduler.Push(t.Tid)
	case StatusExited:
		tp.scheduler.Exit(t.Tid)
		tp.threads[t.Tid] = nil
		tp.live--
		kfmt.Debugf("[proc] thread %d exited with code %d\n", int(t.Tid), t.ExitCode)
	}
}

// Tick forwards a timer tick to the scheduler and reports whether the
// running thread must be preempted.
func (tp *ThreadPool) Tick() bool {
	return tp.scheduler.Tick()
}

// WakeUp makes a sleeping thread runnable. Threads in any other state are
// not affected.
func (tp *ThreadPool) WakeUp(tid sched.Tid) bool {
	t := tp.Get(tid)
	if t == nil || t.Status != StatusSleeping {
		return false
	}

	t.Status = StatusReady
	tp.scheduler.Push(tid)
	return true
}

// SetPriority changes the priority of tid if the scheduler supports it.
func (tp *ThreadPool) SetPriority(tid sched.Tid, priority uint32) *kernel.Error {
	prioritizer, ok := tp.scheduler.(sched.Prioritizer)
	if !ok {
		return ErrNoPriorities
	}
	if tp.Get(tid) == nil {
		return sched.ErrUnknownThread
	}
	return prioritizer.SetPriority(tid, priority)
}

// Get returns the thread with the given id or nil if the slot is free.
func (tp *ThreadPool) Get(tid sched.Tid) *Thread {
	if tid < 0 || int(tid) >= len(tp.threads) {
		return nil
	}
	return tp.threads[tid]
}

// Live returns the number of threads that have not been reaped yet.
func (tp *ThreadPool) Live() int {
	return tp.live
}

package proc

import (
	"runtime"

	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/sched"
	"rvos/kernel/sync"
)

var (
	// ErrNotInThread is raised when an operation that acts on the running
	// thread is invoked from the idle loop.
	ErrNotInThread = &kernel.Error{Module: "proc", Message: "no thread is running"}

	// ErrDeadlock is returned by Run when live threads remain but none of
	// them can ever become runnable again.
	ErrDeadlock = &kernel.Error{Module: "proc", Message: "all threads are blocked"}
)

// Processor multiplexes the threads of a pool onto a single CPU. Run is the
// idle loop; the remaining methods are called from within threads, except
// for WakeUp and AddThread which may also be called from the outside.
type Processor struct {
	lock sync.Spinlock

	pool    *ThreadPool
	timer   Timer
	current *Thread
	ticks   uint64

	tickHooks  []func()
	switchHook func(from, to sched.Tid)

	// idle is signalled by a thread to hand the CPU back to Run.
	idle chan struct{}
}

// NewProcessor returns a processor running the threads of pool.
func NewProcessor(pool *ThreadPool) *Processor {
	return &Processor{
		pool: pool,
		idle: make(chan struct{}),
	}
}

// AddThread creates a new runnable thread executing entry. Returning from
// entry is equivalent to calling Exit(0).
func (p *Processor) AddThread(entry func()) (sched.Tid, *kernel.Error) {
	p.lock.Acquire()
	defer p.lock.Release()

	t, err := p.pool.Add(entry)
	if err != nil {
		return sched.InvalidTid, err
	}
	return t.Tid, nil
}

// AddTickHook registers fn to be invoked on every tick.
func (p *Processor) AddTickHook(fn func()) {
	p.lock.Acquire()
	p.tickHooks = append(p.tickHooks, fn)
	p.lock.Release()
}

// SetSwitchHook registers fn to be invoked on every context switch. The idle
// loop is reported as sched.InvalidTid.
func (p *Processor) SetSwitchHook(fn func(from, to sched.Tid)) {
	p.lock.Acquire()
	p.switchHook = fn
	p.lock.Release()
}

// Run executes threads until all of them have exited. While no thread is
// runnable but some are sleeping on the timer, the idle loop ticks the
// clock forward. Run returns ErrDeadlock if the remaining threads are all
// parked with no pending timer.
func (p *Processor) Run() *kernel.Error {
	for {
		p.lock.Acquire()
		t, ok := p.pool.Acquire()
		if !ok {
			live, sleepers := p.pool.Live(), p.timer.Len()
			p.lock.Release()

			switch {
			case live == 0:
				return nil
			case sleepers == 0:
				kfmt.Printf("[proc] %d threads blocked with no pending wake-ups\n", live)
				return ErrDeadlock
			}

			p.Tick()
			continue
		}

		p.current = t
		hook := p.switchHook
		p.lock.Release()

		if hook != nil {
			hook(sched.InvalidTid, t.Tid)
		}
		p.switchTo(t)

		p.lock.Acquire()
		p.current = nil
		hook = p.switchHook
		if t.Status == StatusExited {
			p.timer.Cancel(t.Tid)
		}
		p.pool.Retrieve(t)
		p.lock.Release()

		if hook != nil {
			hook(t.Tid, sched.InvalidTid)
		}
	}
}

// switchTo gives the CPU to t and blocks until t hands it back.
func (p *Processor) switchTo(t *Thread) {
	if !t.started {
		t.started = true
		go p.threadMain(t)
	} else {
		t.resume <- struct{}{}
	}
	<-p.idle
}

func (p *Processor) threadMain(t *Thread) {
	defer func() {
		p.lock.Acquire()
		t.Status = StatusExited
		p.lock.Release()

		p.idle <- struct{}{}
	}()

	t.entry()
}

// switchToIdle hands the CPU from the running thread t back to Run and
// blocks until t is scheduled again.
func (p *Processor) switchToIdle(t *Thread) {
	p.idle <- struct{}{}
	<-t.resume
}

// running returns the current thread. The caller must hold p.lock, which is
// released before panicking when called from the idle loop.
func (p *Processor) running() *Thread {
	if p.current == nil {
		p.lock.Release()
		panic(ErrNotInThread)
	}
	return p.current
}

// CurrentTid returns the id of the running thread or sched.InvalidTid when
// the processor is idle.
func (p *Processor) CurrentTid() sched.Tid {
	p.lock.Acquire()
	defer p.lock.Release()

	if p.current == nil {
		return sched.InvalidTid
	}
	return p.current.Tid
}

// Park suspends the running thread until WakeUp is called for it.
func (p *Processor) Park() {
	p.lock.Acquire()
	t := p.running()
	t.Status = StatusSleeping
	p.lock.Release()

	p.switchToIdle(t)
}

// YieldNow puts the running thread back in the ready queue and lets the
// scheduler pick the next thread.
func (p *Processor) YieldNow() {
	p.lock.Acquire()
	t := p.running()
	p.lock.Release()

	p.switchToIdle(t)
}

// Sleep parks the running thread for the given number of ticks.
func (p *Processor) Sleep(ticks uint64) {
	if ticks == 0 {
		p.YieldNow()
		return
	}

	p.lock.Acquire()
	t := p.running()
	p.timer.Add(p.ticks+ticks, t.Tid)
	t.Status = StatusSleeping
	p.lock.Release()

	p.switchToIdle(t)
}

// WakeUp makes a parked thread runnable again. Waking a thread that is not
// parked has no effect.
func (p *Processor) WakeUp(tid sched.Tid) {
	p.lock.Acquire()
	if p.pool.WakeUp(tid) {
		p.timer.Cancel(tid)
	}
	p.lock.Release()
}

// Exit terminates the running thread with the given exit code. It does not
// return.
func (p *Processor) Exit(code int) {
	p.lock.Acquire()
	t := p.running()
	t.ExitCode = code
	p.lock.Release()

	// threadMain's deferred handler hands the CPU back to Run
	runtime.Goexit()
}

// Tick advances the clock by one tick, wakes up threads whose sleep expired
// and runs the tick hooks. When called from a thread whose time slice has
// run out, the thread is preempted before Tick returns.
func (p *Processor) Tick() {
	p.lock.Acquire()
	p.ticks++
	p.timer.Expire(p.ticks, p.wakeExpired)
	preempt := p.current != nil && p.pool.Tick()
	hooks := p.tickHooks
	p.lock.Release()

	for _, hook := range hooks {
		hook()
	}

	if preempt {
		p.YieldNow()
	}
}

// wakeExpired is invoked by the timer with p.lock held.
func (p *Processor) wakeExpired(tid sched.Tid) {
	p.pool.WakeUp(tid)
}

// Ticks returns the number of ticks elapsed since the processor was created.
func (p *Processor) Ticks() uint64 {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.ticks
}

// SetPriority changes the scheduling priority of tid.
func (p *Processor) SetPriority(tid sched.Tid, priority uint32) *kernel.Error {
	p.lock.Acquire()
	defer p.lock.Release()
	return p.pool.SetPriority(tid, priority)
}

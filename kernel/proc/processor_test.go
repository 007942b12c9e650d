package proc

import (
	"bytes"
	"strings"
	"testing"

	"rvos/kernel/kfmt"
	"rvos/kernel/sched"
	"rvos/kernel/sync"
)

var _ sync.ThreadParker = (*Processor)(nil)

func newTestProcessor(scheduler sched.Scheduler) *Processor {
	return NewProcessor(NewThreadPool(scheduler, 8))
}

func expectTrace(t *testing.T, exp, got []int) {
	t.Helper()
	if len(got) != len(exp) {
		t.Fatalf("expected trace %v; got %v", exp, got)
	}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("expected trace %v; got %v", exp, got)
		}
	}
}

func TestProcessorRoundRobinPreemption(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(2))

	var trace []int
	for i := 0; i < 3; i++ {
		p.AddThread(func() {
			tid := int(p.CurrentTid())
			for step := 0; step < 3; step++ {
				trace = append(trace, tid*10+step)
				p.Tick()
			}
		})
	}

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}

	expectTrace(t, []int{0, 1, 10, 11, 20, 21, 2, 12, 22}, trace)

	if exp, got := uint64(9), p.Ticks(); got != exp {
		t.Fatalf("expected %d ticks; got %d", exp, got)
	}
	if p.CurrentTid() != sched.InvalidTid {
		t.Fatalf("expected idle processor to report tid %d; got %d", sched.InvalidTid, p.CurrentTid())
	}
}

func TestProcessorYield(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(100))

	var trace []int
	for i := 0; i < 2; i++ {
		p.AddThread(func() {
			tid := int(p.CurrentTid())
			trace = append(trace, tid)
			p.YieldNow()
			trace = append(trace, tid+10)
		})
	}

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}
	expectTrace(t, []int{0, 1, 10, 11}, trace)
}

func TestProcessorStrideShare(t *testing.T) {
	p := newTestProcessor(sched.NewStride())

	counts := make([]int, 2)
	for i := 0; i < 2; i++ {
		p.AddThread(func() {
			tid := p.CurrentTid()
			for p.Ticks() < 60 {
				counts[tid]++
				p.Tick()
			}
		})
	}

	if err := p.SetPriority(1, 2); err != nil {
		t.Fatal(err)
	}

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}

	if counts[0]+counts[1] != 60 {
		t.Fatalf("expected 60 units of service in total; got %v", counts)
	}
	if diff := counts[1] - 2*counts[0]; diff < -2 || diff > 2 {
		t.Fatalf("expected thread with priority 2 to get twice the service; got %v", counts)
	}
}

func TestProcessorCondvar(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(1))
	cv := sync.NewCondvar(p)

	var (
		queue []int
		trace []string
	)

	p.AddThread(func() {
		for len(queue) == 0 {
			trace = append(trace, "consumer waits")
			cv.Wait()
		}
		trace = append(trace, "consumer got item")
		queue = queue[1:]
	})

	p.AddThread(func() {
		queue = append(queue, 42)
		trace = append(trace, "producer notifies")
		if !cv.Notify() {
			t.Error("expected Notify to wake the consumer")
		}
	})

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}

	exp := []string{"consumer waits", "producer notifies", "consumer got item"}
	if strings.Join(trace, ",") != strings.Join(exp, ",") {
		t.Fatalf("expected trace %v; got %v", exp, trace)
	}
	if len(queue) != 0 || cv.Waiters() != 0 {
		t.Fatalf("expected queue and wait queue to be drained; got %d items and %d waiters", len(queue), cv.Waiters())
	}
}

func TestProcessorCondvarFIFOWakeUp(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(1))
	cv := sync.NewCondvar(p)

	var trace []int
	for i := 0; i < 2; i++ {
		p.AddThread(func() {
			cv.Wait()
			trace = append(trace, int(p.CurrentTid()))
		})
	}

	p.AddThread(func() {
		cv.Notify()
		p.YieldNow()
		trace = append(trace, -1)
		cv.Notify()
		if cv.Notify() {
			t.Error("expected Notify with no waiters to return false")
		}
	})

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}
	expectTrace(t, []int{0, -1, 1}, trace)
}

func TestProcessorSleep(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(1))

	var wokeAt []uint64
	p.AddThread(func() {
		p.Sleep(3)
		wokeAt = append(wokeAt, p.Ticks())
	})
	p.AddThread(func() {
		p.Sleep(0)
		wokeAt = append(wokeAt, p.Ticks())
	})

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}

	if len(wokeAt) != 2 || wokeAt[0] != 0 || wokeAt[1] != 3 {
		t.Fatalf("expected wake-ups at ticks [0 3]; got %v", wokeAt)
	}
}

func TestProcessorEarlyWakeUpCancelsTimer(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(1))

	var sleeper sched.Tid
	sleeper, _ = p.AddThread(func() {
		p.Sleep(100)
	})
	p.AddThread(func() {
		p.WakeUp(sleeper)
	})

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}
	if got := p.Ticks(); got != 0 {
		t.Fatalf("expected early wake-up to leave the clock at 0; got %d", got)
	}
	if p.timer.Len() != 0 {
		t.Fatalf("expected timer to be empty; got %d entries", p.timer.Len())
	}
}

func TestProcessorExit(t *testing.T) {
	defer func() {
		kfmt.SetOutputSink(nil)
		kfmt.SetDebug(false)
	}()

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	kfmt.SetDebug(true)

	p := newTestProcessor(sched.NewRoundRobin(1))

	reached := false
	p.AddThread(func() {
		p.Exit(7)
		reached = true
	})

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}
	if reached {
		t.Fatal("expected Exit not to return")
	}
	if exp := "[proc] thread 0 exited with code 7"; !strings.Contains(buf.String(), exp) {
		t.Fatalf("expected output to contain %q; got %q", exp, buf.String())
	}

	// the slot of the exited thread is reused
	if tid, err := p.AddThread(func() {}); err != nil || tid != 0 {
		t.Fatalf("expected (0, nil); got (%d, %v)", tid, err)
	}
}

func TestProcessorDeadlock(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(1))
	p.AddThread(func() { p.Park() })

	if err := p.Run(); err != ErrDeadlock {
		t.Fatalf("expected error %v; got %v", ErrDeadlock, err)
	}
}

func TestProcessorHooks(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(1))

	var switches []int
	p.SetSwitchHook(func(from, to sched.Tid) {
		switches = append(switches, int(from), int(to))
	})

	tickCount := 0
	p.AddTickHook(func() { tickCount++ })

	p.AddThread(func() { p.Tick() })
	p.AddThread(func() {})

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}

	if tickCount != 1 {
		t.Fatalf("expected tick hook to run once; got %d", tickCount)
	}

	// thread 0 is preempted by its tick and resumes after thread 1 exits
	expectTrace(t, []int{-1, 0, 0, -1, -1, 1, 1, -1, -1, 0, 0, -1}, switches)
}

func TestProcessorIdleCallsPanic(t *testing.T) {
	p := newTestProcessor(sched.NewRoundRobin(1))

	specs := []func(){
		p.Park,
		p.YieldNow,
		func() { p.Sleep(1) },
		func() { p.Exit(0) },
	}

	for specIndex, fn := range specs {
		func() {
			defer func() {
				if err := recover(); err != ErrNotInThread {
					t.Errorf("[spec %d] expected panic %v; got %v", specIndex, ErrNotInThread, err)
				}
			}()
			fn()
		}()
	}

	// the lock must have been released before panicking
	if got := p.CurrentTid(); got != sched.InvalidTid {
		t.Fatalf("expected tid %d; got %d", sched.InvalidTid, got)
	}
}

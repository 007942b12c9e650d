package proc

import (
	"testing"

	"rvos/kernel/sched"
)

func TestThreadPoolLifecycle(t *testing.T) {
	tp := NewThreadPool(sched.NewRoundRobin(1), 2)

	t0, err := tp.Add(func() {})
	if err != nil {
		t.Fatal(err)
	}
	t1, err := tp.Add(func() {})
	if err != nil {
		t.Fatal(err)
	}
	if t0.Tid != 0 || t1.Tid != 1 {
		t.Fatalf("expected tids 0 and 1; got %d and %d", t0.Tid, t1.Tid)
	}
	if _, err = tp.Add(func() {}); err != ErrPoolFull {
		t.Fatalf("expected error %v; got %v", ErrPoolFull, err)
	}

	got, ok := tp.Acquire()
	if !ok || got != t0 || got.Status != StatusRunning {
		t.Fatalf("expected thread 0 to be running; got %v", got)
	}

	// a sleeping thread is not queued again until woken up
	got.Status = StatusSleeping
	tp.Retrieve(got)

	if got, _ = tp.Acquire(); got != t1 {
		t.Fatalf("expected thread 1 to run next; got %v", got)
	}
	got.Status = StatusExited
	tp.Retrieve(got)

	if exp, live := 1, tp.Live(); live != exp {
		t.Fatalf("expected %d live threads; got %d", exp, live)
	}
	if tp.Get(1) != nil {
		t.Fatal("expected slot of exited thread to be released")
	}

	if _, ok = tp.Acquire(); ok {
		t.Fatal("expected no runnable thread while thread 0 sleeps")
	}

	if !tp.WakeUp(0) {
		t.Fatal("expected WakeUp to resume thread 0")
	}
	if tp.WakeUp(0) {
		t.Fatal("expected WakeUp of a ready thread to have no effect")
	}
	if tp.WakeUp(1) || tp.WakeUp(-1) || tp.WakeUp(7) {
		t.Fatal("expected WakeUp of unknown threads to have no effect")
	}

	if got, _ = tp.Acquire(); got != t0 {
		t.Fatalf("expected woken thread 0 to run; got %v", got)
	}

	// freed slots are reused
	t2, err := tp.Add(func() {})
	if err != nil || t2.Tid != 1 {
		t.Fatalf("expected (1, nil); got (%v, %v)", t2, err)
	}
}

func TestThreadPoolSetPriority(t *testing.T) {
	rr := NewThreadPool(sched.NewRoundRobin(1), 1)
	rr.Add(func() {})
	if err := rr.SetPriority(0, 2); err != ErrNoPriorities {
		t.Fatalf("expected error %v; got %v", ErrNoPriorities, err)
	}

	stride := NewThreadPool(sched.NewStride(), 1)
	stride.Add(func() {})

	specs := []struct {
		tid      sched.Tid
		priority uint32
		expErr   interface{}
	}{
		{0, 4, nil},
		{0, 0, sched.ErrInvalidPriority},
		{3, 2, sched.ErrUnknownThread},
	}

	for specIndex, spec := range specs {
		err := stride.SetPriority(spec.tid, spec.priority)
		if spec.expErr == nil && err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
		} else if spec.expErr != nil && err != spec.expErr {
			t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestStatusString(t *testing.T) {
	specs := []struct {
		status Status
		exp    string
	}{
		{StatusReady, "ready"},
		{StatusRunning, "running"},
		{StatusSleeping, "sleeping"},
		{StatusExited, "exited"},
		{Status(9), "unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.status.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

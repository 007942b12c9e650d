package sched

import "testing"

func TestRoundRobinFIFOOrder(t *testing.T) {
	rr := NewRoundRobin(3)

	for tid := Tid(1); tid <= 5; tid++ {
		rr.Push(tid)
	}

	for exp := Tid(1); exp <= 5; exp++ {
		got, ok := rr.Pop()
		if !ok {
			t.Fatalf("expected Pop to return thread %d; got none", exp)
		}
		if got != exp {
			t.Fatalf("expected Pop to return thread %d; got %d", exp, got)
		}
	}

	if tid, ok := rr.Pop(); ok {
		t.Fatalf("expected Pop on an empty ready list to fail; got %d", tid)
	}
}

func TestRoundRobinTimeSlice(t *testing.T) {
	const maxTimeSlice = 4
	rr := NewRoundRobin(maxTimeSlice)

	rr.Push(7)
	if tid, _ := rr.Pop(); tid != 7 {
		t.Fatalf("expected to pop thread 7; got %d", tid)
	}

	for tick := 1; tick < maxTimeSlice; tick++ {
		if rr.Tick() {
			t.Fatalf("expected no preemption on tick %d", tick)
		}
	}

	if !rr.Tick() {
		t.Fatalf("expected preemption on tick %d", maxTimeSlice)
	}
}

func TestRoundRobinRemainingSliceCarriesOver(t *testing.T) {
	rr := NewRoundRobin(3)

	rr.Push(1)
	rr.Pop()
	rr.Tick()

	// voluntary yield after one tick keeps the remaining two ticks
	rr.Push(1)
	rr.Pop()

	if rr.Tick() {
		t.Fatal("expected no preemption on first tick after re-push")
	}
	if !rr.Tick() {
		t.Fatal("expected preemption once the carried-over slice is used up")
	}

	// an exhausted slice is refilled on the next push
	rr.Push(1)
	rr.Pop()
	for tick := 1; tick < 3; tick++ {
		if rr.Tick() {
			t.Fatalf("expected no preemption on tick %d of a refilled slice", tick)
		}
	}
}

func TestRoundRobinTickWithoutCurrent(t *testing.T) {
	rr := NewRoundRobin(2)
	if !rr.Tick() {
		t.Fatal("expected Tick to request a reschedule when no thread is running")
	}

	rr.Push(0)
	rr.Pop()
	rr.Exit(0)

	if !rr.Tick() {
		t.Fatal("expected Tick to request a reschedule after the current thread exited")
	}
}

func TestRoundRobinExitQueuedThread(t *testing.T) {
	rr := NewRoundRobin(2)
	rr.Push(1)
	rr.Push(2)
	rr.Push(3)

	rr.Exit(2)

	for _, exp := range []Tid{1, 3} {
		if got, _ := rr.Pop(); got != exp {
			t.Fatalf("expected to pop thread %d; got %d", exp, got)
		}
	}

	if _, ok := rr.Pop(); ok {
		t.Fatal("expected exited thread to be removed from the ready list")
	}
}

func TestRoundRobinContractViolations(t *testing.T) {
	specs := []struct {
		descr  string
		fn     func(*RoundRobin)
		expErr interface{}
	}{
		{"duplicate push", func(rr *RoundRobin) { rr.Push(1); rr.Push(1) }, ErrAlreadyQueued},
		{"negative tid", func(rr *RoundRobin) { rr.Push(-2) }, ErrInvalidTid},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			defer func() {
				if err := recover(); err != spec.expErr {
					t.Fatalf("expected panic with %v; got %v", spec.expErr, err)
				}
			}()

			spec.fn(NewRoundRobin(1))
		})
	}
}

package sync

import (
	"testing"

	"rvos/kernel/sched"
)

// fakeThreads records park/wake calls. The thread that calls Park is
// considered blocked until WakeUp is called for it.
type fakeThreads struct {
	current sched.Tid
	blocked map[sched.Tid]bool
	woken   []sched.Tid
}

func newFakeThreads() *fakeThreads {
	return &fakeThreads{blocked: make(map[sched.Tid]bool)}
}

func (f *fakeThreads) CurrentTid() sched.Tid { return f.current }
func (f *fakeThreads) Park()                 { f.blocked[f.current] = true }
func (f *fakeThreads) WakeUp(tid sched.Tid) {
	delete(f.blocked, tid)
	f.woken = append(f.woken, tid)
}

func TestCondvarWaitBlocksUntilNotify(t *testing.T) {
	threads := newFakeThreads()
	cv := NewCondvar(threads)

	threads.current = 3
	cv.Wait()

	if !threads.blocked[3] {
		t.Fatal("expected waiting thread to be parked")
	}

	if exp, got := 1, cv.Waiters(); got != exp {
		t.Fatalf("expected %d waiter; got %d", exp, got)
	}

	threads.current = 4
	if !cv.Notify() {
		t.Fatal("expected Notify to wake a waiter")
	}

	if threads.blocked[3] {
		t.Fatal("expected notified thread to be runnable again")
	}
}

func TestCondvarFIFOWakeOrder(t *testing.T) {
	threads := newFakeThreads()
	cv := NewCondvar(threads)

	for _, tid := range []sched.Tid{5, 2} {
		threads.current = tid
		cv.Wait()
	}

	threads.current = 9
	cv.Notify()
	cv.Notify()

	if len(threads.woken) != 2 || threads.woken[0] != 5 || threads.woken[1] != 2 {
		t.Fatalf("expected waiters to be woken in wait order [5 2]; got %v", threads.woken)
	}

	if len(threads.blocked) != 0 {
		t.Fatalf("expected no blocked threads; got %v", threads.blocked)
	}
}

func TestCondvarNotifyWithoutWaiters(t *testing.T) {
	threads := newFakeThreads()
	cv := NewCondvar(threads)

	if cv.Notify() {
		t.Fatal("expected Notify on an empty condvar to report no wake-up")
	}

	if len(threads.woken) != 0 {
		t.Fatalf("expected no thread to be woken; got %v", threads.woken)
	}

	// The earlier notify must not be remembered.
	threads.current = 1
	cv.Wait()
	if !threads.blocked[1] {
		t.Fatal("expected Wait after a lost notify to block")
	}
}

func TestCondvarWaitOutsideThread(t *testing.T) {
	threads := newFakeThreads()
	threads.current = sched.InvalidTid
	cv := NewCondvar(threads)

	func() {
		defer func() {
			if err := recover(); err != ErrNotInThread {
				t.Fatalf("expected panic with %v; got %v", ErrNotInThread, err)
			}
		}()
		cv.Wait()
	}()

	if exp, got := 0, cv.Waiters(); got != exp {
		t.Fatalf("expected %d waiters; got %d", exp, got)
	}

	if len(threads.blocked) != 0 {
		t.Fatalf("expected nothing to be parked; got %v", threads.blocked)
	}

	if cv.Notify() {
		t.Fatal("expected Notify to find no waiter")
	}
}

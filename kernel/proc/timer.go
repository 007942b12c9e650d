package proc

import (
	"container/heap"

	"rvos/kernel/sched"
)

type timerEntry struct {
	deadline uint64

	// seq orders entries sharing a deadline by insertion.
	seq uint64
	tid sched.Tid
}

// timerQueue implements heap.Interface as a min-heap on (deadline, seq).
type timerQueue []timerEntry

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].deadline != q[j].deadline {
		return q[i].deadline < q[j].deadline
	}
	return q[i].seq < q[j].seq
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x interface{}) { *q = append(*q, x.(timerEntry)) }

func (q *timerQueue) Pop() interface{} {
	old := *q
	last := old[len(old)-1]
	*q = old[:len(old)-1]
	return last
}

// Timer keeps the wake-up deadlines of sleeping threads, measured in ticks.
type Timer struct {
	queue timerQueue
	seq   uint64
}

// Add schedules tid to be woken up once the tick count reaches deadline.
func (t *Timer) Add(deadline uint64, tid sched.Tid) {
	t.seq++
	heap.Push(&t.queue, timerEntry{deadline: deadline, seq: t.seq, tid: tid})
}

// Expire removes every entry whose deadline is not after now and invokes
// fn for each of them in deadline order.
func (t *Timer) Expire(now uint64, fn func(sched.Tid)) {
	for len(t.queue) > 0 && t.queue[0].deadline <= now {
		entry := heap.Pop(&t.queue).(timerEntry)
		fn(entry.tid)
	}
}

// Cancel drops all pending entries for tid and reports whether any existed.
func (t *Timer) Cancel(tid sched.Tid) bool {
	kept := t.queue[:0]
	for _, entry := range t.queue {
		if entry.tid != tid {
			kept = append(kept, entry)
		}
	}

	if len(kept) == len(t.queue) {
		return false
	}
	t.queue = kept
	heap.Init(&t.queue)
	return true
}

// Next returns the earliest pending deadline.
func (t *Timer) Next() (uint64, bool) {
	if len(t.queue) == 0 {
		return 0, false
	}
	return t.queue[0].deadline, true
}

// Len returns the number of pending entries.
func (t *Timer) Len() int { return len(t.queue) }

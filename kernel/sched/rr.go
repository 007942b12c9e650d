package sched

import "rvos/kernel/kfmt"

type rrInfo struct {
	valid bool

	// remaining is the number of ticks left in the thread's time slice.
	remaining uint32

	prev, next int
}

// RoundRobin schedules threads in FIFO order, preempting each one once it has
// consumed a fixed number of timer ticks. A thread that gives up the CPU
// before its slice is exhausted keeps the remainder for its next turn.
type RoundRobin struct {
	threads      []rrInfo
	maxTimeSlice uint32
	current      int
}

// NewRoundRobin returns a round-robin scheduler with a time slice of
// maxTimeSlice ticks.
func NewRoundRobin(maxTimeSlice uint32) *RoundRobin {
	if maxTimeSlice == 0 {
		maxTimeSlice = 1
	}

	return &RoundRobin{
		// slot 0 is the sentinel of the circular ready list
		threads:      make([]rrInfo, 1),
		maxTimeSlice: maxTimeSlice,
	}
}

// Push appends tid to the tail of the ready list.
func (rr *RoundRobin) Push(tid Tid) {
	slot := slotFor(tid)
	if slot >= len(rr.threads) {
		rr.threads = append(rr.threads, make([]rrInfo, slot+1-len(rr.threads))...)
	}

	info := &rr.threads[slot]
	if info.valid {
		panic(ErrAlreadyQueued)
	}

	if info.remaining == 0 {
		info.remaining = rr.maxTimeSlice
	}

	tail := rr.threads[0].prev
	info.valid = true
	info.prev = tail
	info.next = 0
	rr.threads[tail].next = slot
	rr.threads[0].prev = slot
}

// Pop removes the head of the ready list and makes it the current thread.
func (rr *RoundRobin) Pop() (Tid, bool) {
	slot := rr.threads[0].next
	if slot == 0 {
		return InvalidTid, false
	}

	rr.unlink(slot)
	rr.current = slot
	kfmt.Debugf("[sched] rr: run %d (%d ticks left)\n", slot-1, rr.threads[slot].remaining)
	return Tid(slot - 1), true
}

// Tick charges one tick to the current thread and reports whether its time
// slice is exhausted. It always reports true when no thread is running.
func (rr *RoundRobin) Tick() bool {
	if rr.current == 0 {
		return true
	}

	info := &rr.threads[rr.current]
	if info.remaining > 0 {
		info.remaining--
	}
	return info.remaining == 0
}

// Exit forgets tid. A later Push of the same id starts with a full slice.
func (rr *RoundRobin) Exit(tid Tid) {
	slot := slotFor(tid)
	if rr.current == slot {
		rr.current = 0
	}

	if slot >= len(rr.threads) {
		return
	}

	if rr.threads[slot].valid {
		rr.unlink(slot)
	}
	rr.threads[slot].remaining = 0
}

func (rr *RoundRobin) unlink(slot int) {
	info := &rr.threads[slot]
	rr.threads[info.prev].next = info.next
	rr.threads[info.next].prev = info.prev
	info.prev, info.next = 0, 0
	info.valid = false
}

package sched

import "rvos/kernel"

const (
	// BigStride is the numerator used to derive a thread's pass from its
	// priority. 40320 = 8! divides evenly by every priority from 1 to 8.
	BigStride = 40320

	// DefaultPriority is assigned to threads until SetPriority is called.
	DefaultPriority = 1
)

type strideInfo struct {
	// stride is the virtual time consumed by the thread.
	stride uint64

	// pass is added to stride for every unit of service received.
	pass uint64

	// known is set while the thread is registered with the scheduler.
	known bool

	queued     bool
	prev, next int
}

func defaultStrideInfo() strideInfo {
	return strideInfo{pass: BigStride / DefaultPriority}
}

// charge accounts one unit of service.
func (s *strideInfo) charge() {
	s.stride += s.pass
}

// Stride implements stride scheduling: the runnable thread with the smallest
// stride runs next, and each unit of service advances its stride by a pass
// inversely proportional to its priority.
//
// The ready list is kept sorted by stride, so Pop is O(1) and Push is O(n).
type Stride struct {
	threads []strideInfo
	current int
}

// NewStride returns an empty stride scheduler.
func NewStride() *Stride {
	return &Stride{
		threads: []strideInfo{defaultStrideInfo()},
	}
}

// SetPriority recomputes the pass of tid. Stride already accrued is left
// untouched.
func (s *Stride) SetPriority(tid Tid, priority uint32) *kernel.Error {
	if tid < 0 {
		return ErrInvalidTid
	}
	if priority == 0 {
		return ErrInvalidPriority
	}

	slot := slotFor(tid)
	if slot >= len(s.threads) || !s.threads[slot].known {
		return ErrUnknownThread
	}

	pass := uint64(BigStride / priority)
	if pass == 0 {
		pass = 1
	}
	s.threads[slot].pass = pass
	return nil
}

// Push inserts tid into the ready list after every thread whose stride does
// not exceed its own.
func (s *Stride) Push(tid Tid) {
	slot := slotFor(tid)
	for slot >= len(s.threads) {
		s.threads = append(s.threads, defaultStrideInfo())
	}

	if s.threads[slot].queued {
		panic(ErrAlreadyQueued)
	}
	s.threads[slot].known = true
	s.insert(slot)
}

// Pop removes the thread with the smallest stride, charges it one pass and
// makes it the current thread.
func (s *Stride) Pop() (Tid, bool) {
	slot := s.threads[0].next
	if slot == 0 {
		return InvalidTid, false
	}

	s.remove(slot)
	s.threads[slot].charge()
	s.current = slot
	return Tid(slot - 1), true
}

// Tick keeps the current thread running, charging it one more pass, as long
// as its stride does not exceed the stride of the first ready thread.
func (s *Stride) Tick() bool {
	if s.current == 0 {
		return true
	}

	head := s.threads[0].next
	if head == 0 {
		return false
	}

	cur := &s.threads[s.current]
	if cur.stride <= s.threads[head].stride {
		cur.charge()
		return false
	}
	return true
}

// Exit forgets tid and resets its stride and pass so the id can be reused by
// a fresh thread.
func (s *Stride) Exit(tid Tid) {
	slot := slotFor(tid)
	if s.current == slot {
		s.current = 0
	}

	if slot >= len(s.threads) {
		return
	}

	if s.threads[slot].queued {
		s.remove(slot)
	}
	s.threads[slot] = defaultStrideInfo()
}

func (s *Stride) insert(slot int) {
	stride := s.threads[slot].stride

	prev := 0
	for next := s.threads[0].next; next != 0 && s.threads[next].stride <= stride; next = s.threads[next].next {
		prev = next
	}

	next := s.threads[prev].next
	info := &s.threads[slot]
	info.prev, info.next = prev, next
	info.queued = true
	s.threads[prev].next = slot
	if next != 0 {
		s.threads[next].prev = slot
	}
}

func (s *Stride) remove(slot int) {
	info := &s.threads[slot]
	s.threads[info.prev].next = info.next
	if info.next != 0 {
		s.threads[info.next].prev = info.prev
	}
	info.prev, info.next = 0, 0
	info.queued = false
}

package reclaim

import "rvos/kernel/mm/vmm"

// Clock implements the second-chance algorithm. Tracked pages form a circle
// swept by a hand; a page whose accessed bit is set gets its bit cleared and
// is skipped, and the first page found with a clear bit is evicted.
type Clock struct {
	frames  []Resident
	current int
}

// PushFrame implements Policy.
func (p *Clock) PushFrame(virtAddr uintptr, table vmm.PageTable) {
	p.frames = append(p.frames, Resident{VirtAddr: virtAddr, Table: table})
}

// ChooseVictim implements Policy. The hand is left on the slot that followed
// the victim. If every page was recently accessed, the sweep completes a full
// turn and evicts the page under the hand.
func (p *Clock) ChooseVictim() (Resident, bool) {
	count := len(p.frames)
	if count == 0 {
		return Resident{}, false
	}

	for i := 0; i < count; i++ {
		index := (p.current + i) % count
		if accessed(p.frames[index]) {
			continue
		}
		return p.evict(index), true
	}

	return p.evict(p.current), true
}

// Tick implements Policy.
func (p *Clock) Tick() {}

// Len returns the number of tracked pages.
func (p *Clock) Len() int { return len(p.frames) }

// evict removes the page at index and moves the hand onto its successor.
func (p *Clock) evict(index int) Resident {
	victim := p.frames[index]
	copy(p.frames[index:], p.frames[index+1:])
	p.frames[len(p.frames)-1] = Resident{}
	p.frames = p.frames[:len(p.frames)-1]

	p.current = 0
	if len(p.frames) > 0 {
		p.current = index % len(p.frames)
	}
	return victim
}

// accessed reports whether the page was referenced since the hand last
// passed it, clearing the accessed bit. A page whose mapping is gone is
// reported as not accessed.
func accessed(r Resident) bool {
	wasAccessed, err := r.Table.ClearAccessed(r.VirtAddr)
	return err == nil && wasAccessed
}

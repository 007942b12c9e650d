package reclaim

import "rvos/kernel/mm/vmm"

// FIFO evicts resident pages in the order they became resident.
type FIFO struct {
	frames []Resident
}

// PushFrame implements Policy.
func (p *FIFO) PushFrame(virtAddr uintptr, table vmm.PageTable) {
	p.frames = append(p.frames, Resident{VirtAddr: virtAddr, Table: table})
}

// ChooseVictim implements Policy.
func (p *FIFO) ChooseVictim() (Resident, bool) {
	if len(p.frames) == 0 {
		return Resident{}, false
	}

	victim := p.frames[0]
	p.frames[0] = Resident{}
	p.frames = p.frames[1:]
	return victim, true
}

// Tick implements Policy.
func (p *FIFO) Tick() {}

// Len returns the number of tracked pages.
func (p *FIFO) Len() int { return len(p.frames) }

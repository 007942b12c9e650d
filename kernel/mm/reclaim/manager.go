package reclaim

import (
	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
	"rvos/kernel/mm/vmm"
	"rvos/kernel/sync"
)

// Manager couples a frame allocator with a replacement policy. It is the
// caller side of the reclaim protocol: when the allocator runs dry, a victim
// chosen by the policy is unmapped, its frame is released and the allocation
// is retried. Neither the allocator nor the policy retry on their own.
type Manager struct {
	lock   sync.Spinlock
	frames mm.FrameAllocator
	policy Policy

	evictions uint64
}

// NewManager returns a Manager allocating from frames and evicting according
// to policy.
func NewManager(frames mm.FrameAllocator, policy Policy) *Manager {
	return &Manager{frames: frames, policy: policy}
}

// AllocFrame returns a free frame, evicting resident pages as needed. It
// fails with pmm.ErrOutOfMemory once the policy has nothing left to evict.
func (m *Manager) AllocFrame() (mm.Frame, *kernel.Error) {
	m.lock.Acquire()
	defer m.lock.Release()
	return m.allocFrame()
}

func (m *Manager) allocFrame() (mm.Frame, *kernel.Error) {
	for {
		frame, err := m.frames.AllocFrame()
		if err != pmm.ErrOutOfMemory {
			return frame, err
		}

		victim, ok := m.policy.ChooseVictim()
		if !ok {
			return mm.InvalidFrame, pmm.ErrOutOfMemory
		}

		if err = m.evict(victim); err != nil {
			return mm.InvalidFrame, err
		}
	}
}

// evict unmaps victim and releases its frame. Records whose mapping has
// already been torn down are dropped silently.
func (m *Manager) evict(victim Resident) *kernel.Error {
	frame, err := victim.Table.Unmap(mm.PageFromAddress(victim.VirtAddr))
	if err == vmm.ErrInvalidMapping {
		kfmt.Debugf("[reclaim] dropping stale page 0x%x\n", victim.VirtAddr)
		return nil
	} else if err != nil {
		return err
	}

	kfmt.Debugf("[reclaim] evicted page 0x%x (frame 0x%x)\n", victim.VirtAddr, uintptr(frame))
	m.evictions++
	return m.frames.FreeFrame(frame)
}

// MapPage backs the page containing virtAddr with a frame, maps it in table
// and registers the mapping with the replacement policy.
func (m *Manager) MapPage(table vmm.PageTable, virtAddr uintptr, flags vmm.PageTableEntryFlag) (mm.Frame, *kernel.Error) {
	m.lock.Acquire()
	defer m.lock.Release()

	frame, err := m.allocFrame()
	if err != nil {
		return mm.InvalidFrame, err
	}

	page := mm.PageFromAddress(virtAddr)
	if err = table.Map(page, frame, flags); err != nil {
		if freeErr := m.frames.FreeFrame(frame); freeErr != nil {
			kfmt.Debugf("[reclaim] unable to release frame 0x%x: %s\n", uintptr(frame), freeErr.Message)
		}
		return mm.InvalidFrame, err
	}

	m.policy.PushFrame(page.Address(), table)
	return frame, nil
}

// UnmapPage removes the mapping for virtAddr from table and releases its
// frame. The policy may still hold a record for the page; it is dropped when
// the policy selects it.
func (m *Manager) UnmapPage(table vmm.PageTable, virtAddr uintptr) *kernel.Error {
	m.lock.Acquire()
	defer m.lock.Release()

	frame, err := table.Unmap(mm.PageFromAddress(virtAddr))
	if err != nil {
		return err
	}
	return m.frames.FreeFrame(frame)
}

// Tick forwards a scheduler tick to the replacement policy.
func (m *Manager) Tick() {
	m.lock.Acquire()
	m.policy.Tick()
	m.lock.Release()
}

// Evictions returns the number of pages evicted so far.
func (m *Manager) Evictions() uint64 {
	m.lock.Acquire()
	defer m.lock.Release()
	return m.evictions
}

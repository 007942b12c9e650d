package vmm

import (
	"rvos/kernel"
	"rvos/kernel/mm"
	"rvos/kernel/sync"
)

// SoftPageTable is a PageTable kept in ordinary memory. It stands in for the
// hardware table of an address space when the core runs without an MMU, e.g.
// in the kernel simulator, and lets callers emulate the hardware setting the
// accessed and dirty bits.
type SoftPageTable struct {
	lock    sync.Spinlock
	entries map[mm.Page]*PageTableEntry
}

// NewSoftPageTable returns an empty table.
func NewSoftPageTable() *SoftPageTable {
	return &SoftPageTable{entries: make(map[mm.Page]*PageTableEntry)}
}

// Entry implements PageTable.
func (pt *SoftPageTable) Entry(virtAddr uintptr) (*PageTableEntry, *kernel.Error) {
	pt.lock.Acquire()
	defer pt.lock.Release()

	pte, ok := pt.entries[mm.PageFromAddress(virtAddr)]
	if !ok || !pte.HasFlags(FlagValid) {
		return nil, ErrInvalidMapping
	}
	return pte, nil
}

// Map implements PageTable. FlagValid is always added to flags.
func (pt *SoftPageTable) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	pt.lock.Acquire()
	defer pt.lock.Release()

	if _, exists := pt.entries[page]; exists {
		return ErrAlreadyMapped
	}

	pte := new(PageTableEntry)
	pte.SetFrame(frame)
	pte.SetFlags(flags | FlagValid)
	pt.entries[page] = pte
	return nil
}

// Unmap implements PageTable.
func (pt *SoftPageTable) Unmap(page mm.Page) (mm.Frame, *kernel.Error) {
	pt.lock.Acquire()
	defer pt.lock.Release()

	pte, ok := pt.entries[page]
	if !ok {
		return mm.InvalidFrame, ErrInvalidMapping
	}
	delete(pt.entries, page)
	return pte.Frame(), nil
}

// Translate returns the physical address that corresponds to virtAddr.
func (pt *SoftPageTable) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	pte, err := pt.Entry(virtAddr)
	if err != nil {
		return 0, err
	}
	return pte.Frame().Address() + (virtAddr & (mm.PageSize - 1)), nil
}

// Touch records an access to virtAddr the way the MMU would, setting the
// accessed bit and, for writes, the dirty bit.
func (pt *SoftPageTable) Touch(virtAddr uintptr, write bool) *kernel.Error {
	pte, err := pt.Entry(virtAddr)
	if err != nil {
		return err
	}

	flags := FlagAccessed
	if write {
		flags |= FlagDirty
	}

	pt.lock.Acquire()
	pte.SetFlags(flags)
	pt.lock.Release()
	return nil
}

// ClearAccessed implements PageTable.
func (pt *SoftPageTable) ClearAccessed(virtAddr uintptr) (bool, *kernel.Error) {
	pt.lock.Acquire()
	defer pt.lock.Release()

	pte, ok := pt.entries[mm.PageFromAddress(virtAddr)]
	if !ok || !pte.HasFlags(FlagValid) {
		return false, ErrInvalidMapping
	}

	accessed := pte.HasFlags(FlagAccessed)
	pte.ClearFlags(FlagAccessed)
	return accessed, nil
}

// Len returns the number of mapped pages.
func (pt *SoftPageTable) Len() int {
	pt.lock.Acquire()
	defer pt.lock.Release()
	return len(pt.entries)
}

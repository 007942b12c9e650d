// Package vmm contains the page table abstraction consumed by the memory
// reclaim code. The hardware page tables are owned by the virtual memory
// layer outside the kernel core; this package defines the entry format they
// use and the operations the core needs from them.
package vmm

import (
	"rvos/kernel"
	"rvos/kernel/mm"
)

var (
	// ErrInvalidMapping is returned when trying to lookup a virtual memory address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}

	// ErrAlreadyMapped is returned when mapping a page that already has a
	// valid entry.
	ErrAlreadyMapped = &kernel.Error{Module: "vmm", Message: "virtual page is already mapped"}
)

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uintptr

// Sv39 page table entry flags.
const (
	// FlagValid is set when the entry holds a valid mapping.
	FlagValid PageTableEntryFlag = 1 << iota

	// FlagRead allows loads from the page.
	FlagRead

	// FlagWrite allows stores to the page.
	FlagWrite

	// FlagExec allows instruction fetches from the page.
	FlagExec

	// FlagUser makes the page accessible from user mode.
	FlagUser

	// FlagGlobal marks a mapping present in all address spaces.
	FlagGlobal

	// FlagAccessed is set whenever the page is read, written or fetched
	// from. Page replacement policies clear it to track recent use.
	FlagAccessed

	// FlagDirty is set whenever the page is written.
	FlagDirty
)

const (
	ptePPNShift = 10
	ptePPNMask  = (uintptr(1) << 44) - 1
)

// PageTableEntry describes a page table entry. These entries encode
// a physical frame number and a set of flags.
type PageTableEntry uintptr

// HasFlags returns true if this entry has all the input flags set.
func (pte PageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uintptr(pte) & uintptr(flags)) == uintptr(flags)
}

// HasAnyFlag returns true if this entry has at least one of the input flags set.
func (pte PageTableEntry) HasAnyFlag(flags PageTableEntryFlag) bool {
	return (uintptr(pte) & uintptr(flags)) != 0
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *PageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (PageTableEntry)(uintptr(*pte) | uintptr(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *PageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte = (PageTableEntry)(uintptr(*pte) &^ uintptr(flags))
}

// Frame returns the physical page frame that this page table entry points to.
func (pte PageTableEntry) Frame() mm.Frame {
	return mm.Frame((uintptr(pte) >> ptePPNShift) & ptePPNMask)
}

// SetFrame updates the page table entry to point the the given physical frame.
func (pte *PageTableEntry) SetFrame(frame mm.Frame) {
	*pte = (PageTableEntry)((uintptr(*pte) &^ (ptePPNMask << ptePPNShift)) | (uintptr(frame)&ptePPNMask)<<ptePPNShift)
}

// PageTable is implemented by the address spaces of the virtual memory layer.
type PageTable interface {
	// Entry returns the leaf entry mapping virtAddr or ErrInvalidMapping.
	Entry(virtAddr uintptr) (*PageTableEntry, *kernel.Error)

	// Map establishes a mapping from page to frame.
	Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error

	// Unmap removes the mapping for page and returns the frame it pointed
	// to.
	Unmap(page mm.Page) (mm.Frame, *kernel.Error)

	// ClearAccessed atomically tests and clears FlagAccessed on the entry
	// mapping virtAddr and reports whether it was set.
	ClearAccessed(virtAddr uintptr) (bool, *kernel.Error)
}

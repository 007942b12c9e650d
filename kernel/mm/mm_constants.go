package mm

// Sv39 paging constants.
const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = uintptr(12)

	// PageSize defines the system's page size in bytes.
	PageSize = uintptr(1 << PageShift)

	// PhysicalMemoryEnd is the end of the RAM window of the QEMU virt
	// machine when booted with 128 MiB.
	PhysicalMemoryEnd = uintptr(0x88000000)

	// KernelBase is the physical address the kernel image is loaded at.
	KernelBase = uintptr(0x80000000)
)

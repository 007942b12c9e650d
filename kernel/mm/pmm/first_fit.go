package pmm

import (
	"rvos/kernel"
	"rvos/kernel/mm"
)

type markAs bool

const (
	markReserved markAs = false
	markFree     markAs = true
)

// FirstFitAllocator tracks the frames of [l, r) in a bitmap where a set bit
// marks a reserved frame. Allocations scan the bitmap for the first suitable
// run of free frames, starting from where the previous allocation ended and
// wrapping around once.
type FirstFitAllocator struct {
	startFrame mm.Frame

	// frameCount is r - l.
	frameCount uint32

	// freeCount lets exhausted allocators fail without a scan.
	freeCount uint32

	// offset is the bitmap index where the next scan begins.
	offset uint32

	freeBitmap  []uint64
	initialized bool
}

// Init implements mm.FrameAllocator.
func (alloc *FirstFitAllocator) Init(l, r mm.Frame) *kernel.Error {
	if err := checkRange(alloc.initialized, l, r); err != nil {
		return err
	}

	alloc.startFrame = l
	alloc.frameCount = uint32(r - l)
	alloc.freeCount = alloc.frameCount
	alloc.freeBitmap = make([]uint64, (alloc.frameCount+63)>>6)
	alloc.initialized = true
	return nil
}

// AllocFrame implements mm.FrameAllocator.
func (alloc *FirstFitAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	return alloc.AllocFrames(1)
}

// AllocFrames implements mm.FrameAllocator. Runs never straddle the end of
// the managed range.
func (alloc *FirstFitAllocator) AllocFrames(count uint32) (mm.Frame, *kernel.Error) {
	if !alloc.initialized {
		panic(ErrNotInitialized)
	}

	switch {
	case count == 0:
		return mm.InvalidFrame, ErrInvalidCount
	case count > alloc.freeCount:
		return mm.InvalidFrame, ErrOutOfMemory
	}

	index, found := alloc.findRun(alloc.offset, alloc.frameCount, count)
	if !found && alloc.offset > 0 {
		// runs starting before offset may extend up to offset+count-1
		limit := alloc.offset + count - 1
		if limit > alloc.frameCount {
			limit = alloc.frameCount
		}
		index, found = alloc.findRun(0, limit, count)
	}

	if !found {
		return mm.InvalidFrame, ErrOutOfMemory
	}

	for i := index; i < index+count; i++ {
		alloc.markFrame(i, markReserved)
	}
	alloc.freeCount -= count
	alloc.offset = (index + count) % alloc.frameCount
	return alloc.startFrame + mm.Frame(index), nil
}

// FreeFrame implements mm.FrameAllocator.
func (alloc *FirstFitAllocator) FreeFrame(frame mm.Frame) *kernel.Error {
	return alloc.FreeFrames(frame, 1)
}

// FreeFrames implements mm.FrameAllocator. If any frame in the range is not
// currently allocated the call fails without releasing anything.
func (alloc *FirstFitAllocator) FreeFrames(start mm.Frame, count uint32) *kernel.Error {
	if !alloc.initialized {
		panic(ErrNotInitialized)
	}

	if count == 0 {
		return ErrInvalidCount
	}

	if start < alloc.startFrame || uint64(start-alloc.startFrame)+uint64(count) > uint64(alloc.frameCount) {
		return ErrFrameNotAllocated
	}

	first := uint32(start - alloc.startFrame)
	for i := first; i < first+count; i++ {
		if !alloc.isReserved(i) {
			return ErrFrameNotAllocated
		}
	}

	for i := first; i < first+count; i++ {
		alloc.markFrame(i, markFree)
	}
	alloc.freeCount += count
	return nil
}

// findRun looks for count free frames in a row starting at an index in
// [from, to). The run itself must also end before to.
func (alloc *FirstFitAllocator) findRun(from, to, count uint32) (uint32, bool) {
	var runStart, runLen uint32

	for index := from; index < to; index++ {
		// skip over fully reserved blocks
		if runLen == 0 && index&63 == 0 && alloc.freeBitmap[index>>6] == ^uint64(0) {
			index += 63
			continue
		}

		if alloc.isReserved(index) {
			runLen = 0
			continue
		}

		if runLen == 0 {
			runStart = index
		}
		if runLen++; runLen == count {
			return runStart, true
		}
	}

	return 0, false
}

func (alloc *FirstFitAllocator) isReserved(index uint32) bool {
	return alloc.freeBitmap[index>>6]&(1<<(index&63)) != 0
}

func (alloc *FirstFitAllocator) markFrame(index uint32, flag markAs) {
	mask := uint64(1) << (index & 63)
	if flag == markFree {
		alloc.freeBitmap[index>>6] &^= mask
		return
	}
	alloc.freeBitmap[index>>6] |= mask
}

// FreeCount returns the number of free frames.
func (alloc *FirstFitAllocator) FreeCount() uint32 {
	return alloc.freeCount
}

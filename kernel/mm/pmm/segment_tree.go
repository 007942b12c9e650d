package pmm

import (
	"math/bits"

	"rvos/kernel"
	"rvos/kernel/mm"
)

// SegmentTreeAllocator tracks the frames of [l, r) with a segment tree whose
// nodes record the longest run of free frames in their span together with the
// free runs touching the span's left and right edges. Finding the leftmost
// run of n free frames takes O(log N); reserving or releasing it touches
// O(n + log N) nodes.
//
// The tree is stored in arrays indexed from 1 with the children of node i at
// 2i and 2i+1. The leaf count is rounded up to a power of two; padding leaves
// are permanently reserved.
type SegmentTreeAllocator struct {
	startFrame mm.Frame
	frameCount uint32
	freeCount  uint32
	leafCount  uint32

	longest []uint32
	prefix  []uint32
	suffix  []uint32

	initialized bool
}

// Init implements mm.FrameAllocator.
func (alloc *SegmentTreeAllocator) Init(l, r mm.Frame) *kernel.Error {
	if err := checkRange(alloc.initialized, l, r); err != nil {
		return err
	}

	alloc.startFrame = l
	alloc.frameCount = uint32(r - l)
	alloc.freeCount = alloc.frameCount
	alloc.leafCount = 1
	for alloc.leafCount < alloc.frameCount {
		alloc.leafCount <<= 1
	}

	nodes := 2 * alloc.leafCount
	alloc.longest = make([]uint32, nodes)
	alloc.prefix = make([]uint32, nodes)
	alloc.suffix = make([]uint32, nodes)

	for i := uint32(0); i < alloc.frameCount; i++ {
		alloc.setLeaf(alloc.leafCount+i, markFree)
	}
	for node := alloc.leafCount - 1; node > 0; node-- {
		alloc.pull(node, alloc.spanOf(node))
	}

	alloc.initialized = true
	return nil
}

// AllocFrame implements mm.FrameAllocator.
func (alloc *SegmentTreeAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	return alloc.AllocFrames(1)
}

// AllocFrames implements mm.FrameAllocator. It always returns the lowest
// suitable run.
func (alloc *SegmentTreeAllocator) AllocFrames(count uint32) (mm.Frame, *kernel.Error) {
	if !alloc.initialized {
		panic(ErrNotInitialized)
	}

	switch {
	case count == 0:
		return mm.InvalidFrame, ErrInvalidCount
	case alloc.longest[1] < count:
		return mm.InvalidFrame, ErrOutOfMemory
	}

	index := alloc.findRun(count)
	alloc.update(1, 0, alloc.leafCount, index, index+count, markReserved)
	alloc.freeCount -= count
	return alloc.startFrame + mm.Frame(index), nil
}

// FreeFrame implements mm.FrameAllocator.
func (alloc *SegmentTreeAllocator) FreeFrame(frame mm.Frame) *kernel.Error {
	return alloc.FreeFrames(frame, 1)
}

// FreeFrames implements mm.FrameAllocator. If any frame in the range is not
// currently allocated the call fails without releasing anything.
func (alloc *SegmentTreeAllocator) FreeFrames(start mm.Frame, count uint32) *kernel.Error {
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
		if alloc.longest[alloc.leafCount+i] != 0 {
			return ErrFrameNotAllocated
		}
	}

	alloc.update(1, 0, alloc.leafCount, first, first+count, markFree)
	alloc.freeCount += count
	return nil
}

// FreeCount returns the number of free frames.
func (alloc *SegmentTreeAllocator) FreeCount() uint32 {
	return alloc.freeCount
}

// findRun descends from the root towards the leftmost run of count free
// frames. The caller must ensure that such a run exists.
func (alloc *SegmentTreeAllocator) findRun(count uint32) uint32 {
	node, lo, span := uint32(1), uint32(0), alloc.leafCount
	for span > 1 {
		half := span >> 1
		left, right := node<<1, node<<1|1
		switch {
		case alloc.longest[left] >= count:
			node, span = left, half
		case alloc.suffix[left]+alloc.prefix[right] >= count:
			return lo + half - alloc.suffix[left]
		default:
			node, lo, span = right, lo+half, half
		}
	}
	return lo
}

// update marks the leaves in [from, to) that fall inside the span
// [lo, lo+span) of node and refreshes the aggregates on the way back up.
func (alloc *SegmentTreeAllocator) update(node, lo, span, from, to uint32, flag markAs) {
	if to <= lo || lo+span <= from {
		return
	}

	if span == 1 {
		alloc.setLeaf(node, flag)
		return
	}

	half := span >> 1
	alloc.update(node<<1, lo, half, from, to, flag)
	alloc.update(node<<1|1, lo+half, half, from, to, flag)
	alloc.pull(node, span)
}

func (alloc *SegmentTreeAllocator) setLeaf(node uint32, flag markAs) {
	var v uint32
	if flag == markFree {
		v = 1
	}
	alloc.longest[node], alloc.prefix[node], alloc.suffix[node] = v, v, v
}

// pull recomputes the aggregates of node from its children.
func (alloc *SegmentTreeAllocator) pull(node, span uint32) {
	half := span >> 1
	left, right := node<<1, node<<1|1

	longest := alloc.longest[left]
	if alloc.longest[right] > longest {
		longest = alloc.longest[right]
	}
	if joined := alloc.suffix[left] + alloc.prefix[right]; joined > longest {
		longest = joined
	}
	alloc.longest[node] = longest

	alloc.prefix[node] = alloc.prefix[left]
	if alloc.prefix[left] == half {
		alloc.prefix[node] += alloc.prefix[right]
	}

	alloc.suffix[node] = alloc.suffix[right]
	if alloc.suffix[right] == half {
		alloc.suffix[node] += alloc.suffix[left]
	}
}

// spanOf returns the number of leaves below node.
func (alloc *SegmentTreeAllocator) spanOf(node uint32) uint32 {
	depth := uint32(bits.Len32(node)) - 1
	return alloc.leafCount >> depth
}

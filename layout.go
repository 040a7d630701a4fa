package memtalk

import (
	"fmt"

	"github.com/c2h5oh/datasize"

	"github.com/kartva/memtalk/internal/ringbuf"
)

// readyWordSize is the publication word at the start of the region.
const readyWordSize = 4

// controlAlign places control blocks at the larger of their natural
// alignment and a conservative atomic-access alignment.
const controlAlign = max(int(ringbuf.ControlAlign), 8)

// Layout describes where the ready word, the two ring control blocks, and
// their data slabs sit inside the one-page shared region. Both peers derive
// it from the page size alone, so no layout information is ever exchanged.
type Layout struct {
	// PageSize is the total region size.
	PageSize int
	// SlabSize is the byte length of each ring's data slab.
	SlabSize int
	// CtrlA, SlabA, CtrlB, SlabB are offsets into the region.
	CtrlA int
	SlabA int
	CtrlB int
	SlabB int
}

func alignUp(off, align int) int {
	return (off + align - 1) / align * align
}

// ComputeLayout splits a page between the fixed metadata and two equal
// slabs. Fails when the page cannot hold the metadata plus two slabs of at
// least two bytes each.
func ComputeLayout(pageSize int) (Layout, error) {
	metadata := readyWordSize + 2*(int(ringbuf.ControlSize)+controlAlign)
	minSlabs := 2 * 2

	if metadata+minSlabs > pageSize {
		return Layout{}, fmt.Errorf(
			"not enough memory in page (%s) for ring buffers (requires %s)",
			datasize.ByteSize(pageSize), datasize.ByteSize(metadata+minSlabs),
		)
	}

	slabSize := (pageSize - metadata) / 2

	ctrlA := alignUp(readyWordSize, controlAlign)
	slabA := ctrlA + int(ringbuf.ControlSize)
	ctrlB := alignUp(slabA+slabSize, controlAlign)
	slabB := ctrlB + int(ringbuf.ControlSize)

	if slabB+slabSize > pageSize {
		return Layout{}, fmt.Errorf("ring layout overflows the %s page", datasize.ByteSize(pageSize))
	}

	return Layout{
		PageSize: pageSize,
		SlabSize: slabSize,
		CtrlA:    ctrlA,
		SlabA:    slabA,
		CtrlB:    ctrlB,
		SlabB:    slabB,
	}, nil
}

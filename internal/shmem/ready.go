package shmem

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/kartva/memtalk/internal/futex"
)

// Magic is the value the creator stores into the ready word once both ring
// control blocks are fully initialized.
const Magic uint32 = 0x12345678

// ReadyWord returns the 32-bit publication word at the start of the region.
func (m *Region) ReadyWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&m.mem[0]))
}

// Publish stores the magic value into the ready word and wakes one waiter.
// Called by the creator after initializing the region; everything written
// before Publish is visible to a peer whose Await has returned.
func Publish(word *uint32) error {
	atomic.StoreUint32(word, Magic)
	if _, err := futex.Wake(word, 1); err != nil {
		return fmt.Errorf("failed to publish ready word: %w", err)
	}
	return nil
}

// Await blocks until the ready word holds the magic value. The wait is a
// sleep-if-zero loop: if the creator published before we got here the sleep
// is a no-op, and a spurious wakeup simply rechecks the word.
func Await(word *uint32) error {
	for {
		if err := futex.Wait(word, 0); err != nil {
			return fmt.Errorf("failed to wait on ready word: %w", err)
		}
		if atomic.LoadUint32(word) == Magic {
			return nil
		}
	}
}

// Package futex exposes the raw wait-on-word and wake primitives used to
// synchronize the two channel peers. The words live in shared memory, so
// the private-futex optimization must not be used.
package futex

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex(2) operation codes. Not exposed as named constants by
// golang.org/x/sys/unix; values come from linux/futex.h.
const (
	_FUTEX_WAIT = 0
	_FUTEX_WAKE = 1
)

// Wait sleeps until the word at addr is woken, provided it still holds val
// at the time of the call. Returns immediately if the word has already
// changed. Spurious returns are possible; callers recheck their predicate.
func Wait(addr *uint32, val uint32) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(_FUTEX_WAIT),
		uintptr(val),
		0, 0, 0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	default:
		return fmt.Errorf("futex wait: %w", errno)
	}
}

// Wake wakes up to n waiters sleeping on the word at addr and returns the
// number of waiters actually woken.
func Wake(addr *uint32, n int) (int, error) {
	woken, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(_FUTEX_WAKE),
		uintptr(n),
		0, 0, 0,
	)
	if errno != 0 {
		return 0, fmt.Errorf("futex wake: %w", errno)
	}
	return int(woken), nil
}

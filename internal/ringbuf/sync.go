package ringbuf

import (
	"sync/atomic"

	"github.com/kartva/memtalk/internal/futex"
)

// The control block must be usable from two independent address spaces, so
// its mutex and condition variables are built directly on futex words
// instead of Go's sync package, whose primitives are process-private.

const (
	mutexFree      = 0
	mutexLocked    = 1
	mutexContended = 2
)

// mutex is a cross-process futex mutex. The state word is one of free,
// locked, or locked-with-waiters; unlock only enters the kernel when a
// waiter may be sleeping.
type mutex struct {
	state uint32
}

func (m *mutex) lock() {
	if atomic.CompareAndSwapUint32(&m.state, mutexFree, mutexLocked) {
		return
	}
	for {
		c := atomic.LoadUint32(&m.state)
		if c == mutexContended ||
			(c == mutexLocked && atomic.CompareAndSwapUint32(&m.state, mutexLocked, mutexContended)) {
			futex.Wait(&m.state, mutexContended)
		}
		// Acquire as contended: we cannot know whether other waiters
		// remain, so the eventual unlock must issue a wake.
		if atomic.CompareAndSwapUint32(&m.state, mutexFree, mutexContended) {
			return
		}
	}
}

func (m *mutex) unlock() {
	if atomic.AddUint32(&m.state, ^uint32(0)) != mutexFree {
		atomic.StoreUint32(&m.state, mutexFree)
		futex.Wake(&m.state, 1)
	}
}

// cond is a cross-process condition variable: a sequence counter plus the
// futex wait/wake pair. wait releases the mutex, sleeps unless the counter
// has moved since it was read, and reacquires the mutex before returning.
// Callers recheck their predicate in a loop, so a sleep cut short by a
// counter bump or a spurious wakeup is harmless.
type cond struct {
	seq uint32
}

func (c *cond) wait(m *mutex) {
	seq := atomic.LoadUint32(&c.seq)
	m.unlock()
	futex.Wait(&c.seq, seq)
	m.lock()
}

func (c *cond) signal() {
	atomic.AddUint32(&c.seq, 1)
	futex.Wake(&c.seq, 1)
}

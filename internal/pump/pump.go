// Package pump moves bytes between the standard streams and the shared
// rings. Each process runs one pump per direction; together with the peer's
// pumps they form the stdin → ring → peer stdout path.
package pump

import (
	"errors"
	"fmt"
	"io"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap"

	"github.com/kartva/memtalk/internal/ringbuf"
)

// MaxBufSize bounds a pump's local buffer. A single Push must never exceed
// the ring capacity, which would block forever, so the working buffer is
// min(capacity, MaxBufSize).
const MaxBufSize = 512 * datasize.B

func bufSize(ring *ringbuf.Ring, limit datasize.ByteSize) int {
	return min(ring.Capacity(), int(limit))
}

// Push reads from r and pushes every byte into the outbound ring. On end of
// input it closes the ring, leaving teardown to the peer's consumer, and
// returns nil. Any read error is returned and terminates the process.
func Push(ring *ringbuf.Ring, r io.Reader, limit datasize.ByteSize, log *zap.SugaredLogger) error {
	buf := make([]byte, bufSize(ring, limit))

	var total uint64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			ring.Push(buf[:n])
			total += uint64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read from input: %w", err)
		}
	}

	ring.Close()
	log.Debugw("input drained, outbound ring closed", "bytes", datasize.ByteSize(total))
	return nil
}

// Pop drains the inbound ring into w. A zero-length pop means the peer
// closed the ring and every buffered byte has been delivered; the consumer
// is then the last user of the ring and destroys it.
func Pop(ring *ringbuf.Ring, w io.Writer, limit datasize.ByteSize, log *zap.SugaredLogger) error {
	buf := make([]byte, bufSize(ring, limit))

	var total uint64
	for {
		n := ring.Pop(buf)
		if n == 0 {
			break
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("failed to write to output: %w", err)
		}
		total += uint64(n)
	}

	if err := ring.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy drained ring: %w", err)
	}
	log.Debugw("inbound ring drained and destroyed", "bytes", datasize.ByteSize(total))
	return nil
}

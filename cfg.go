package memtalk

import (
	"github.com/c2h5oh/datasize"

	"github.com/kartva/memtalk/internal/pump"
)

// Config configures one endpoint of a channel.
type Config struct {
	// Name of the shared memory object, passed verbatim to the kernel.
	// Must satisfy the host's shm naming rules (leading '/', no further
	// '/', bounded length).
	Name string
	// PumpBufSize bounds each pump's working buffer. The effective buffer
	// is the smaller of this and the ring capacity, so a single push can
	// never exceed what the ring can hold.
	PumpBufSize datasize.ByteSize
}

// DefaultConfig returns the default channel configuration.
func DefaultConfig() *Config {
	return &Config{
		PumpBufSize: pump.MaxBufSize,
	}
}

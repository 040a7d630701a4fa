// Package memtalk implements a bidirectional byte-stream channel between
// two cooperating processes on the same host, carried through a one-page
// shared memory region. Each endpoint reads bytes from its standard input,
// transmits them to the peer, and writes bytes received from the peer to
// its standard output. The two endpoints are interchangeable apart from who
// creates the shared object first.
package memtalk

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kartva/memtalk/internal/pump"
	"github.com/kartva/memtalk/internal/ringbuf"
	"github.com/kartva/memtalk/internal/shmem"
)

type options struct {
	Log *zap.SugaredLogger
	In  io.Reader
	Out io.Writer
}

func newOptions() *options {
	return &options{
		Log: zap.NewNop().Sugar(),
		In:  os.Stdin,
		Out: os.Stdout,
	}
}

// ChannelOption is a function that configures a channel endpoint.
type ChannelOption func(*options)

// WithLog sets the logger for the channel.
func WithLog(log *zap.SugaredLogger) ChannelOption {
	return func(o *options) {
		o.Log = log
	}
}

// WithStreams replaces the standard streams the pumps move bytes between.
func WithStreams(in io.Reader, out io.Writer) ChannelOption {
	return func(o *options) {
		o.In = in
		o.Out = out
	}
}

// Channel is one endpoint of the shared memory channel.
type Channel struct {
	cfg      *Config
	log      *zap.SugaredLogger
	region   *shmem.Region
	outbound *ringbuf.Ring
	inbound  *ringbuf.Ring
	in       io.Reader
	out      io.Writer
}

// NewChannel performs the rendezvous on cfg.Name and binds this process to
// its pair of rings. The creator lays out the region, initializes both
// control blocks, and publishes the ready word; the opener waits for the
// publication before touching them, so it can never observe a partially
// initialized ring. The creator sends on ring A and receives on ring B; the
// opener is wired the other way around, which is what makes the two
// processes peers without any negotiation.
func NewChannel(cfg *Config, opts ...ChannelOption) (*Channel, error) {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.Log

	region, err := shmem.OpenOrCreate(cfg.Name, os.Getpagesize(), shmem.WithLog(log))
	if err != nil {
		return nil, err
	}

	layout, err := ComputeLayout(len(region.Bytes()))
	if err != nil {
		region.Close()
		return nil, err
	}

	mem := region.Bytes()
	ringA := ringbuf.New(
		ringbuf.ControlAt(mem, layout.CtrlA),
		mem[layout.SlabA:layout.SlabA+layout.SlabSize],
	)
	ringB := ringbuf.New(
		ringbuf.ControlAt(mem, layout.CtrlB),
		mem[layout.SlabB:layout.SlabB+layout.SlabSize],
	)

	ch := &Channel{
		cfg:    cfg,
		log:    log,
		region: region,
		in:     o.In,
		out:    o.Out,
	}

	switch region.Role() {
	case shmem.RoleCreator:
		log.Debug("initializing ring buffers")
		if err := ringbuf.Init(ringA.Control(), layout.SlabSize); err != nil {
			region.Close()
			return nil, fmt.Errorf("failed to initialize ring A: %w", err)
		}
		if err := ringbuf.Init(ringB.Control(), layout.SlabSize); err != nil {
			region.Close()
			return nil, fmt.Errorf("failed to initialize ring B: %w", err)
		}
		if err := shmem.Publish(region.ReadyWord()); err != nil {
			region.Close()
			return nil, err
		}
		ch.outbound, ch.inbound = ringA, ringB
	case shmem.RoleOpener:
		log.Debug("waiting for creator to publish the region")
		if err := shmem.Await(region.ReadyWord()); err != nil {
			region.Close()
			return nil, err
		}
		ch.outbound, ch.inbound = ringB, ringA
	}

	log.Debugw("channel established",
		"name", cfg.Name,
		"role", region.Role(),
		"ring_capacity", datasize.ByteSize(layout.SlabSize-1),
	)

	return ch, nil
}

// Run pumps bytes in both directions until the input reaches end-of-file
// and the peer has closed its sending ring.
func (m *Channel) Run(ctx context.Context) error {
	wg, _ := errgroup.WithContext(ctx)

	wg.Go(func() error {
		return pump.Push(m.outbound, m.in, m.cfg.PumpBufSize, m.log)
	})
	wg.Go(func() error {
		return pump.Pop(m.inbound, m.out, m.cfg.PumpBufSize, m.log)
	})

	return wg.Wait()
}

// Close releases the process-local view of the shared region. The creator
// additionally unlinks the name, so a later pair of processes can rendezvous
// on it afresh.
func (m *Channel) Close() error {
	return m.region.Close()
}

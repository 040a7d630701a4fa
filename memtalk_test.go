package memtalk

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/kartva/memtalk/internal/shmem"
)

func testConfig(t *testing.T) *Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Name = fmt.Sprintf("/memtalk-test-%d-%s", os.Getpid(), strings.ToLower(t.Name()))
	return cfg
}

// Test_ChannelEndToEnd runs both peers of a channel inside one process,
// over a real shared memory object, and checks that each side's input
// arrives on the other side's output.
func Test_ChannelEndToEnd(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	cfg := testConfig(t)

	var aOut, bOut bytes.Buffer

	creator, err := NewChannel(cfg,
		WithLog(log),
		WithStreams(bytes.NewReader([]byte("hello\n")), &aOut),
	)
	require.NoError(t, err)
	defer creator.Close()

	opener, err := NewChannel(cfg,
		WithLog(log),
		WithStreams(bytes.NewReader([]byte("ping\n")), &bOut),
	)
	require.NoError(t, err)
	defer opener.Close()

	ctx := context.Background()
	wg := errgroup.Group{}
	wg.Go(func() error { return creator.Run(ctx) })
	wg.Go(func() error { return opener.Run(ctx) })
	require.NoError(t, wg.Wait())

	assert.Equal(t, "ping\n", aOut.String())
	assert.Equal(t, "hello\n", bOut.String())
}

func Test_ChannelRolesAndCleanup(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	cfg := testConfig(t)

	var out bytes.Buffer

	creator, err := NewChannel(cfg,
		WithLog(log),
		WithStreams(bytes.NewReader(nil), &out),
	)
	require.NoError(t, err)
	assert.Equal(t, shmem.RoleCreator, creator.region.Role())

	require.NoError(t, creator.Close())

	// The creator unlinked the name on close, so the next arrival on the
	// same name becomes a fresh creator rather than an opener of stale
	// state.
	fresh, err := NewChannel(cfg,
		WithLog(log),
		WithStreams(bytes.NewReader(nil), &out),
	)
	require.NoError(t, err)
	assert.Equal(t, shmem.RoleCreator, fresh.region.Role())
	require.NoError(t, fresh.Close())
}

func Test_ChannelInvalidName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Name = "memtalk"

	_, err := NewChannel(cfg)
	assert.ErrorIs(t, err, shmem.ErrInvalidName)
}

// Test_ChannelBulkTransfer pushes a megabyte one way while the reverse
// direction closes immediately, mirroring the 1 MiB end-to-end scenario.
func Test_ChannelBulkTransfer(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	cfg := testConfig(t)

	payload := bytes.Repeat([]byte{0x41}, 1<<20)
	var aOut, bOut bytes.Buffer

	creator, err := NewChannel(cfg,
		WithLog(log),
		WithStreams(bytes.NewReader(payload), &aOut),
	)
	require.NoError(t, err)
	defer creator.Close()

	opener, err := NewChannel(cfg,
		WithLog(log),
		WithStreams(bytes.NewReader(nil), &bOut),
	)
	require.NoError(t, err)
	defer opener.Close()

	ctx := context.Background()
	wg := errgroup.Group{}
	wg.Go(func() error { return creator.Run(ctx) })
	wg.Go(func() error { return opener.Run(ctx) })
	require.NoError(t, wg.Wait())

	assert.Zero(t, aOut.Len())
	assert.Equal(t, payload, bOut.Bytes())
}

package futex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WaitReturnsWhenValueDiffers(t *testing.T) {
	word := uint32(1)

	done := make(chan error, 1)
	go func() {
		done <- Wait(&word, 0)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait slept although the word had already changed")
	}
}

func Test_WakeWithoutWaiters(t *testing.T) {
	word := uint32(0)

	n, err := Wake(&word, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func Test_WakeWakesWaiter(t *testing.T) {
	word := uint32(0)

	done := make(chan error, 1)
	go func() {
		done <- Wait(&word, 0)
	}()

	// Give the waiter a moment to enter the kernel, then wake it. A wake
	// racing a not-yet-sleeping waiter is also fine: the waiter either
	// sleeps and is woken by a later retry below, or never sleeps at all.
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		case <-time.After(10 * time.Millisecond):
			_, err := Wake(&word, 1)
			require.NoError(t, err)
		}
	}
}

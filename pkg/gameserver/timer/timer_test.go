package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFire(t *testing.T) {
	fired := make(chan struct{})
	timer := AfterFunc(10*time.Millisecond, func() {
		close(fired)
	})

	// nothing happens until Start
	require.Equal(t, 10*time.Millisecond, timer.TimeLeft())
	select {
	case <-fired:
		t.Fatal("timer fired before Start")
	case <-time.After(30 * time.Millisecond):
	}

	require.True(t, timer.Start())
	require.False(t, timer.Start())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}

	require.Equal(t, time.Duration(0), timer.TimeLeft())
	require.False(t, timer.Stop())
}

func TestStop(t *testing.T) {
	fired := make(chan struct{})
	timer := AfterFunc(20*time.Millisecond, func() {
		close(fired)
	})

	require.True(t, timer.Start())
	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(50 * time.Millisecond):
	}

	require.Equal(t, time.Duration(0), timer.TimeLeft())
}

func TestTimeLeftNil(t *testing.T) {
	var timer *Timer
	require.Equal(t, time.Duration(0), timer.TimeLeft())
}

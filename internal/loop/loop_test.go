package loop_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/republik/appshell/internal/loop"
	"github.com/stretchr/testify/require"
)

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l := loop.New(slog.New(slog.NewTextHandler(io.Discard, nil)), 16)
	l.Start()
	t.Cleanup(l.Stop)
	return l
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	t.Parallel()

	l := newLoop(t)

	var got []int
	for i := 1; i <= 5; i++ {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, l.Do(context.Background(), func() {}))
	require.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestLoopSurvivesPanickingTask(t *testing.T) {
	t.Parallel()

	l := newLoop(t)
	l.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	require.True(t, ran)
}

func TestTimerRunsOnLoop(t *testing.T) {
	t.Parallel()

	l := newLoop(t)
	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestStoppedTimerNeverRuns(t *testing.T) {
	t.Parallel()

	l := newLoop(t)
	ran := make(chan struct{}, 1)
	tm := l.AfterFunc(20*time.Millisecond, func() { ran <- struct{}{} })
	require.True(t, tm.Stop())
	require.False(t, tm.Stop())

	select {
	case <-ran:
		t.Fatal("stopped timer ran")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPostAfterStopFails(t *testing.T) {
	t.Parallel()

	l := loop.New(slog.New(slog.NewTextHandler(io.Discard, nil)), 1)
	l.Start()
	l.Stop()
	<-l.Done()

	require.False(t, l.Post(func() {}))
	require.ErrorIs(t, l.Do(context.Background(), func() {}), loop.ErrStopped)
}

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startActor(t *testing.T) *Actor {
	t.Helper()
	a := NewActor(8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return a
}

func TestDoReturnsCommandResult(t *testing.T) {
	a := startActor(t)
	boom := errors.New("boom")

	assert.NoError(t, a.Do(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, a.Do(context.Background(), func(context.Context) error { return boom }), boom)
}

func TestCommandsRunOneAtATime(t *testing.T) {
	a := startActor(t)

	var (
		inFlight int32
		overlap  int32
		counter  int
		wg       sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := a.Do(context.Background(), func(context.Context) error {
				if atomic.AddInt32(&inFlight, 1) > 1 {
					atomic.StoreInt32(&overlap, 1)
				}
				counter++
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, atomic.LoadInt32(&overlap))
}

func TestCancelledCallerDoesNotInterruptCommand(t *testing.T) {
	a := startActor(t)
	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		finished <- a.Do(ctx, func(cmdCtx context.Context) error {
			close(started)
			<-release
			return cmdCtx.Err()
		})
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-finished, context.Canceled)

	var ran bool
	close(release)
	require.NoError(t, a.Do(context.Background(), func(context.Context) error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}

func TestPanickingCommandBecomesError(t *testing.T) {
	a := startActor(t)

	err := a.Do(context.Background(), func(context.Context) error { panic("bad state") })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad state")
	assert.NoError(t, a.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestDoAfterStop(t *testing.T) {
	a := NewActor(0, zap.NewNop())
	a.Stop()
	a.Stop()

	assert.ErrorIs(t, a.Do(context.Background(), func(context.Context) error { return nil }), ErrStopped)
}

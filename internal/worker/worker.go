package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pharmacy-ops/internal/util"

	"go.uber.org/zap"
)

// ErrStopped is returned for commands submitted after the actor has stopped
var ErrStopped = errors.New("command queue stopped")

// Command is one unit of work run by the actor
type Command func(ctx context.Context) error

type request struct {
	ctx       context.Context
	cmd       Command
	result    chan error
	submitted time.Time
}

// Actor runs commands one at a time on a single goroutine. Every command runs
// to completion before the next one starts.
type Actor struct {
	commands chan request
	done     chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// NewActor creates an actor whose queue holds up to buffer waiting commands
func NewActor(buffer int, logger *zap.Logger) *Actor {
	if buffer < 0 {
		buffer = 0
	}
	return &Actor{
		commands: make(chan request, buffer),
		done:     make(chan struct{}),
		logger:   util.LoggerOr(logger),
	}
}

// Start processes commands until ctx is cancelled or Stop is called
func (a *Actor) Start(ctx context.Context) error {
	a.logger.Info("Starting command queue")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Command queue context cancelled, stopping")
			a.Stop()
			return ctx.Err()
		case <-a.done:
			return nil
		case req := <-a.commands:
			a.run(req)
		}
	}
}

// Stop stops the actor. Commands already running finish; queued ones are dropped
// and their callers get ErrStopped.
func (a *Actor) Stop() {
	a.stopOnce.Do(func() {
		a.logger.Info("Stopping command queue")
		close(a.done)
	})
}

// Do submits cmd and waits for its result. Cancelling ctx abandons the wait;
// a command that has started still runs to completion.
func (a *Actor) Do(ctx context.Context, cmd Command) error {
	req := request{
		ctx:       ctx,
		cmd:       cmd,
		result:    make(chan error, 1),
		submitted: time.Now(),
	}

	select {
	case <-a.done:
		return ErrStopped
	default:
	}

	select {
	case a.commands <- req:
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-a.done:
		// the command may still be running; its result goes to the buffered channel
		select {
		case err := <-req.result:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) run(req request) {
	defer func() {
		util.CommandQueueLatency.Observe(time.Since(req.submitted).Seconds())
	}()

	if err := req.ctx.Err(); err != nil {
		req.result <- err
		return
	}

	req.result <- a.safeRun(context.WithoutCancel(req.ctx), req.cmd)
}

func (a *Actor) safeRun(ctx context.Context, cmd Command) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Command panicked", zap.Any("panic", r))
			err = fmt.Errorf("command panicked: %v", r)
		}
	}()
	return cmd(ctx)
}

package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mattjoyce/cursor-voice/internal/log"
	"github.com/mattjoyce/cursor-voice/internal/protocol"
)

// ErrLoopClosed is returned once the loop has stopped running.
var ErrLoopClosed = errors.New("session loop closed")

const defaultInboxSize = 64

// Loop owns a Controller and applies every input to it on a single goroutine.
type Loop struct {
	c      *Controller
	inbox  chan func(context.Context)
	closed chan struct{}
	logger *slog.Logger
}

// NewLoop wraps c. Run must be called for submitted work to make progress.
func NewLoop(c *Controller, buffer int) *Loop {
	if buffer <= 0 {
		buffer = defaultInboxSize
	}
	return &Loop{
		c:      c,
		inbox:  make(chan func(context.Context), buffer),
		closed: make(chan struct{}),
		logger: log.WithComponent("session-loop"),
	}
}

// Run processes queued work until ctx is cancelled, then deactivates the
// controller.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.closed)
	l.logger.Info("session loop started")

	for {
		select {
		case <-ctx.Done():
			// Teardown must still reach the source after ctx is gone.
			if err := l.c.Deactivate(context.WithoutCancel(ctx)); err != nil {
				l.logger.Warn("deactivate on shutdown failed", "error", err)
			}
			l.logger.Info("session loop stopped")
			return ctx.Err()
		case fn := <-l.inbox:
			fn(ctx)
		}
	}
}

// Start runs Controller.Start on the loop and returns the resulting status.
func (l *Loop) Start(ctx context.Context) (Status, error) {
	var (
		st  Status
		err error
	)
	if werr := l.call(ctx, func(lctx context.Context) {
		err = l.c.Start(lctx)
		st = l.c.Status()
	}); werr != nil {
		return Status{}, werr
	}
	return st, err
}

// Stop runs Controller.Stop on the loop and returns the resulting status.
func (l *Loop) Stop(ctx context.Context) (Status, error) {
	var (
		st  Status
		err error
	)
	if werr := l.call(ctx, func(lctx context.Context) {
		err = l.c.Stop(lctx)
		st = l.c.Status()
	}); werr != nil {
		return Status{}, werr
	}
	return st, err
}

// Status returns a snapshot taken on the loop.
func (l *Loop) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := l.call(ctx, func(context.Context) { st = l.c.Status() }); err != nil {
		return Status{}, err
	}
	return st, nil
}

// Deliver queues a recognizer frame without waiting for it to be applied.
// Frames are applied in the order they are delivered.
func (l *Loop) Deliver(ctx context.Context, msg *protocol.SourceMessage) error {
	return l.submit(ctx, func(lctx context.Context) {
		l.c.HandleSourceMessage(lctx, msg)
	})
}

// Disconnected queues a source disconnect notice.
func (l *Loop) Disconnected(ctx context.Context) error {
	return l.submit(ctx, func(context.Context) {
		l.c.SourceDisconnected()
	})
}

func (l *Loop) submit(ctx context.Context, fn func(context.Context)) error {
	select {
	case <-l.closed:
		return ErrLoopClosed
	default:
	}
	select {
	case l.inbox <- fn:
		return nil
	case <-l.closed:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) call(ctx context.Context, fn func(context.Context)) error {
	done := make(chan struct{})
	if err := l.submit(ctx, func(lctx context.Context) {
		defer close(done)
		fn(lctx)
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-l.closed:
		// Run may have picked fn up just before exiting.
		select {
		case <-done:
			return nil
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

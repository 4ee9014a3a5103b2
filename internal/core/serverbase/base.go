// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNotRestartable is returned by Start on a server that already left the
// created state.
var ErrNotRestartable = errors.New("server is single-use")

type (
	// ServeFunc blocks serving ln until shutdown. It returns nil for an
	// orderly close.
	ServeFunc func(ln net.Listener) error

	// ShutdownFunc stops a running server within ctx.
	ShutdownFunc func(ctx context.Context) error

	// Base tracks the lifecycle of one server instance. Concrete servers embed
	// it. A Base is single-use: once stopped or failed, create a new one.
	Base struct {
		state atomic.Int32

		mu      sync.Mutex
		addr    string
		lastErr error

		ctx       context.Context
		cancel    context.CancelFunc
		wg        sync.WaitGroup
		startedCh chan struct{}
		errCh     chan error
	}
)

// NewBase returns a Base in StateCreated.
func NewBase() *Base {
	b := &Base{
		startedCh: make(chan struct{}),
		errCh:     make(chan error, 1),
	}
	b.state.Store(int32(StateCreated))
	return b
}

// State returns the current state.
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsRunning reports whether the server accepts connections.
func (b *Base) IsRunning() bool {
	return b.State() == StateRunning
}

// Err delivers errors raised by the serve goroutine after Start returned.
// The channel is closed when the server stops.
func (b *Base) Err() <-chan error {
	return b.errCh
}

// LastError returns the error that moved the server to StateFailed.
func (b *Base) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Addr returns the bound listener address, or "" before Start succeeded.
func (b *Base) Addr() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addr
}

// Context is cancelled when the server stops. It is nil before Start.
func (b *Base) Context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

// Start listens on addr and runs serve in a tracked goroutine. It returns
// once the server is running, or with the listen error.
func (b *Base) Start(ctx context.Context, addr string, serve ServeFunc) error {
	if err := ctx.Err(); err != nil {
		b.fail(fmt.Errorf("context cancelled before start: %w", err))
		return b.LastError()
	}
	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("%w: cannot start in state %s", ErrNotRestartable, b.State())
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		b.fail(fmt.Errorf("failed to listen on %s: %w", addr, err))
		return b.LastError()
	}

	b.mu.Lock()
	b.addr = ln.Addr().String()
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.mu.Unlock()

	b.wg.Go(func() {
		if b.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
			close(b.startedCh)
		}
		if err := serve(ln); err != nil && !errors.Is(err, net.ErrClosed) {
			b.report(fmt.Errorf("serve error: %w", err))
		}
	})

	select {
	case <-b.startedCh:
		return nil
	case <-ctx.Done():
		_ = ln.Close()
		b.wg.Wait()
		b.fail(fmt.Errorf("startup cancelled: %w", ctx.Err()))
		return b.LastError()
	}
}

// Stop runs shutdown with the given timeout and waits for the serve
// goroutine. Calls after the first are no-ops.
func (b *Base) Stop(timeout time.Duration, shutdown ShutdownFunc) error {
	if !b.beginStop() {
		b.wg.Wait()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := shutdown(ctx)

	b.wg.Wait()
	b.state.Store(int32(StateStopped))
	close(b.errCh)
	return err
}

// Wait blocks until the serve goroutine exits and returns LastError for a
// failed server.
func (b *Base) Wait() error {
	b.wg.Wait()
	if b.State() == StateFailed {
		return b.LastError()
	}
	return nil
}

// Go runs fn in a goroutine that Stop waits for.
func (b *Base) Go(fn func()) {
	b.wg.Go(fn)
}

func (b *Base) beginStop() bool {
	for {
		current := b.State()
		switch current {
		case StateCreated:
			if b.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return false
			}
		case StateStarting, StateRunning:
			if b.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				b.mu.Lock()
				if b.cancel != nil {
					b.cancel()
				}
				b.mu.Unlock()
				return true
			}
		default:
			return false
		}
	}
}

func (b *Base) fail(err error) {
	b.mu.Lock()
	b.lastErr = err
	if b.cancel != nil {
		b.cancel()
	}
	b.mu.Unlock()
	b.state.Store(int32(StateFailed))
	b.report(err)
}

// report is non-blocking; an error is dropped when one is already pending.
func (b *Base) report(err error) {
	select {
	case b.errCh <- err:
	default:
	}
}

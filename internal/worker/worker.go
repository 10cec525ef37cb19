package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Pool runs the long-lived server tasks and coordinates their shutdown.
// The first task to fail cancels the pool context so the others wind down.
type Pool struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	errOnce sync.Once
	err     error
}

// NewPool creates a new worker pool derived from parent
func NewPool(parent context.Context, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Go runs task in its own goroutine. A returned error is recorded and stops the pool.
func (p *Pool) Go(name string, task func(ctx context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.fail(name, fmt.Errorf("panic: %v", r))
			}
		}()

		p.logger.Debug("▶️ [Worker] Task started", "task", name)
		if err := task(p.ctx); err != nil {
			p.fail(name, err)
			return
		}
		p.logger.Debug("⏹️ [Worker] Task finished", "task", name)
	}()
}

func (p *Pool) fail(name string, err error) {
	p.errOnce.Do(func() {
		p.err = fmt.Errorf("%s: %w", name, err)
	})
	p.logger.Error("❌ [Worker] Task failed", "task", name, "error", err)
	p.cancel()
}

// Context returns the pool's context
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Done is closed once the pool is stopping.
func (p *Pool) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Err returns the first task failure, if any.
func (p *Pool) Err() error {
	p.cancel()
	p.wg.Wait()
	return p.err
}

// Shutdown signals all workers to stop and waits for completion.
// It reports false when the timeout elapsed first.
func (p *Pool) Shutdown(timeout time.Duration) bool {
	p.logger.Info("🛑 [Worker] Initiating graceful shutdown...")

	// Signal all workers to stop
	p.cancel()

	// Wait for all goroutines with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("✅ [Worker] All background tasks completed")
		return true
	case <-time.After(timeout):
		p.logger.Warn("⚠️ [Worker] Shutdown timeout exceeded, some tasks may not have completed",
			"timeout", timeout,
		)
		return false
	}
}

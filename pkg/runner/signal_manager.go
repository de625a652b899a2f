package runner

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultSettleDelay is how long Settle waits for a signal to follow an
// input error.
const DefaultSettleDelay = 100 * time.Millisecond

// SignalManager ties a chat loop to its caller's context and to SIGINT and
// SIGTERM, and tells the two causes of cancellation apart.
type SignalManager struct {
	parent context.Context
	delay  time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// NewSignalManager starts listening for signals. Its contexts are also
// canceled with parent.
func NewSignalManager(parent context.Context) *SignalManager {
	sm := &SignalManager{parent: parent, delay: DefaultSettleDelay}
	sm.ctx, sm.cancel = signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return sm
}

// Context returns the current context, canceled by a signal or the parent.
func (sm *SignalManager) Context() context.Context {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.ctx
}

// Interrupted reports whether a signal, rather than the parent or Stop,
// canceled the current context.
func (sm *SignalManager) Interrupted() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return !sm.stopped && sm.ctx.Err() != nil && sm.parent.Err() == nil
}

// Reset re-arms the signal listener.
// Should be called after a signal has been successfully handled/intercepted
// to allow capturing subsequent signals.
func (sm *SignalManager) Reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.cancel()
	sm.stopped = false
	sm.ctx, sm.cancel = signal.NotifyContext(sm.parent, os.Interrupt, syscall.SIGTERM)
}

// Stop permanently stops the signal listener.
func (sm *SignalManager) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stopped = true
	sm.cancel()
}

// Settle waits briefly for a signal to follow an input error and reports
// whether one did. On Windows/PowerShell, Ctrl+C closes Stdin slightly
// before the signal is delivered.
func (sm *SignalManager) Settle() bool {
	ctx := sm.Context()
	if ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case <-time.After(sm.delay):
		}
	}
	return sm.Interrupted()
}

package services

import (
	"context"
	"log"
	"sync"
	"time"
)

const hookTimeout = 10 * time.Second

// Hooks runs best-effort work after a transaction has committed. Failures
// are logged and never undo the committed work.
type Hooks struct {
	wg sync.WaitGroup
}

// NewHooks creates an empty hook runner
func NewHooks() *Hooks {
	return &Hooks{}
}

// Go runs fn in the background, detached from the request's cancellation
func (h *Hooks) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
		defer cancel()
		if err := fn(hookCtx); err != nil {
			log.Printf("[HOOK] %s failed: %v", name, err)
		}
	}()
}

// Wait blocks until every started hook has finished
func (h *Hooks) Wait() {
	h.wg.Wait()
}

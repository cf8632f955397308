package voting

import (
	"context"
	"sync"
)

// VoteEvent is passed to vote hooks. New is true when the vote did not
// exist before; otherwise Previous holds the direction it replaced.
// Before-hooks may change Vote.Effective or Vote.Classifier.
type VoteEvent struct {
	Item     Item
	Vote     *Vote
	New      bool
	Previous Direction
}

type RemoveEvent struct {
	Item Item
	Vote *Vote
}

// Hooks holds the observers of vote changes. Before-hooks run before the
// transaction and abort the operation by returning an error; after-hooks
// run once the transaction has committed.
type Hooks struct {
	mu           sync.RWMutex
	beforeVote   []func(context.Context, VoteEvent) error
	afterVote    []func(context.Context, VoteEvent)
	beforeRemove []func(context.Context, RemoveEvent) error
	afterRemove  []func(context.Context, RemoveEvent)
}

func NewHooks() *Hooks {
	return &Hooks{}
}

func (h *Hooks) OnBeforeVote(fn func(context.Context, VoteEvent) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeVote = append(h.beforeVote, fn)
}

func (h *Hooks) OnAfterVote(fn func(context.Context, VoteEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterVote = append(h.afterVote, fn)
}

func (h *Hooks) OnBeforeRemoveVote(fn func(context.Context, RemoveEvent) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beforeRemove = append(h.beforeRemove, fn)
}

func (h *Hooks) OnAfterRemoveVote(fn func(context.Context, RemoveEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.afterRemove = append(h.afterRemove, fn)
}

func (h *Hooks) fireBeforeVote(ctx context.Context, ev VoteEvent) error {
	h.mu.RLock()
	fns := h.beforeVote
	h.mu.RUnlock()
	for _, fn := range fns {
		if err := fn(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) fireAfterVote(ctx context.Context, ev VoteEvent) {
	h.mu.RLock()
	fns := h.afterVote
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, ev)
	}
}

func (h *Hooks) fireBeforeRemove(ctx context.Context, ev RemoveEvent) error {
	h.mu.RLock()
	fns := h.beforeRemove
	h.mu.RUnlock()
	for _, fn := range fns {
		if err := fn(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) fireAfterRemove(ctx context.Context, ev RemoveEvent) {
	h.mu.RLock()
	fns := h.afterRemove
	h.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, ev)
	}
}

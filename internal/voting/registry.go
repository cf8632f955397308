package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// Invalidator broadcasts a reason cache invalidation to other processes.
type Invalidator interface {
	PublishInvalidation(ctx context.Context, contentType string) error
}

// Registry serves the stored vote reasons of each content type from a
// process-wide cache. Changes made through Save and Delete drop the cached
// entry of the affected types; writes made elsewhere are only picked up
// after Invalidate.
type Registry struct {
	db       *gorm.DB
	settings func(contentType string) (*Settings, error)
	observer Observer

	cache *lru.Cache[string, []VoteReason]
	group singleflight.Group

	mu        sync.Mutex
	gen       map[string]uint64
	publisher Invalidator
}

func newRegistry(db *gorm.DB, size int, settings func(string) (*Settings, error), observer Observer) (*Registry, error) {
	cache, err := lru.New[string, []VoteReason](size)
	if err != nil {
		return nil, fmt.Errorf("voting: reason cache: %w", err)
	}
	return &Registry{
		db:       db,
		settings: settings,
		observer: observer,
		cache:    cache,
		gen:      make(map[string]uint64),
	}, nil
}

// SetPublisher makes every local invalidation also publish to p.
func (r *Registry) SetPublisher(p Invalidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publisher = p
}

// GetForType returns the stored reasons for a votable content type, upvotes
// first. Types that disallow downvotes only see +1 reasons.
func (r *Registry) GetForType(ctx context.Context, contentType string) ([]VoteReason, error) {
	settings, err := r.settings(contentType)
	if err != nil {
		return nil, err
	}
	if cached, ok := r.cache.Get(contentType); ok {
		r.observer.ReasonCacheLookup(contentType, true)
		return cloneReasons(cached), nil
	}
	r.observer.ReasonCacheLookup(contentType, false)

	v, err, _ := r.group.Do(contentType, func() (any, error) {
		gen := r.generation(contentType)
		reasons, err := r.load(ctx, settings)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		if r.gen[contentType] == gen {
			r.cache.Add(contentType, reasons)
		}
		r.mu.Unlock()
		return reasons, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneReasons(v.([]VoteReason)), nil
}

func (r *Registry) load(ctx context.Context, s *Settings) ([]VoteReason, error) {
	q := r.db.WithContext(ctx).Where("content_type = ?", s.ContentType())
	if !s.DownvotesAllowed() {
		q = q.Where("direction = ?", int8(Up))
	}
	var reasons []VoteReason
	if err := q.Order("direction DESC").Order("reason ASC").Find(&reasons).Error; err != nil {
		return nil, fmt.Errorf("voting: load reasons for %s: %w", s.ContentType(), err)
	}
	return reasons, nil
}

// Find returns a stored reason by id, or nil if there is none.
func (r *Registry) Find(ctx context.Context, id uint) (*VoteReason, error) {
	var reasons []VoteReason
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&reasons).Error; err != nil {
		return nil, err
	}
	if len(reasons) == 0 {
		return nil, nil
	}
	return &reasons[0], nil
}

// List returns every stored reason of every type, bypassing the cache.
func (r *Registry) List(ctx context.Context) ([]VoteReason, error) {
	var reasons []VoteReason
	err := r.db.WithContext(ctx).
		Order("content_type ASC").
		Order("direction DESC").
		Order("reason ASC").
		Find(&reasons).Error
	return reasons, err
}

// Save creates or updates a reason. If an update moves the reason to another
// content type, both types are invalidated.
func (r *Registry) Save(ctx context.Context, reason *VoteReason) error {
	if err := reason.Validate(); err != nil {
		return err
	}
	var previous string
	if reason.ID != 0 {
		old, err := r.Find(ctx, reason.ID)
		if err != nil {
			return err
		}
		if old != nil {
			previous = old.ContentType
		}
	}

	if err := r.db.WithContext(ctx).Save(reason).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %q already exists for %s", ErrInvalidReason, reason.Reason, reason.ContentType)
		}
		return err
	}

	r.invalidate(ctx, reason.ContentType)
	if previous != "" && previous != reason.ContentType {
		r.invalidate(ctx, previous)
	}
	return nil
}

func (r *Registry) Delete(ctx context.Context, reason *VoteReason) error {
	if err := r.db.WithContext(ctx).Delete(&VoteReason{}, reason.ID).Error; err != nil {
		return err
	}
	r.invalidate(ctx, reason.ContentType)
	return nil
}

// Invalidate drops the cached reasons of one content type in this process.
func (r *Registry) Invalidate(contentType string) {
	r.mu.Lock()
	r.gen[contentType]++
	r.cache.Remove(contentType)
	r.mu.Unlock()
	r.group.Forget(contentType)
	r.observer.ReasonCacheInvalidated(contentType)
}

func (r *Registry) invalidate(ctx context.Context, contentType string) {
	r.Invalidate(contentType)

	r.mu.Lock()
	p := r.publisher
	r.mu.Unlock()
	if p == nil {
		return
	}
	if err := p.PublishInvalidation(ctx, contentType); err != nil {
		slog.Warn("failed to publish reason invalidation", "content_type", contentType, "error", err)
	}
}

func (r *Registry) generation(contentType string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen[contentType]
}

func cloneReasons(in []VoteReason) []VoteReason {
	return append([]VoteReason(nil), in...)
}

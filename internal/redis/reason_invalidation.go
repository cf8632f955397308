package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

const reasonInvalidationChannel = "vote_reasons:invalidate"

// LocalInvalidator drops one content type from an in-process reason cache.
type LocalInvalidator interface {
	Invalidate(contentType string)
}

// ReasonPublisher tells other processes that the reasons of a content type
// changed.
type ReasonPublisher struct {
	rdb *goredis.Client
}

func NewReasonPublisher(rdb *goredis.Client) *ReasonPublisher {
	return &ReasonPublisher{rdb: rdb}
}

func (p *ReasonPublisher) PublishInvalidation(ctx context.Context, contentType string) error {
	if err := p.rdb.Publish(ctx, reasonInvalidationChannel, contentType).Err(); err != nil {
		return fmt.Errorf("failed to publish reason invalidation: %w", err)
	}
	return nil
}

// ReasonInvalidationSubscriber applies invalidations published by other
// processes to the local cache. Messages from this process are applied too,
// which is harmless.
type ReasonInvalidationSubscriber struct {
	rdb   *goredis.Client
	local LocalInvalidator
}

func NewReasonInvalidationSubscriber(rdb *goredis.Client, local LocalInvalidator) *ReasonInvalidationSubscriber {
	return &ReasonInvalidationSubscriber{rdb: rdb, local: local}
}

// Start blocks until ctx is cancelled or the subscription closes.
func (s *ReasonInvalidationSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, reasonInvalidationChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handleInvalidation(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *ReasonInvalidationSubscriber) handleInvalidation(payload string) {
	if payload == "" {
		slog.Warn("Empty reason invalidation message")
		return
	}
	s.local.Invalidate(payload)
	slog.Debug("Reason cache invalidated via pub/sub", "content_type", payload)
}

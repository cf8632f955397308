package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"turtlecrossing/internal/models"
	"turtlecrossing/internal/voting"
)

const (
	rankingRecentWindow = 7 * 24 * time.Hour
	rankingTopCount     = 30
)

// RankingService refreshes story scores. Hotness decays with age, so a story
// nobody votes on still needs its hotness recomputed now and then.
type RankingService struct {
	db       *gorm.DB
	engine   *voting.Engine
	clock    clockwork.Clock
	interval time.Duration
}

func NewRankingService(db *gorm.DB, engine *voting.Engine, clock clockwork.Clock, interval time.Duration) *RankingService {
	return &RankingService{db: db, engine: engine, clock: clock, interval: interval}
}

// RefreshStory recomputes the scores of one story and saves them. The story
// row is locked while its votes are counted.
func (s *RankingService) RefreshStory(ctx context.Context, id uint) error {
	story := &models.Story{ID: id}
	votes, err := s.engine.Votes(story)
	if err != nil {
		return err
	}
	_, err = votes.RefreshScores(ctx)
	return err
}

// RefreshRecent refreshes stories from the last week plus the hottest
// stories overall. It returns how many stories were refreshed.
func (s *RankingService) RefreshRecent(ctx context.Context) (int, error) {
	since := s.clock.Now().Add(-rankingRecentWindow)

	var recent []uint
	err := s.db.WithContext(ctx).
		Model(&models.Story{}).
		Where("submitted_at >= ?", since).
		Pluck("id", &recent).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list recent stories: %w", err)
	}
	var top []uint
	err = s.db.WithContext(ctx).
		Model(&models.Story{}).
		Order("hotness DESC").
		Limit(rankingTopCount).
		Pluck("id", &top).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list top stories: %w", err)
	}

	processed := make(map[uint]bool, len(recent)+len(top))
	count := 0
	for _, id := range append(recent, top...) {
		if processed[id] {
			continue
		}
		processed[id] = true
		if err := s.RefreshStory(ctx, id); err != nil {
			slog.Error("failed to refresh story ranking", "story_id", id, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// Run refreshes rankings every interval until ctx is done.
func (s *RankingService) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := s.RefreshRecent(ctx)
			if err != nil {
				slog.Error("ranking refresh failed", "error", err)
				continue
			}
			slog.Info("rankings refreshed", "stories", n)
		}
	}
}

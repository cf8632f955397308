package services

import (
	"context"
	"log/slog"

	"gorm.io/gorm"

	"turtlecrossing/internal/models"
	"turtlecrossing/internal/voting"
)

// Karma actions
const (
	ActionStoryVoted       = "story voted"
	ActionStoryVoteChanged = "story vote changed"
	ActionStoryVoteRemoved = "story vote removed"
	ActionCommentVoted     = "comment upvoted"
	ActionCommentUnvoted   = "comment upvote removed"
)

// KarmaService credits authors when their stories and comments are voted on.
type KarmaService struct {
	db *gorm.DB
}

func NewKarmaService(db *gorm.DB) *KarmaService {
	return &KarmaService{db: db}
}

// Attach keeps karma in step with votes. Votes on one's own content and
// ineffective votes do not count.
func (s *KarmaService) Attach(hooks *voting.Hooks) {
	hooks.OnAfterVote(s.onVote)
	hooks.OnAfterRemoveVote(s.onRemove)
}

// AddKarma changes a user's karma and records why, in one transaction.
func (s *KarmaService) AddKarma(ctx context.Context, userID uint, amount int, action string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.KarmaLog{
			UserID: userID,
			Amount: amount,
			Action: action,
		}
		if err := tx.Omit("User").Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("karma", gorm.Expr("karma + ?", amount)).Error
	})
}

// History lists the latest karma changes of a user.
func (s *KarmaService) History(ctx context.Context, userID uint, limit int) ([]models.KarmaLog, error) {
	var logs []models.KarmaLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (s *KarmaService) onVote(ctx context.Context, ev voting.VoteEvent) {
	author := authorOf(ev.Item)
	if author == 0 || author == ev.Vote.UserID || !ev.Vote.Effective {
		return
	}
	delta := int(ev.Vote.Direction) - int(ev.Previous)
	if delta == 0 {
		return
	}
	action := ActionStoryVoted
	switch {
	case ev.Item.VotableType() == "comment":
		action = ActionCommentVoted
	case !ev.New:
		action = ActionStoryVoteChanged
	}
	s.apply(ctx, author, delta, action)
}

func (s *KarmaService) onRemove(ctx context.Context, ev voting.RemoveEvent) {
	author := authorOf(ev.Item)
	if author == 0 || author == ev.Vote.UserID || !ev.Vote.Effective {
		return
	}
	action := ActionStoryVoteRemoved
	if ev.Item.VotableType() == "comment" {
		action = ActionCommentUnvoted
	}
	s.apply(ctx, author, -int(ev.Vote.Direction), action)
}

func (s *KarmaService) apply(ctx context.Context, userID uint, amount int, action string) {
	if err := s.AddKarma(ctx, userID, amount, action); err != nil {
		slog.Error("failed to update karma", "user_id", userID, "amount", amount, "action", action, "error", err)
	}
}

func authorOf(item voting.Item) uint {
	switch it := item.(type) {
	case *models.Story:
		if it.SubmitterID != nil {
			return *it.SubmitterID
		}
	case *models.Comment:
		return it.UserID
	}
	return 0
}

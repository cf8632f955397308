package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"turtlecrossing/internal/models"
	"turtlecrossing/internal/utils"
	"turtlecrossing/internal/voting"
)

var (
	ErrStoryNotFound   = errors.New("story not found")
	ErrCommentNotFound = errors.New("comment not found")
)

const (
	listCachePrefix = "stories:"
	listCacheTTL    = 30 * time.Second
)

// StoryService handles story submission, listings and comments.
type StoryService struct {
	db             *gorm.DB
	engine         *voting.Engine
	clock          clockwork.Clock
	cache          *utils.GlobalCache
	duplicateHours int
}

func NewStoryService(db *gorm.DB, engine *voting.Engine, clock clockwork.Clock, cache *utils.GlobalCache, duplicateHours int) *StoryService {
	s := &StoryService{
		db:             db,
		engine:         engine,
		clock:          clock,
		cache:          cache,
		duplicateHours: duplicateHours,
	}
	// Listings are ordered by hotness, which every vote changes.
	engine.Hooks().OnAfterVote(func(context.Context, voting.VoteEvent) { s.invalidateLists() })
	engine.Hooks().OnAfterRemoveVote(func(context.Context, voting.RemoveEvent) { s.invalidateLists() })
	return s
}

// FindDuplicateLink returns the earliest story with the same URL submitted
// within the last hours, or nil. Text posts and hours == 0 never match.
func (s *StoryService) FindDuplicateLink(ctx context.Context, draft *models.Story, hours int) (*models.Story, error) {
	if draft.URL == "" || hours <= 0 {
		return nil, nil
	}
	cutoff := s.clock.Now().Add(-time.Duration(hours) * time.Hour)

	var dupes []models.Story
	err := s.db.WithContext(ctx).
		Where("url = ? AND submitted_at >= ?", draft.URL, cutoff).
		Order("submitted_at ASC").
		Limit(1).
		Find(&dupes).Error
	if err != nil {
		return nil, err
	}
	if len(dupes) == 0 {
		return nil, nil
	}
	return &dupes[0], nil
}

// Submit validates and stores a story and gives it the submitter's upvote.
// If the same link was submitted recently, the earlier story is returned
// with duplicate set and nothing is stored.
func (s *StoryService) Submit(ctx context.Context, submitter *models.User, draft *models.Story) (story *models.Story, duplicate bool, err error) {
	if err := draft.Validate(); err != nil {
		return nil, false, err
	}
	dupe, err := s.FindDuplicateLink(ctx, draft, s.duplicateHours)
	if err != nil {
		return nil, false, err
	}
	if dupe != nil {
		return dupe, true, nil
	}

	draft.SubmittedAt = s.clock.Now()
	draft.SubmitterID = &submitter.ID
	draft.Published = true
	draft.Hotness = utils.Hotness(0, draft.SubmittedAt, draft.SubmittedAt)
	if err := s.db.WithContext(ctx).Omit("Submitter").Create(draft).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create story: %w", err)
	}
	s.invalidateLists()

	if err := s.upvoteOwn(ctx, submitter, draft); err != nil {
		slog.Warn("failed to record submitter vote", "story_id", draft.ID, "error", err)
	}
	return draft, false, nil
}

func (s *StoryService) upvoteOwn(ctx context.Context, submitter *models.User, story *models.Story) error {
	votes, err := s.engine.Votes(story)
	if err != nil {
		return err
	}
	reasons, err := votes.Reasons(ctx)
	if err != nil {
		return err
	}
	for _, r := range reasons {
		if voting.Direction(r.Direction) == voting.Up {
			_, err := votes.AddVote(ctx, submitter.ID, voting.Up, r.Reason)
			return err
		}
	}
	return nil
}

// FrontPage lists published stories, hottest first.
func (s *StoryService) FrontPage(ctx context.Context, page, perPage int) ([]models.Story, error) {
	return s.list(ctx, "front", "hotness DESC, submitted_at DESC", page, perPage)
}

// Newest lists published stories, most recent first.
func (s *StoryService) Newest(ctx context.Context, page, perPage int) ([]models.Story, error) {
	return s.list(ctx, "new", "submitted_at DESC, id DESC", page, perPage)
}

func (s *StoryService) list(ctx context.Context, name, order string, page, perPage int) ([]models.Story, error) {
	if page < 1 {
		page = 1
	}
	key := fmt.Sprintf("%s%s:%d:%d", listCachePrefix, name, page, perPage)
	if cached, ok := s.cache.Get(key).([]models.Story); ok {
		return append([]models.Story(nil), cached...), nil
	}

	var stories []models.Story
	err := s.db.WithContext(ctx).
		Preload("Submitter").
		Where("published = ?", true).
		Order(order).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&stories).Error
	if err != nil {
		return nil, err
	}
	if err := s.fillCommentCounts(ctx, stories); err != nil {
		return nil, err
	}

	s.cache.Set(key, stories, listCacheTTL)
	return append([]models.Story(nil), stories...), nil
}

func (s *StoryService) fillCommentCounts(ctx context.Context, stories []models.Story) error {
	if len(stories) == 0 {
		return nil
	}
	ids := make([]uint, len(stories))
	for i, st := range stories {
		ids[i] = st.ID
	}
	var rows []struct {
		StoryID uint
		Count   int
	}
	err := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("story_id, COUNT(*) AS count").
		Where("story_id IN ?", ids).
		Group("story_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.StoryID] = r.Count
	}
	for i := range stories {
		stories[i].CommentCount = counts[stories[i].ID]
	}
	return nil
}

// Get returns a published story with its submitter.
func (s *StoryService) Get(ctx context.Context, id uint) (*models.Story, error) {
	var story models.Story
	err := s.db.WithContext(ctx).
		Preload("Submitter").
		Where("published = ?", true).
		First(&story, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// BySubmitter lists a user's published stories, newest first.
func (s *StoryService) BySubmitter(ctx context.Context, userID uint, limit int) ([]models.Story, error) {
	var stories []models.Story
	err := s.db.WithContext(ctx).
		Where("submitter_id = ? AND published = ?", userID, true).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&stories).Error
	return stories, err
}

// AddComment stores a comment on a published story.
func (s *StoryService) AddComment(ctx context.Context, user *models.User, storyID uint, text string) (*models.Comment, error) {
	if _, err := s.Get(ctx, storyID); err != nil {
		return nil, err
	}
	comment := &models.Comment{StoryID: storyID, UserID: user.ID, Text: text}
	if err := comment.Validate(); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit("Story", "User").Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment.User = *user
	s.invalidateLists()
	return comment, nil
}

// Comments lists a story's comments, most upvoted first.
func (s *StoryService) Comments(ctx context.Context, storyID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("story_id = ?", storyID).
		Order("points DESC, created_at ASC").
		Find(&comments).Error
	return comments, err
}

// GetComment loads a comment by id.
func (s *StoryService) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *StoryService) invalidateLists() {
	s.cache.DeletePrefix(listCachePrefix)
}

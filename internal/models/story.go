package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"turtlecrossing/internal/utils"
	"turtlecrossing/internal/voting"
)

var (
	ErrStoryTitle   = errors.New("a story needs a title of 127 characters or fewer")
	ErrStoryNeither = errors.New("a story must include a URL or text")
	ErrStoryBoth    = errors.New("a story cannot include both a URL and text")
	ErrStoryURL     = errors.New("a story URL must be an absolute http or https URL")
)

// Story is a news story: either a link or a text post, never both.
type Story struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:127;not null" json:"title"`
	URL         string    `gorm:"size:2048;index;not null;default:''" json:"url"`
	Text        string    `gorm:"type:text" json:"text"`
	SubmittedAt time.Time `gorm:"not null;index" json:"submitted_at"`
	SubmitterID *uint     `gorm:"index" json:"submitter_id"`
	Submitter   *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"submitter,omitempty"`
	Published   bool      `gorm:"not null;index" json:"published"` // unset and the story disappears from the site
	Score       int       `gorm:"not null;default:0" json:"score"`
	Hotness     int       `gorm:"not null;default:0;index" json:"hotness"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Filled by queries, not stored
	CommentCount int `gorm:"-" json:"comment_count"`

	clock clockwork.Clock
}

// StoryVotes lets users vote stories up and down. Hotness is computed after
// score and reads it.
var StoryVotes = voting.Must(voting.New(&Story{}, voting.Scores("score", "hotness")))

func (s *Story) VotableType() string { return "story" }
func (s *Story) VotableID() uint { return s.ID }

// UseClock sets the clock hotness is measured against.
func (s *Story) UseClock(clock clockwork.Clock) { s.clock = clock }

func (s *Story) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock.Now()
}

func (s *Story) ComputeScore(name string, upvotes, downvotes int) (int, error) {
	switch name {
	case "score":
		return upvotes - downvotes, nil
	case "hotness":
		return utils.Hotness(s.Score, s.SubmittedAt, s.now()), nil
	}
	return 0, fmt.Errorf("story has no score %q", name)
}

func (s *Story) SetScore(name string, value int) error {
	switch name {
	case "score":
		s.Score = value
	case "hotness":
		s.Hotness = value
	default:
		return fmt.Errorf("story has no score %q", name)
	}
	return nil
}

// Domain is the host part of the story URL, or "" for text posts.
func (s *Story) Domain() string {
	if s.URL == "" {
		return ""
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

func (s *Story) IsLink() bool { return s.URL != "" }

func (s *Story) Validate() error {
	s.Title = strings.TrimSpace(s.Title)
	s.URL = strings.TrimSpace(s.URL)
	if s.Title == "" || utf8.RuneCountInString(s.Title) > 127 {
		return ErrStoryTitle
	}
	hasText := strings.TrimSpace(s.Text) != ""
	if s.URL == "" && !hasText {
		return ErrStoryNeither
	}
	if s.URL != "" && hasText {
		return ErrStoryBoth
	}
	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrStoryURL
		}
	}
	return nil
}

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"turtlecrossing/internal/voting"
)

var ErrEmptyComment = errors.New("a comment cannot be empty")

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StoryID   uint      `gorm:"not null;index" json:"story_id"`
	Story     Story     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentVotes only takes upvotes; points is the upvote count.
var CommentVotes = voting.Must(voting.New(&Comment{}, voting.DisallowDownvotes(), voting.Score("points")))

func (c *Comment) VotableType() string { return "comment" }
func (c *Comment) VotableID() uint { return c.ID }

func (c *Comment) ComputeUpvoteScore(name string, upvotes int) (int, error) {
	if name != "points" {
		return 0, fmt.Errorf("comment has no score %q", name)
	}
	return upvotes, nil
}

func (c *Comment) SetScore(name string, value int) error {
	if name != "points" {
		return fmt.Errorf("comment has no score %q", name)
	}
	c.Points = value
	return nil
}

func (c *Comment) Validate() error {
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return ErrEmptyComment
	}
	return nil
}

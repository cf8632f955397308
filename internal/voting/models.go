package voting

import (
	"errors"
	"fmt"
	"time"
)

const (
	ReasonLength     = 32
	ClassifierLength = 32
)

var ErrInvalidReason = errors.New("voting: invalid vote reason")

// VoteReason is a selectable reason for voting on a content type, such as
// "+1 Insightful" or "-1 Offensive". Votes keep the reason as plain text
// instead of a foreign key so reasons can be loaded from fixtures and change
// over time; votes are checked against the valid reasons when placed.
type VoteReason struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ContentType string    `gorm:"size:64;not null;uniqueIndex:idx_vote_reasons_type_reason,priority:1;index:idx_vote_reasons_lookup,priority:1" json:"content_type"`
	Direction   int8      `gorm:"not null;index:idx_vote_reasons_lookup,priority:2" json:"direction"` // 1 or -1
	Reason      string    `gorm:"size:32;not null;default:'';uniqueIndex:idx_vote_reasons_type_reason,priority:2;index:idx_vote_reasons_lookup,priority:3" json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r *VoteReason) Validate() error {
	if r.ContentType == "" {
		return fmt.Errorf("%w: content type is required", ErrInvalidReason)
	}
	if !Direction(r.Direction).Valid() {
		return fmt.Errorf("%w: direction must be +1 or -1, got %d", ErrInvalidReason, r.Direction)
	}
	if len([]rune(r.Reason)) > ReasonLength {
		return fmt.Errorf("%w: reason %q is longer than %d characters", ErrInvalidReason, r.Reason, ReasonLength)
	}
	return nil
}

// Description renders the reason the way it is offered to voters.
func (r VoteReason) Description() string {
	if r.Reason == "" {
		return Direction(r.Direction).String()
	}
	return Direction(r.Direction).String() + " " + r.Reason
}

func (r VoteReason) String() string {
	return r.Description() + " for " + r.ContentType
}

// Vote is one user's stance on one item. The item is referenced by its
// content type and object id, so any registered type can be voted on.
type Vote struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_votes_user_item,priority:1" json:"user_id"`
	ContentType string    `gorm:"size:64;not null;uniqueIndex:idx_votes_user_item,priority:2;index:idx_votes_tally,priority:1" json:"content_type"`
	ObjectID    uint      `gorm:"not null;uniqueIndex:idx_votes_user_item,priority:3;index:idx_votes_tally,priority:2" json:"object_id"`
	Direction   int8      `gorm:"not null;index:idx_votes_tally,priority:4" json:"direction"` // 1 or -1
	Reason      string    `gorm:"size:32;not null;default:''" json:"reason"`
	PlacedAt    time.Time `gorm:"not null" json:"placed_at"`
	Effective   bool      `gorm:"not null;index:idx_votes_tally,priority:3" json:"effective"` // false: kept for display, not counted
	Classifier  string    `gorm:"size:32;not null;default:''" json:"classifier"`              // moderation metadata
}

func (v Vote) String() string {
	dir := Direction(v.Direction).String()
	if v.Reason != "" {
		dir += " " + v.Reason
	}
	return fmt.Sprintf("user %d's %s to %s %d", v.UserID, dir, v.ContentType, v.ObjectID)
}

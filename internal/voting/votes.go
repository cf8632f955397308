package voting

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Votes is the vote façade of a single item. It holds no vote state of its
// own; every call reads or writes through the type's Store.
type Votes struct {
	engine   *Engine
	settings *Settings
	item     Item
}

func (v *Votes) Item() Item { return v.item }

func (v *Votes) Settings() *Settings { return v.settings }

func (v *Votes) store() *Store { return v.settings.store }

func (v *Votes) db(ctx context.Context) *gorm.DB { return v.engine.db.WithContext(ctx) }

// Reasons lists the reasons a user may pick when voting on the item.
func (v *Votes) Reasons(ctx context.Context) ([]VoteReason, error) {
	return v.settings.Reasons(ctx)
}

// GetUserVote returns the user's vote on the item, or nil.
func (v *Votes) GetUserVote(ctx context.Context, userID uint) (*Vote, error) {
	return v.store().GetUserVote(v.db(ctx), v.settings.contentType, v.item.VotableID(), userID)
}

// Query returns a query over every vote on the item, including ineffective ones.
func (v *Votes) Query(ctx context.Context) *gorm.DB {
	return v.store().ForItem(v.db(ctx), v.settings.contentType, v.item.VotableID())
}

// GetVoteCounts counts the effective votes on the item. The downvote count
// is always 0 for types that disallow downvotes.
func (v *Votes) GetVoteCounts(ctx context.Context) (up, down int, err error) {
	return v.countVotes(v.db(ctx))
}

func (v *Votes) countVotes(db *gorm.DB) (up, down int, err error) {
	up, down, err = v.store().CountVotes(db, v.settings.contentType, v.item.VotableID())
	if err != nil {
		return 0, 0, err
	}
	if !v.settings.downvotesAllowed {
		down = 0
	}
	return up, down, nil
}

// GetReasonObject finds the valid reason matching direction and text
// exactly, or returns nil.
func (v *Votes) GetReasonObject(ctx context.Context, dir Direction, reason string) (*VoteReason, error) {
	if err := checkDirection(dir); err != nil {
		return nil, err
	}
	reasons, err := v.Reasons(ctx)
	if err != nil {
		return nil, err
	}
	for i := range reasons {
		if Direction(reasons[i].Direction) == dir && reasons[i].Reason == reason {
			return &reasons[i], nil
		}
	}
	return nil, nil
}

// AddVote places the user's vote on the item, or changes the vote already
// placed. Effective and Classifier of an existing vote are kept. The item's
// scores are recomputed and saved in the same transaction as the vote.
func (v *Votes) AddVote(ctx context.Context, userID uint, dir Direction, reason string) (*Vote, error) {
	ct := v.settings.contentType
	match, err := v.GetReasonObject(ctx, dir, reason)
	if err != nil {
		return nil, err
	}
	if match == nil {
		desc := ReasonSeed{dir, reason}.VoteReason(ct).Description()
		return nil, fmt.Errorf("%w: %q is not a valid reason for %s", ErrInvalidVote, desc, ct)
	}

	vote, err := v.GetUserVote(ctx, userID)
	if err != nil {
		return nil, err
	}
	isNew := vote == nil
	action := ActionChange
	var previous Direction
	if isNew {
		action = ActionAdd
		vote = &Vote{
			UserID:      userID,
			ContentType: ct,
			ObjectID:    v.item.VotableID(),
			Effective:   true,
		}
	} else {
		previous = Direction(vote.Direction)
	}
	vote.Direction = int8(dir)
	vote.Reason = reason
	vote.PlacedAt = v.engine.clock.Now()

	ev := VoteEvent{Item: v.item, Vote: vote, New: isNew, Previous: previous}
	if err := v.engine.hooks.fireBeforeVote(ctx, ev); err != nil {
		v.engine.observer.VoteRecorded(ct, action, err)
		return nil, err
	}

	err = v.commit(ctx, func(tx *gorm.DB) error {
		return v.store().Save(tx, vote)
	})
	v.engine.observer.VoteRecorded(ct, action, err)
	if err != nil {
		return nil, err
	}

	v.engine.hooks.fireAfterVote(ctx, ev)
	return vote, nil
}

// RemoveVote deletes the user's vote on the item. It does nothing if the
// user has not voted.
func (v *Votes) RemoveVote(ctx context.Context, userID uint) error {
	ct := v.settings.contentType
	vote, err := v.GetUserVote(ctx, userID)
	if err != nil {
		return err
	}
	if vote == nil {
		return nil
	}

	ev := RemoveEvent{Item: v.item, Vote: vote}
	if err := v.engine.hooks.fireBeforeRemove(ctx, ev); err != nil {
		v.engine.observer.VoteRecorded(ct, ActionRemove, err)
		return err
	}

	err = v.commit(ctx, func(tx *gorm.DB) error {
		return v.store().Delete(tx, vote)
	})
	v.engine.observer.VoteRecorded(ct, ActionRemove, err)
	if err != nil {
		return err
	}

	v.engine.hooks.fireAfterRemove(ctx, ev)
	return nil
}

// UpdateScores recomputes every declared score on the in-memory item, in
// declared order, and returns the new values. It does not save the item.
func (v *Votes) UpdateScores(ctx context.Context) (map[string]int, error) {
	return v.updateScores(v.db(ctx))
}

func (v *Votes) updateScores(db *gorm.DB) (map[string]int, error) {
	names := v.settings.scores
	result := make(map[string]int, len(names))
	if len(names) == 0 {
		return result, nil
	}
	ct := v.settings.contentType
	if c, ok := v.item.(Clocked); ok {
		c.UseClock(v.engine.clock)
	}
	up, down, err := v.countVotes(db)
	if err != nil {
		return nil, err
	}

	if v.settings.downvotesAllowed {
		scorer, ok := v.item.(Scorer)
		if !ok {
			return nil, configErrorf(ct, "%T does not implement voting.Scorer", v.item)
		}
		for _, name := range names {
			value, err := scorer.ComputeScore(name, up, down)
			if err != nil {
				return nil, fmt.Errorf("voting: compute %s score %q: %w", ct, name, err)
			}
			if err := scorer.SetScore(name, value); err != nil {
				return nil, err
			}
			result[name] = value
		}
		return result, nil
	}

	scorer, ok := v.item.(UpvoteScorer)
	if !ok {
		return nil, configErrorf(ct, "%T does not implement voting.UpvoteScorer", v.item)
	}
	for _, name := range names {
		value, err := scorer.ComputeUpvoteScore(name, up)
		if err != nil {
			return nil, fmt.Errorf("voting: compute %s score %q: %w", ct, name, err)
		}
		if err := scorer.SetScore(name, value); err != nil {
			return nil, err
		}
		result[name] = value
	}
	return result, nil
}

// RefreshScores reloads the item under a row lock, recomputes its scores
// from the stored votes and saves only the score columns.
func (v *Votes) RefreshScores(ctx context.Context) (map[string]int, error) {
	return v.transact(ctx, nil)
}

// commit runs write and the score update in one transaction.
func (v *Votes) commit(ctx context.Context, write func(tx *gorm.DB) error) error {
	_, err := v.transact(ctx, write)
	return err
}

// transact locks the item row, runs write, then recomputes the scores on a
// fresh copy of the item and updates the score columns alone. Concurrent
// votes on one item are serialized by the lock, so each recount sees every
// committed vote. When it fails, the item is reloaded so it does not keep
// scores that were never committed.
func (v *Votes) transact(ctx context.Context, write func(tx *gorm.DB) error) (map[string]int, error) {
	names := v.settings.scores
	hasScores := len(names) > 0
	var scores map[string]int
	err := v.db(ctx).Transaction(func(tx *gorm.DB) error {
		if hasScores {
			err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
				First(v.item).Error
			if err != nil {
				return fmt.Errorf("voting: lock %s %d: %w", v.settings.contentType, v.item.VotableID(), err)
			}
		}
		if write != nil {
			if err := write(tx); err != nil {
				return err
			}
		}
		if !hasScores {
			return nil
		}
		var err error
		if scores, err = v.updateScores(tx); err != nil {
			return err
		}
		return tx.Model(v.item).Select(names).UpdateColumns(v.item).Error
	})
	if err != nil && hasScores {
		if rerr := v.db(ctx).First(v.item).Error; rerr != nil {
			slog.Error("failed to reload item after rollback",
				"content_type", v.settings.contentType,
				"object_id", v.item.VotableID(),
				"error", rerr)
		}
		return nil, err
	}
	return scores, err
}

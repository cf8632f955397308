package voting

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Store persists Vote records in one table. Every call takes the *gorm.DB
// to run on so that writes can join the caller's transaction.
type Store struct {
	table string
}

func NewStore(table string) *Store {
	return &Store{table: table}
}

func (s *Store) Table() string { return s.table }

// Migrate creates or updates the store's table.
func (s *Store) Migrate(db *gorm.DB) error {
	return db.Table(s.table).AutoMigrate(&Vote{})
}

// GetUserVote returns the vote a user placed on an item, or nil if the user
// has not voted on it.
func (s *Store) GetUserVote(db *gorm.DB, contentType string, objectID, userID uint) (*Vote, error) {
	var votes []Vote
	err := db.Table(s.table).
		Where("content_type = ? AND object_id = ? AND user_id = ?", contentType, objectID, userID).
		Limit(1).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	if len(votes) == 0 {
		return nil, nil
	}
	return &votes[0], nil
}

// ForItem returns an unordered, unexecuted query over every vote on an item,
// effective or not.
func (s *Store) ForItem(db *gorm.DB, contentType string, objectID uint) *gorm.DB {
	return db.Table(s.table).Where("content_type = ? AND object_id = ?", contentType, objectID)
}

// CountVotes tallies effective votes on an item by direction.
func (s *Store) CountVotes(db *gorm.DB, contentType string, objectID uint) (up, down int, err error) {
	var rows []struct {
		Direction int8
		Votes     int
	}
	err = s.ForItem(db, contentType, objectID).
		Where("effective = ?", true).
		Select("direction, COUNT(*) AS votes").
		Group("direction").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		switch Direction(row.Direction) {
		case Up:
			up = row.Votes
		case Down:
			down = row.Votes
		}
	}
	return up, down, nil
}

// Save inserts a new vote or updates an existing one. A concurrent insert
// for the same user and item yields ErrVoteConflict.
func (s *Store) Save(db *gorm.DB, vote *Vote) error {
	var err error
	if vote.ID == 0 {
		err = db.Table(s.table).Create(vote).Error
	} else {
		err = db.Table(s.table).Save(vote).Error
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrVoteConflict, vote)
	}
	return err
}

func (s *Store) Delete(db *gorm.DB, vote *Vote) error {
	return db.Table(s.table).Delete(&Vote{}, vote.ID).Error
}

package voting

import "github.com/jonboulle/clockwork"

// Item is a persisted content object that can receive votes. The pair
// (VotableType, VotableID) must be stable for the lifetime of the item.
// Items are saved with gorm, so implementations are pointers to models.
type Item interface {
	VotableType() string
	VotableID() uint
}

// Scorer is implemented by items of types that allow downvotes and keep
// derived score columns. ComputeScore is called once per configured score,
// in declared order, and its result is handed back to SetScore.
type Scorer interface {
	Item
	ComputeScore(name string, upvotes, downvotes int) (int, error)
	SetScore(name string, value int) error
}

// UpvoteScorer is the Scorer counterpart for types without downvotes.
type UpvoteScorer interface {
	Item
	ComputeUpvoteScore(name string, upvotes int) (int, error)
	SetScore(name string, value int) error
}

// Clocked is implemented by items whose scores depend on the current time.
// The engine hands its clock to the item before computing scores.
type Clocked interface {
	UseClock(clock clockwork.Clock)
}

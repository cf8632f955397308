package models

import "turtlecrossing/internal/voting"

// Votables lists the voting configuration of every votable model.
func Votables() []*voting.Votable {
	return []*voting.Votable{StoryVotes, CommentVotes}
}

// RegisterVoting installs every votable model on the engine.
func RegisterVoting(engine *voting.Engine) error {
	for _, v := range Votables() {
		if err := engine.Register(v); err != nil {
			return err
		}
	}
	return nil
}

// All returns the models to migrate, in dependency order.
func All() []any {
	return []any{&User{}, &Story{}, &Comment{}, &KarmaLog{}}
}

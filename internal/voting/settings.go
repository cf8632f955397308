package voting

import "context"

// Settings is the resolved, per-type voting configuration. One is built
// lazily per content type and shared by every item of that type.
type Settings struct {
	contentType      string
	store            *Store
	voteModel        string
	downvotesAllowed bool
	useReasonModel   bool
	scores           []string
	defaults         []ReasonSeed
	registry         *Registry
}

func (s *Settings) ContentType() string { return s.contentType }
func (s *Settings) VoteModel() *Store { return s.store }
func (s *Settings) VoteModelName() string { return s.voteModel }
func (s *Settings) DownvotesAllowed() bool { return s.downvotesAllowed }
func (s *Settings) UseReasonModel() bool { return s.useReasonModel }

func (s *Settings) Scores() []string {
	return append([]string(nil), s.scores...)
}

func (s *Settings) DefaultReasons() []ReasonSeed {
	return append([]ReasonSeed(nil), s.defaults...)
}

// Reasons returns the stored reasons for the type, or the configured
// defaults when none are stored or the type does not use stored reasons.
func (s *Settings) Reasons(ctx context.Context) ([]VoteReason, error) {
	if s.useReasonModel {
		stored, err := s.registry.GetForType(ctx, s.contentType)
		if err != nil {
			return nil, err
		}
		if len(stored) > 0 {
			return stored, nil
		}
	}
	out := make([]VoteReason, len(s.defaults))
	for i, seed := range s.defaults {
		out[i] = seed.VoteReason(s.contentType)
	}
	return out, nil
}

package voting

// DefaultVoteModel names the store every Engine registers for the votes table.
const DefaultVoteModel = "vote"

// ReasonSeed is a (direction, label) pair offered when no reasons are stored
// for a content type.
type ReasonSeed struct {
	Direction Direction
	Reason    string
}

func (s ReasonSeed) VoteReason(contentType string) VoteReason {
	return VoteReason{ContentType: contentType, Direction: int8(s.Direction), Reason: s.Reason}
}

// Votable describes how a content type takes part in voting. Build one with
// New and install it on an Engine with Register.
type Votable struct {
	prototype        Item
	contentType      string
	voteModel        string
	downvotesAllowed bool
	useReasonModel   bool
	scores           []string
	defaults         []ReasonSeed
}

type Option func(*votableConfig)

type votableConfig struct {
	voteModel        string
	downvotesAllowed bool
	useReasonModel   bool
	seeds            []ReasonSeed
	seedsGiven       bool
	labels           []string
	labelsGiven      bool
	score            string
	scoreGiven       bool
	scores           []string
	scoresGiven      bool
}

// VoteModel selects the vote store registered on the engine under name.
func VoteModel(name string) Option {
	return func(c *votableConfig) { c.voteModel = name }
}

func DisallowDownvotes() Option {
	return func(c *votableConfig) { c.downvotesAllowed = false }
}

// WithoutReasonModel ignores stored reasons and always offers the defaults.
func WithoutReasonModel() Option {
	return func(c *votableConfig) { c.useReasonModel = false }
}

// Reasons sets the default reasons of a type that allows downvotes.
func Reasons(seeds ...ReasonSeed) Option {
	return func(c *votableConfig) {
		c.seeds = append(c.seeds, seeds...)
		c.seedsGiven = true
	}
}

// Labels sets the default reasons of an upvote-only type. Each label
// becomes a +1 reason.
func Labels(labels ...string) Option {
	return func(c *votableConfig) {
		c.labels = append(c.labels, labels...)
		c.labelsGiven = true
	}
}

func Score(name string) Option {
	return func(c *votableConfig) {
		c.score = name
		c.scoreGiven = true
	}
}

// Scores declares several score fields. They are recomputed in this order,
// so a later score may read an earlier one from the item.
func Scores(names ...string) Option {
	return func(c *votableConfig) {
		c.scores = append(c.scores, names...)
		c.scoresGiven = true
	}
}

// New validates a voting configuration for the prototype's content type.
func New(prototype Item, opts ...Option) (*Votable, error) {
	if prototype == nil {
		return nil, configErrorf("", "a votable needs a prototype item")
	}
	ct := prototype.VotableType()
	if ct == "" {
		return nil, configErrorf("", "prototype %T has an empty votable type", prototype)
	}

	cfg := votableConfig{
		voteModel:        DefaultVoteModel,
		downvotesAllowed: true,
		useReasonModel:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	v := &Votable{
		prototype:        prototype,
		contentType:      ct,
		voteModel:        cfg.voteModel,
		downvotesAllowed: cfg.downvotesAllowed,
		useReasonModel:   cfg.useReasonModel,
	}
	if v.voteModel == "" {
		return nil, configErrorf(ct, "vote model name is empty")
	}

	switch {
	case cfg.scoreGiven && cfg.scoresGiven:
		return nil, configErrorf(ct, "cannot specify both Score and Scores")
	case cfg.scoreGiven:
		v.scores = []string{cfg.score}
	case cfg.scoresGiven:
		v.scores = append([]string(nil), cfg.scores...)
	}
	seen := make(map[string]bool, len(v.scores))
	for _, name := range v.scores {
		if name == "" {
			return nil, configErrorf(ct, "score name is empty")
		}
		if seen[name] {
			return nil, configErrorf(ct, "score %q declared twice", name)
		}
		seen[name] = true
	}

	if v.downvotesAllowed {
		if cfg.labelsGiven {
			return nil, configErrorf(ct, "reasons must be (direction, label) pairs when downvotes are allowed")
		}
		if cfg.seedsGiven {
			for _, s := range cfg.seeds {
				if !s.Direction.Valid() {
					return nil, configErrorf(ct, "reason %q has direction %d; only +1 or -1 allowed", s.Reason, s.Direction)
				}
				if err := checkLabel(ct, s.Reason); err != nil {
					return nil, err
				}
			}
			v.defaults = append([]ReasonSeed(nil), cfg.seeds...)
		} else {
			v.defaults = []ReasonSeed{{Up, ""}, {Down, ""}}
		}
	} else {
		if cfg.seedsGiven {
			return nil, configErrorf(ct, "reasons must be plain labels when downvotes are disallowed")
		}
		if cfg.labelsGiven {
			for _, label := range cfg.labels {
				if err := checkLabel(ct, label); err != nil {
					return nil, err
				}
				v.defaults = append(v.defaults, ReasonSeed{Up, label})
			}
		} else {
			v.defaults = []ReasonSeed{{Up, ""}}
		}
	}

	if len(v.scores) > 0 {
		if v.downvotesAllowed {
			if _, ok := prototype.(Scorer); !ok {
				return nil, configErrorf(ct, "%T must implement voting.Scorer to keep scores %v", prototype, v.scores)
			}
		} else if _, ok := prototype.(UpvoteScorer); !ok {
			return nil, configErrorf(ct, "%T must implement voting.UpvoteScorer to keep scores %v", prototype, v.scores)
		}
	}

	return v, nil
}

// Must is like New but panics on a configuration error. It is meant for
// package-level descriptors.
func Must(v *Votable, err error) *Votable {
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Votable) ContentType() string { return v.contentType }

func checkLabel(ct, label string) error {
	if len([]rune(label)) > ReasonLength {
		return configErrorf(ct, "reason %q is longer than %d characters", label, ReasonLength)
	}
	return nil
}

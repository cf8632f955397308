package voting

import (
	"errors"
	"fmt"
)

var (
	// ErrImproperlyConfigured is matched by every configuration failure.
	ErrImproperlyConfigured = errors.New("voting: improperly configured")
	// ErrInvalidVote means the caller supplied a bad direction or reason.
	ErrInvalidVote = errors.New("voting: invalid vote")
	// ErrNotVotable means a content type was used without a voting configuration.
	ErrNotVotable = errors.New("voting: content type is not votable")
	// ErrVoteConflict is returned when another writer created the same
	// (user, item) vote first.
	ErrVoteConflict = errors.New("voting: conflicting vote for user and item")
)

// ConfigError describes a malformed Votable configuration.
type ConfigError struct {
	ContentType string
	Msg         string
}

func (e *ConfigError) Error() string {
	if e.ContentType == "" {
		return "voting: " + e.Msg
	}
	return fmt.Sprintf("voting: %s: %s", e.ContentType, e.Msg)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrImproperlyConfigured
}

// NotVotableError is returned when asking about a content type that was never
// registered with the engine. It is a programming error rather than bad input.
type NotVotableError struct {
	ContentType string
}

func (e *NotVotableError) Error() string {
	return fmt.Sprintf("voting: content type %q has no voting configuration", e.ContentType)
}

func (e *NotVotableError) Is(target error) bool {
	return target == ErrNotVotable || target == ErrImproperlyConfigured
}

func configErrorf(contentType, format string, args ...any) *ConfigError {
	return &ConfigError{ContentType: contentType, Msg: fmt.Sprintf(format, args...)}
}

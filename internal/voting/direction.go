package voting

import (
	"fmt"
	"strconv"
)

// Direction is the polarity of a vote.
type Direction int8

const (
	Up   Direction = 1
	Down Direction = -1
)

func (d Direction) Valid() bool {
	return d == Up || d == Down
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "+1"
	case Down:
		return "-1"
	}
	return strconv.Itoa(int(d))
}

// ParseDirection accepts the textual forms "+1", "1" and "-1".
func ParseDirection(s string) (Direction, error) {
	n, err := strconv.Atoi(s)
	if err != nil || (n != 1 && n != -1) {
		return 0, fmt.Errorf("%w: only +1 or -1 can be directions, got %q", ErrInvalidVote, s)
	}
	return Direction(n), nil
}

func checkDirection(d Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: only +1 or -1 can be directions, got %d", ErrInvalidVote, d)
	}
	return nil
}

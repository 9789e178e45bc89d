package spaced_repetition

import (
	"encoding"
	"fmt"
	"strings"
)

// Rating is the learner's self-assessed recall difficulty
type Rating string

const (
	// Easy means the answer came without effort
	Easy Rating = "easy"
	// Medium means the answer was recalled with some effort
	Medium Rating = "medium"
	// Hard means the answer was not recalled or barely recalled
	Hard Rating = "hard"
)

var (
	_ fmt.Stringer             = Rating("")
	_ encoding.TextMarshaler   = Rating("")
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// Ratings lists the valid ratings from easiest to hardest
func Ratings() []Rating {
	return []Rating{Easy, Medium, Hard}
}

// ParseRating converts user input such as "Easy" or " hard " into a Rating
func ParseRating(s string) (Rating, error) {
	r := Rating(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// IsValid reports whether r is one of Easy, Medium or Hard
func (r Rating) IsValid() bool {
	switch r {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

func (r Rating) String() string {
	return string(r)
}

// MarshalText implements encoding.TextMarshaler
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRating, string(r))
	}
	return []byte(r), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Rating) UnmarshalText(text []byte) error {
	parsed, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

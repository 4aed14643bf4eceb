// Package timezone converts instants between the ambient clock and the bot's
// single fixed display offset, parses deadline input and breaks durations
// down for display.
package timezone

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// InputLayout is the only accepted deadline input format.
const InputLayout = "2006-01-02 15:04"

// ErrInvalidFormat is returned for deadline input that does not match
// InputLayout or does not denote a real date and time.
var ErrInvalidFormat = errors.New("invalid deadline format")

var inputPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)

// Normalizer applies the fixed display offset. The zero value is not usable;
// construct it with NewNormalizer.
type Normalizer struct {
	offset time.Duration
	clock  func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock replaces the ambient clock, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(n *Normalizer) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// NewNormalizer returns a Normalizer that shifts instants by offsetHours.
func NewNormalizer(offsetHours int, opts ...Option) *Normalizer {
	n := &Normalizer{
		offset: time.Duration(offsetHours) * time.Hour,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ToDisplayInstant shifts t by the display offset. Every instant written to
// the store and every "now" used as a query boundary passes through here.
func (n *Normalizer) ToDisplayInstant(t time.Time) time.Time {
	return t.UTC().Add(n.offset)
}

// Now returns the current instant in the display frame.
func (n *Normalizer) Now() time.Time {
	return n.ToDisplayInstant(n.clock())
}

// ParseDeadlineInput parses text in InputLayout as a UTC wall-clock time.
func ParseDeadlineInput(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if !inputPattern.MatchString(text) {
		return time.Time{}, fmt.Errorf("%w: %q does not match YYYY-MM-DD HH:MM", ErrInvalidFormat, text)
	}

	t, err := time.ParseInLocation(InputLayout, text, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return t, nil
}

// Render formats a stored display-frame instant the way it was entered.
func (n *Normalizer) Render(stored time.Time) string {
	return stored.UTC().Add(-n.offset).Format(InputLayout)
}

package timezone

import (
	"fmt"
	"strings"
	"time"
)

const (
	msPerSecond = int64(time.Second / time.Millisecond)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Breakdown is the time left until a deadline. A day is always 24 hours.
type Breakdown struct {
	Elapsed bool

	Days    int64
	Hours   int64
	Minutes int64
	Seconds int64
}

// Remaining computes the breakdown from now until target. When target is not
// after now the result has Elapsed set and all units zero.
func Remaining(target, now time.Time) Breakdown {
	diff := target.Sub(now).Milliseconds()
	if diff <= 0 {
		return Breakdown{Elapsed: true}
	}

	b := Breakdown{Days: diff / msPerDay}
	diff %= msPerDay
	b.Hours = diff / msPerHour
	diff %= msPerHour
	b.Minutes = diff / msPerMinute
	diff %= msPerMinute
	b.Seconds = diff / msPerSecond
	return b
}

// IsZero reports whether every unit is zero. Less than a second left is
// zero but not elapsed.
func (b Breakdown) IsZero() bool {
	return b.Days == 0 && b.Hours == 0 && b.Minutes == 0 && b.Seconds == 0
}

// String renders the non-zero units, largest first. It returns "" for the
// elapsed sentinel and for an all-zero breakdown; callers handle both.
func (b Breakdown) String() string {
	if b.Elapsed {
		return ""
	}

	parts := make([]string, 0, 4)
	for _, u := range []struct {
		value int64
		name  string
	}{
		{b.Days, "day"},
		{b.Hours, "hour"},
		{b.Minutes, "minute"},
		{b.Seconds, "second"},
	} {
		if u.value == 0 {
			continue
		}
		unit := u.name
		if u.value != 1 {
			unit += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", u.value, unit))
	}
	return strings.Join(parts, ", ")
}

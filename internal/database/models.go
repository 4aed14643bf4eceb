package database

import (
	"errors"
	"fmt"
	"time"
)

// instantLayout is fixed width and always UTC, so string comparison in SQL
// matches chronological order.
const instantLayout = "2006-01-02T15:04:05.000Z"

// ErrInstantOutOfRange is returned for instants whose UTC year does not fit
// the four digits of instantLayout.
var ErrInstantOutOfRange = errors.New("instant outside storable range")

// StorableInstant reports whether t can be written and read back without
// breaking the lexicographic order of due_at.
func StorableInstant(t time.Time) bool {
	y := t.UTC().Year()
	return y >= 0 && y <= 9999
}

// Deadline is the sole persisted entity. DueAt is an absolute instant that
// has already been shifted into the display frame by the caller.
type Deadline struct {
	ID    int64
	Owner string
	Title string
	DueAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// deadlineRow mirrors the deadlines table; instants are ISO-8601 text.
type deadlineRow struct {
	ID        int64  `db:"id"`
	Owner     string `db:"owner"`
	Title     string `db:"title"`
	DueAt     string `db:"due_at"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(instantLayout, s)
	if err != nil {
		// Rows written by other tools may carry a full RFC 3339 value.
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("invalid stored instant %q: %w", s, err)
	}
	return t, nil
}

func (r deadlineRow) toDeadline() (Deadline, error) {
	dueAt, err := parseInstant(r.DueAt)
	if err != nil {
		return Deadline{}, err
	}
	createdAt, err := parseInstant(r.CreatedAt)
	if err != nil {
		return Deadline{}, err
	}
	updatedAt, err := parseInstant(r.UpdatedAt)
	if err != nil {
		return Deadline{}, err
	}
	return Deadline{
		ID:        r.ID,
		Owner:     r.Owner,
		Title:     r.Title,
		DueAt:     dueAt,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// toDeadlines decodes rows, calling skip for each row that cannot be decoded
// instead of failing the batch.
func toDeadlines(rows []deadlineRow, skip func(r deadlineRow, err error)) []Deadline {
	out := make([]Deadline, 0, len(rows))
	for _, r := range rows {
		d, err := r.toDeadline()
		if err != nil {
			skip(r, err)
			continue
		}
		out = append(out, d)
	}
	return out
}

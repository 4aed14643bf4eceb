// Package deadlines is the boundary between the command dispatcher and the
// deadline store. It owns input parsing, the display offset and the listing
// windows so handlers never touch raw instants.
package deadlines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/deadlinebot/internal/database"
	"github.com/edgard/deadlinebot/internal/timezone"
)

// ErrEmptyTitle is returned when a deadline title is blank after trimming.
var ErrEmptyTitle = errors.New("deadline title is empty")

// Service implements the deadline operations the dispatcher relies on.
type Service struct {
	store      database.Store
	normalizer *timezone.Normalizer
	window     time.Duration
	authors    []int64
	timePassed string
	logger     *slog.Logger
}

// Config carries the Service settings taken from configuration.
type Config struct {
	WindowDays int
	AuthorIDs  []int64
	// TimePassed is shown instead of the remaining time once a deadline is due.
	TimePassed string
}

// NewService builds a Service.
func NewService(store database.Store, normalizer *timezone.Normalizer, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	timePassed := cfg.TimePassed
	if timePassed == "" {
		timePassed = "Time passed"
	}
	return &Service{
		store:      store,
		normalizer: normalizer,
		window:     time.Duration(cfg.WindowDays) * 24 * time.Hour,
		authors:    slices.Clone(cfg.AuthorIDs),
		timePassed: timePassed,
		logger:     logger.With("component", "deadlines"),
	}
}

// Render formats a stored due date the way its author typed it.
func (s *Service) Render(dueAt time.Time) string {
	return s.normalizer.Render(dueAt)
}

// WindowDays returns the listing window length in days.
func (s *Service) WindowDays() int {
	return int(s.window / (24 * time.Hour))
}

// IsAuthor reports whether owner may mutate deadlines.
func (s *Service) IsAuthor(owner int64) bool {
	return slices.Contains(s.authors, owner)
}

// parse validates the title and converts rawDate into a storable instant.
func (s *Service) parse(title, rawDate string) (string, time.Time, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", time.Time{}, ErrEmptyTitle
	}

	parsed, err := timezone.ParseDeadlineInput(rawDate)
	if err != nil {
		return "", time.Time{}, err
	}

	dueAt := s.normalizer.ToDisplayInstant(parsed)
	if !database.StorableInstant(dueAt) {
		return "", time.Time{}, fmt.Errorf("%w: %q is out of range", timezone.ErrInvalidFormat, rawDate)
	}
	return title, dueAt, nil
}

// Add creates a deadline owned by owner and returns its id.
func (s *Service) Add(ctx context.Context, owner int64, title, rawDate string) (int64, error) {
	title, dueAt, err := s.parse(title, rawDate)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreateDeadline(ctx, strconv.FormatInt(owner, 10), title, dueAt)
	if err != nil {
		return 0, fmt.Errorf("add deadline: %w", err)
	}

	s.logger.InfoContext(ctx, "Deadline added", "deadline_id", id, "owner", owner)
	return id, nil
}

// Modify overwrites the title and due date of deadline id. A missing id is
// acknowledged like an existing one.
func (s *Service) Modify(ctx context.Context, id int64, title, rawDate string) error {
	title, dueAt, err := s.parse(title, rawDate)
	if err != nil {
		return err
	}

	if err := s.store.UpdateDeadline(ctx, id, title, dueAt); err != nil {
		return fmt.Errorf("modify deadline: %w", err)
	}

	s.logger.InfoContext(ctx, "Deadline modified", "deadline_id", id)
	return nil
}

// Remove deletes deadline id. Removing a missing id succeeds.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if err := s.store.DeleteDeadline(ctx, id); err != nil {
		return fmt.Errorf("remove deadline: %w", err)
	}

	s.logger.InfoContext(ctx, "Deadline removed", "deadline_id", id)
	return nil
}

// Get returns deadline id or nil when it does not exist. Handlers use it for
// confirmation text only.
func (s *Service) Get(ctx context.Context, id int64) (*database.Deadline, error) {
	return s.store.GetDeadline(ctx, id)
}

// ListRange returns deadlines due in [from, to]. Both bounds are display-frame
// instants.
func (s *Service) ListRange(ctx context.Context, from, to time.Time) ([]database.Deadline, error) {
	return s.store.ListDeadlinesInRange(ctx, from, to)
}

// LastWindow lists deadlines due during the past window.
func (s *Service) LastWindow(ctx context.Context) ([]database.Deadline, error) {
	now := s.normalizer.Now()
	return s.ListRange(ctx, now.Add(-s.window), now)
}

// NextWindow lists deadlines due during the coming window.
func (s *Service) NextWindow(ctx context.Context) ([]database.Deadline, error) {
	now := s.normalizer.Now()
	return s.ListRange(ctx, now, now.Add(s.window))
}

// Overdue lists every deadline that is due now or earlier.
func (s *Service) Overdue(ctx context.Context) ([]database.Deadline, error) {
	return s.store.ListOverdueDeadlines(ctx, s.normalizer.Now())
}

// All lists every stored deadline.
func (s *Service) All(ctx context.Context) ([]database.Deadline, error) {
	return s.store.ListAllDeadlines(ctx)
}

// Describe renders one deadline for a listing, e.g.
// "#3 Report - 2024-05-01 10:00 (time left: 2 days, 4 hours)".
func (s *Service) Describe(d database.Deadline, now time.Time) string {
	left := timezone.Remaining(d.DueAt, now)

	var remaining string
	switch {
	case left.Elapsed:
		remaining = s.timePassed
	case left.IsZero():
		remaining = "less than a second"
	default:
		remaining = left.String()
	}

	return fmt.Sprintf("#%d %s - %s (time left: %s)", d.ID, d.Title, s.normalizer.Render(d.DueAt), remaining)
}

// DescribeAll renders a listing with one line per deadline, prefixed by header.
func (s *Service) DescribeAll(header string, rows []database.Deadline) string {
	now := s.normalizer.Now()

	var sb strings.Builder
	sb.WriteString(header)
	for _, d := range rows {
		sb.WriteString("\n")
		sb.WriteString(s.Describe(d, now))
	}
	return sb.String()
}

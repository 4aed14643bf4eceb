package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrStorage wraps every persistence failure returned by the Store.
var ErrStorage = errors.New("storage error")

// Store defines the deadline persistence operations.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateDeadline inserts a new deadline and returns its id.
	CreateDeadline(ctx context.Context, owner, title string, dueAt time.Time) (int64, error)

	// UpdateDeadline overwrites title and due date. A missing id is not an error.
	UpdateDeadline(ctx context.Context, id int64, title string, dueAt time.Time) error

	// DeleteDeadline removes a deadline. A missing id is not an error.
	DeleteDeadline(ctx context.Context, id int64) error

	// GetDeadline returns the deadline with the given id, or nil, nil if not found.
	GetDeadline(ctx context.Context, id int64) (*Deadline, error)

	// ListDeadlinesInRange returns deadlines due in [from, to], in insertion order.
	ListDeadlinesInRange(ctx context.Context, from, to time.Time) ([]Deadline, error)

	// ListOverdueDeadlines returns deadlines due at or before cutoff.
	ListOverdueDeadlines(ctx context.Context, cutoff time.Time) ([]Deadline, error)

	// ListAllDeadlines returns every stored deadline, in insertion order.
	ListAllDeadlines(ctx context.Context) ([]Deadline, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

const selectDeadlineColumns = `SELECT id, owner, title, due_at, created_at, updated_at FROM deadlines`

// sqlxStore implements Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a Store backed by a connected sqlx.DB.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back unless fn and the commit succeed.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil
	return nil
}

// CreateDeadline inserts a new deadline row.
func (s *sqlxStore) CreateDeadline(ctx context.Context, owner, title string, dueAt time.Time) (int64, error) {
	if !StorableInstant(dueAt) {
		return 0, storageErr("create deadline", fmt.Errorf("%w: %s", ErrInstantOutOfRange, dueAt))
	}

	now := formatInstant(s.now())
	row := deadlineRow{
		Owner:     owner,
		Title:     title,
		DueAt:     formatInstant(dueAt),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.NamedExecContext(ctx, `
			INSERT INTO deadlines (owner, title, due_at, created_at, updated_at)
			VALUES (:owner, :title, :due_at, :created_at, :updated_at)`, row)
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create deadline", "owner", owner, "error", err)
		return 0, storageErr("create deadline", err)
	}

	s.logger.DebugContext(ctx, "Deadline created", "deadline_id", id, "owner", owner, "due_at", row.DueAt)
	return id, nil
}

// UpdateDeadline overwrites both mutable fields of a deadline.
func (s *sqlxStore) UpdateDeadline(ctx context.Context, id int64, title string, dueAt time.Time) error {
	if !StorableInstant(dueAt) {
		return storageErr(fmt.Sprintf("update deadline %d", id), fmt.Errorf("%w: %s", ErrInstantOutOfRange, dueAt))
	}

	var affected int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE deadlines SET title = ?, due_at = ?, updated_at = ? WHERE id = ?`,
			title, formatInstant(dueAt), formatInstant(s.now()), id)
		if err != nil {
			return err
		}
		affected, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update deadline", "deadline_id", id, "error", err)
		return storageErr(fmt.Sprintf("update deadline %d", id), err)
	}

	// Zero affected rows is reported as success; callers cannot tell the difference.
	s.logger.DebugContext(ctx, "Deadline update executed", "deadline_id", id, "rows_affected", affected)
	return nil
}

// DeleteDeadline removes a deadline by id.
func (s *sqlxStore) DeleteDeadline(ctx context.Context, id int64) error {
	var affected int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM deadlines WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete deadline", "deadline_id", id, "error", err)
		return storageErr(fmt.Sprintf("delete deadline %d", id), err)
	}

	s.logger.DebugContext(ctx, "Deadline delete executed", "deadline_id", id, "rows_affected", affected)
	return nil
}

// GetDeadline fetches one deadline by id. Returns nil, nil if not found.
func (s *sqlxStore) GetDeadline(ctx context.Context, id int64) (*Deadline, error) {
	var row deadlineRow
	err := s.db.GetContext(ctx, &row, selectDeadlineColumns+` WHERE id = ?`, id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No deadline found", "deadline_id", id)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting deadline", "deadline_id", id, "error", err)
		return nil, storageErr(fmt.Sprintf("get deadline %d", id), err)
	}

	d, err := row.toDeadline()
	if err != nil {
		return nil, storageErr(fmt.Sprintf("decode deadline %d", id), err)
	}
	return &d, nil
}

// ListDeadlinesInRange returns deadlines whose due_at lies in [from, to].
func (s *sqlxStore) ListDeadlinesInRange(ctx context.Context, from, to time.Time) ([]Deadline, error) {
	return s.selectDeadlines(ctx, "list deadlines in range",
		selectDeadlineColumns+` WHERE due_at BETWEEN ? AND ? ORDER BY id`,
		formatInstant(from), formatInstant(to))
}

// ListOverdueDeadlines returns deadlines whose due_at is at or before cutoff.
func (s *sqlxStore) ListOverdueDeadlines(ctx context.Context, cutoff time.Time) ([]Deadline, error) {
	return s.selectDeadlines(ctx, "list overdue deadlines",
		selectDeadlineColumns+` WHERE due_at <= ? ORDER BY id`,
		formatInstant(cutoff))
}

// ListAllDeadlines returns every deadline.
func (s *sqlxStore) ListAllDeadlines(ctx context.Context) ([]Deadline, error) {
	return s.selectDeadlines(ctx, "list all deadlines", selectDeadlineColumns+` ORDER BY id`)
}

func (s *sqlxStore) selectDeadlines(ctx context.Context, op, query string, args ...any) ([]Deadline, error) {
	var rows []deadlineRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "Context timeout or cancellation while querying deadlines", "op", op, "error", err)
		} else {
			s.logger.ErrorContext(ctx, "Error querying deadlines", "op", op, "error", err)
		}
		return nil, storageErr(op, err)
	}

	deadlines := toDeadlines(rows, func(r deadlineRow, err error) {
		s.logger.WarnContext(ctx, "Skipping undecodable deadline row", "op", op, "deadline_id", r.ID, "error", err)
	})

	s.logger.DebugContext(ctx, "Queried deadlines", "op", op, "count", len(deadlines))
	return deadlines, nil
}

// RunSQLMaintenance executes VACUUM and lets SQLite refresh its statistics.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return storageErr("maintenance", ctx.Err())
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return storageErr("maintenance (VACUUM) timed out", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return storageErr("execute VACUUM", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}

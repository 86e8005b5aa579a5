// Package store persists workflow task events to SQLite as an audit log.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/demml/potatohead-sub001/agent"
	"github.com/demml/potatohead-sub001/migrations"
	"github.com/demml/potatohead-sub001/workflow"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const eventsTable = "task_events"

// EventStore writes finished task events and reads them back by workflow.
// It implements workflow.EventSink.
type EventStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

var _ workflow.EventSink = (*EventStore)(nil)

// NewEventStore wraps an already migrated database.
func NewEventStore(db *sql.DB, logger zerolog.Logger) *EventStore {
	logger = logger.With().Str("component", "event_store").Logger()
	return &EventStore{db: db, logger: logger}
}

// Open opens the SQLite database at path, applies migrations and returns
// a store that owns the connection.
func Open(path string, logger zerolog.Logger) (*EventStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if err := migrations.RunMigrations(db, logger); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return NewEventStore(db, logger), nil
}

// Close closes the underlying database.
func (s *EventStore) Close() error {
	return s.db.Close()
}

func statementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder
}

func eventColumns() []string {
	return []string{
		"id", "workflow_id", "task_id", "status", "created_at",
		"updated_at", "duration_ms", "error", "details",
	}
}

// Record inserts ev, or updates the stored row when an event with the
// same id was recorded before.
func (s *EventStore) Record(ctx context.Context, ev workflow.TaskEvent) error {
	details, err := json.Marshal(ev.Details)
	if err != nil {
		return fmt.Errorf("encode event details: %w", err)
	}

	query := statementBuilder().
		Insert(eventsTable).
		Columns(eventColumns()...).
		Values(
			ev.ID, ev.WorkflowID, ev.TaskID, string(ev.Status),
			ev.CreatedAt.UnixNano(), ev.UpdatedAt.UnixNano(),
			ev.Details.Duration.Milliseconds(), nullString(ev.Details.Error), string(details),
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			duration_ms = excluded.duration_ms,
			error = excluded.error,
			details = excluded.details`)

	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		s.logger.Error().Err(err).Str("eventID", ev.ID).Str("taskID", ev.TaskID).Msg("Failed to record task event")
		return fmt.Errorf("record event %s: %w", ev.ID, err)
	}

	s.logger.Debug().
		Str("workflowID", ev.WorkflowID).
		Str("taskID", ev.TaskID).
		Str("status", string(ev.Status)).
		Msg("task event recorded")
	return nil
}

// ListEvents returns the events of one workflow run in creation order.
func (s *EventStore) ListEvents(ctx context.Context, workflowID string) ([]workflow.TaskEvent, error) {
	return s.list(ctx, sq.Eq{"workflow_id": workflowID})
}

// ListTaskEvents returns the attempts of one task in creation order.
func (s *EventStore) ListTaskEvents(ctx context.Context, workflowID, taskID string) ([]workflow.TaskEvent, error) {
	return s.list(ctx, sq.Eq{"workflow_id": workflowID, "task_id": taskID})
}

// CountByStatus counts the stored events of a run per status.
func (s *EventStore) CountByStatus(ctx context.Context, workflowID string) (map[agent.TaskStatus]int, error) {
	queryStr, args, err := statementBuilder().
		Select("status", "COUNT(*)").
		From(eventsTable).
		Where(sq.Eq{"workflow_id": workflowID}).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	out := make(map[agent.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[agent.TaskStatus(status)] = n
	}
	return out, rows.Err()
}

func (s *EventStore) list(ctx context.Context, where sq.Eq) ([]workflow.TaskEvent, error) {
	queryStr, args, err := statementBuilder().
		Select(eventColumns()...).
		From(eventsTable).
		Where(where).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	var events []workflow.TaskEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func scanEvent(rows *sql.Rows) (workflow.TaskEvent, error) {
	var (
		ev                   workflow.TaskEvent
		status, details      string
		created, updated, ms int64
		errMsg               sql.NullString
	)
	if err := rows.Scan(&ev.ID, &ev.WorkflowID, &ev.TaskID, &status, &created, &updated, &ms, &errMsg, &details); err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}
	if err := json.Unmarshal([]byte(details), &ev.Details); err != nil {
		return ev, fmt.Errorf("decode details of event %s: %w", ev.ID, err)
	}
	ev.Status = agent.TaskStatus(status)
	ev.CreatedAt = time.Unix(0, created).UTC()
	ev.UpdatedAt = time.Unix(0, updated).UTC()
	ev.Details.Error = errMsg.String
	return ev, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

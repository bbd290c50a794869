// Package audit provides the append-only audit log. Writes are best-effort
// by contract: a failed audit insert is logged server-side and swallowed so
// it can never fail the parent operation.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gatehouse-dev/gatehouse/internal/storage"
)

// Event statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusWarning = "warning"
)

// Event is one audit record. ProjectID is nil for system-wide events.
type Event struct {
	ProjectID   *string
	EventType   string
	EventStatus string
	UserID      *uuid.UUID
	AdminUserID *uuid.UUID
	IPAddress   string
	UserAgent   string
	EventData   map[string]any
}

// Entry is a stored audit row as returned by queries.
type Entry struct {
	ID          uuid.UUID       `json:"id"`
	ProjectID   *string         `json:"projectId"`
	EventType   string          `json:"eventType"`
	EventStatus string          `json:"eventStatus"`
	UserID      *uuid.UUID      `json:"userId"`
	AdminUserID *uuid.UUID      `json:"adminUserId"`
	IPAddress   *string         `json:"ipAddress"`
	UserAgent   *string         `json:"userAgent"`
	EventData   json.RawMessage `json:"eventData"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Filter selects audit rows for reads; zero values mean "any".
type Filter struct {
	ProjectID   string
	EventType   string
	UserID      *uuid.UUID
	AdminUserID *uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
	Offset      int
}

// Logger is the write-side capability handed to the engines.
type Logger interface {
	Log(ctx context.Context, event Event)
}

// DBLogger implements Logger on PostgreSQL, falling back to slog when the
// insert fails so the event is not lost entirely.
type DBLogger struct {
	db  storage.DBTX
	log *slog.Logger
}

func NewDBLogger(db storage.DBTX, log *slog.Logger) *DBLogger {
	return &DBLogger{db: db, log: log}
}

// Log appends one event. Errors are swallowed by design.
func (l *DBLogger) Log(ctx context.Context, event Event) {
	if event.EventStatus == "" {
		event.EventStatus = StatusSuccess
	}

	data, err := json.Marshal(event.EventData)
	if err != nil {
		l.log.Error("audit_event_data_marshal_failed", "error", err, "event_type", event.EventType)
		data = []byte("{}")
	}
	if event.EventData == nil {
		data = []byte("{}")
	}

	const query = `
		INSERT INTO audit_logs (project_id, event_type, event_status, user_id, admin_user_id, ip_address, user_agent, event_data)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`

	_, err = l.db.Exec(ctx, query,
		event.ProjectID, event.EventType, event.EventStatus,
		event.UserID, event.AdminUserID, event.IPAddress, event.UserAgent, data,
	)
	if err != nil {
		// Fallback: keep the event in the server log so it isn't lost entirely.
		l.log.Error("audit_db_insert_failed",
			"event_type", event.EventType,
			"event_status", event.EventStatus,
			"error", err,
		)
	}
}

// Query reads back audit rows matching the filter, newest first.
func (l *DBLogger) Query(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
		SELECT id, project_id, event_type, event_status, user_id, admin_user_id, ip_address, user_agent, event_data, created_at
		FROM audit_logs
		WHERE ($1 = '' OR project_id = $1)
		  AND ($2 = '' OR event_type = $2)
		  AND ($3::uuid IS NULL OR user_id = $3)
		  AND ($4::uuid IS NULL OR admin_user_id = $4)
		  AND ($5::timestamptz IS NULL OR created_at >= $5)
		  AND ($6::timestamptz IS NULL OR created_at <= $6)
		ORDER BY created_at DESC
		LIMIT $7 OFFSET $8`

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := l.db.Query(ctx, query,
		f.ProjectID, f.EventType, f.UserID, f.AdminUserID, f.StartDate, f.EndDate, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("audit_query_failed: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.ID, &e.ProjectID, &e.EventType, &e.EventStatus,
			&e.UserID, &e.AdminUserID, &e.IPAddress, &e.UserAgent, &e.EventData, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("audit_scan_failed: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NopLogger discards events; used in tests.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}

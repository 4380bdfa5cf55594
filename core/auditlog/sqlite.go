package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/novabehavior/abacore/core/model"
)

// SQLiteStore persists schedule events to a SQLite database. Filterable
// columns are stored alongside the full JSON record.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS schedule_events (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER,
        event_type TEXT,
        session_id TEXT,
        client_id TEXT,
        rbt_id TEXT,
        record TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Record inserts the event.
func (s *SQLiteStore) Record(ctx context.Context, ev model.ScheduleEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO schedule_events (ts, event_type, session_id, client_id, rbt_id, record) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Timestamp.UnixNano(), string(ev.Type), ev.SessionID, ev.ClientID, ev.RBTID, string(b))
	return err
}

// Query returns events matching q ordered by timestamp then insertion order.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]model.ScheduleEvent, error) {
	var args []any
	query := `SELECT record FROM schedule_events WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if len(q.Types) > 0 {
		query += ` AND event_type IN (`
		for i, t := range q.Types {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, string(t))
		}
		query += `)`
	}
	if q.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, q.SessionID)
	}
	if q.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, q.ClientID)
	}
	if q.RBTID != "" {
		query += ` AND rbt_id = ?`
		args = append(args, q.RBTID)
	}
	query += ` ORDER BY ts, id`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.ScheduleEvent
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev model.ScheduleEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

// AuditTrail returns the ordered events for one session, client or RBT.
func (s *SQLiteStore) AuditTrail(ctx context.Context, entity EntityType, id string, start, end time.Time) ([]model.ScheduleEvent, error) {
	q, err := trailQuery(entity, id, start, end)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, q)
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

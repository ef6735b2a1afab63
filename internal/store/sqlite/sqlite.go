package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"smsink/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS messages (
  message_id  TEXT PRIMARY KEY,
  from_msisdn TEXT NOT NULL,
  to_msisdn   TEXT NOT NULL,
  ts          TEXT NOT NULL,
  text        TEXT,
  created_at  TEXT NOT NULL
);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store.
// databaseURL is either a filesystem path or a sqlite:// URL pointing at one.
func New(databaseURL string) (*SQLiteStore, error) {
	path, err := databasePath(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Set connection pool limits. A single connection serializes writers and
	// doubles as the bounded execution context for blocking storage I/O:
	// callers queue on the pool and block only their own goroutine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStore{db: db}, nil
}

func databasePath(databaseURL string) (string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		databaseURL = strings.TrimPrefix(databaseURL, "sqlite://")
	case strings.HasPrefix(databaseURL, "sqlite:"):
		databaseURL = strings.TrimPrefix(databaseURL, "sqlite:")
	}
	if databaseURL == "" {
		return "", errors.New("empty database url")
	}
	return databaseURL, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks database reachability.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the messages table if it does not exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SchemaPresent reports whether the messages table exists.
func (s *SQLiteStore) SchemaPresent(ctx context.Context) (bool, error) {
	const query = `SELECT name FROM sqlite_master WHERE type='table' AND name='messages'`

	var name string
	err := s.db.QueryRowContext(ctx, query).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query schema: %w", err)
	}
	return true, nil
}

// Insert persists a message, assigning created_at at the moment of the
// attempt. A primary key collision leaves the existing row untouched and is
// reported as a duplicate outcome.
func (s *SQLiteStore) Insert(ctx context.Context, msg *store.Message) (store.InsertResult, error) {
	const query = `
		INSERT INTO messages (message_id, from_msisdn, to_msisdn, ts, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	msg.CreatedAt = utcNow()

	_, err := s.db.ExecContext(ctx, query,
		msg.MessageID,
		msg.FromMSISDN,
		msg.ToMSISDN,
		msg.TS,
		msg.Text,
		msg.CreatedAt,
	)
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) &&
			(sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return store.InsertResult{Duplicate: true}, nil
		}
		return store.InsertResult{}, fmt.Errorf("insert message: %w", err)
	}

	return store.InsertResult{}, nil
}

// List returns one page of messages plus the total filtered count.
func (s *SQLiteStore) List(ctx context.Context, q store.Query) (*store.Page, error) {
	whereSQL, args := buildFilters(q)

	var total int
	countQuery := `SELECT COUNT(*) FROM messages` + whereSQL
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	listQuery := `
		SELECT message_id, from_msisdn, to_msisdn, ts, text, created_at
		FROM messages` + whereSQL + `
		ORDER BY ts ASC, message_id ASC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, listQuery, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, q.Limit)
	for rows.Next() {
		var msg store.Message
		var text sql.NullString
		if err := rows.Scan(
			&msg.MessageID,
			&msg.FromMSISDN,
			&msg.ToMSISDN,
			&msg.TS,
			&text,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if text.Valid {
			msg.Text = &text.String
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return &store.Page{Messages: messages, Total: total}, nil
}

func buildFilters(q store.Query) (string, []any) {
	var where []string
	var args []any

	if q.From != "" {
		where = append(where, "from_msisdn = ?")
		args = append(args, q.From)
	}
	if q.Since != "" {
		where = append(where, "ts >= ?")
		args = append(args, q.Since)
	}
	if q.Text != nil {
		// Absent text counts as empty string for the substring match.
		where = append(where, "LOWER(COALESCE(text,'')) LIKE ?")
		args = append(args, "%"+strings.ToLower(*q.Text)+"%")
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// Stats aggregates counts, the top senders and the ts range.
func (s *SQLiteStore) Stats(ctx context.Context) (*store.Stats, error) {
	var st store.Stats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.TotalMessages); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT from_msisdn) FROM messages`).Scan(&st.SendersCount); err != nil {
		return nil, fmt.Errorf("count senders: %w", err)
	}

	const topQuery = `
		SELECT from_msisdn, COUNT(*) AS c
		FROM messages
		GROUP BY from_msisdn
		ORDER BY c DESC
		LIMIT 10
	`
	rows, err := s.db.QueryContext(ctx, topQuery)
	if err != nil {
		return nil, fmt.Errorf("query top senders: %w", err)
	}
	defer rows.Close()

	st.PerSender = make([]store.SenderCount, 0, 10)
	for rows.Next() {
		var sc store.SenderCount
		if err := rows.Scan(&sc.From, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan sender count: %w", err)
		}
		st.PerSender = append(st.PerSender, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top senders: %w", err)
	}

	var minTS, maxTS sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(ts), MAX(ts) FROM messages`).Scan(&minTS, &maxTS); err != nil {
		return nil, fmt.Errorf("query ts range: %w", err)
	}
	if minTS.Valid {
		st.FirstTS = &minTS.String
	}
	if maxTS.Valid {
		st.LastTS = &maxTS.String
	}

	return &st, nil
}

func utcNow() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)

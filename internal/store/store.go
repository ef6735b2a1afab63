package store

import "context"

// Message is a persisted webhook message. Rows are immutable after creation.
type Message struct {
	MessageID  string
	FromMSISDN string
	ToMSISDN   string
	TS         string
	Text       *string
	CreatedAt  string // assigned by the store at insert time, UTC ISO-8601 with Z
}

// InsertResult reports the outcome of an idempotent insert.
type InsertResult struct {
	// Duplicate is true when a row with the same message id already existed.
	// The stored row is left untouched in that case.
	Duplicate bool
}

// Query holds filter and pagination parameters for listing messages.
// Filters combine with logical AND.
type Query struct {
	Limit  int
	Offset int
	From   string  // exact sender match when non-empty
	Since  string  // ts >= Since when non-empty
	Text   *string // case-insensitive substring on text when present
}

// Page is one slice of the filtered message set.
type Page struct {
	Messages []*Message
	// Total is the size of the full filtered set, independent of limit/offset.
	Total int
}

// SenderCount pairs a sender with its message count.
type SenderCount struct {
	From  string
	Count int
}

// Stats aggregates over all persisted messages.
type Stats struct {
	TotalMessages int
	SendersCount  int
	PerSender     []SenderCount // up to 10 most frequent senders, descending
	FirstTS       *string       // nil when no rows
	LastTS        *string
}

// MessageStore handles message persistence.
type MessageStore interface {
	// EnsureSchema creates the messages table if absent. Safe on every startup.
	EnsureSchema(ctx context.Context) error

	// SchemaPresent reports whether the messages table exists. Absence is
	// reported as false, not as an error.
	SchemaPresent(ctx context.Context) (bool, error)

	// Insert persists a message exactly once, assigning CreatedAt at the
	// moment of the attempt. A primary key collision is reported as a
	// duplicate outcome, not an error.
	Insert(ctx context.Context, msg *Message) (InsertResult, error)

	// List returns one page of messages ordered by ts ascending, ties broken
	// by message_id ascending, together with the total filtered count.
	List(ctx context.Context, q Query) (*Page, error)

	// Stats aggregates counts and the ts range over all messages.
	Stats(ctx context.Context) (*Stats, error)
}

// Store aggregates storage interfaces and owns the connection.
type Store interface {
	MessageStore

	// Ping checks that the underlying database is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}

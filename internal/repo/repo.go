package repo

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock pools
// satisfy it as well.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresRepository provides typed access to the Postgres directory store.
type PostgresRepository struct {
	db     DB
	logger *slog.Logger
	schema string
}

// New opens a new connection pool to the database with the desired search_path.
func New(ctx context.Context, databaseURL, schema string, logger *slog.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := &PostgresRepository{
		db:     pool,
		logger: logger.With("component", "repo"),
		schema: schema,
	}

	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

// NewWithDB wraps an existing DB (used by tests with pgxmock pools).
func NewWithDB(db DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		logger: logger.With("component", "repo"),
	}
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// Ping ensures the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// WithTx executes fn within a database transaction.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

// RunMigrations applies schema migrations on the connected database.
func (r *PostgresRepository) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return ApplyMigrations(ctx, r.db, filesystem)
}

// UpsertConversationByPhone stores or refreshes the conversation row for a
// phone number. The display name only fills in when the stored one is empty.
func (r *PostgresRepository) UpsertConversationByPhone(ctx context.Context, phoneNumber, name string) (*Conversation, error) {
	const q = `
INSERT INTO conversations (phone_number, name)
VALUES ($1, NULLIF($2, ''))
ON CONFLICT (phone_number) DO UPDATE SET
    name = COALESCE(conversations.name, EXCLUDED.name),
    updated_at = NOW()
RETURNING id, phone_number, name, is_active, created_at, updated_at;
`
	row := r.db.QueryRow(ctx, q, phoneNumber, name)

	var c Conversation
	if err := row.Scan(&c.ID, &c.PhoneNumber, &c.Name, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", err)
	}
	return &c, nil
}

// InsertMessage stores a message record. A duplicate provider message id
// violates the unique constraint and is returned as an error.
func (r *PostgresRepository) InsertMessage(ctx context.Context, msg MessageRecord) error {
	const q = `
INSERT INTO messages (conversation_id, message_id, direction, message_type, content, media_url, status, error_message)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7, ''), 'sent'), $8);
`
	_, err := r.db.Exec(ctx, q,
		msg.ConversationID,
		msg.MessageID,
		msg.Direction,
		msg.Type,
		msg.Content,
		msg.MediaURL,
		msg.Status,
		msg.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListRecentMessages returns the latest messages exchanged in a conversation,
// newest first.
func (r *PostgresRepository) ListRecentMessages(ctx context.Context, conversationID string, limit int) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT direction, message_type, content, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.db.Query(ctx, q, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}
	defer rows.Close()

	var records []MessageRecord
	for rows.Next() {
		var msg MessageRecord
		if err := rows.Scan(&msg.Direction, &msg.Type, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent message: %w", err)
		}
		msg.ConversationID = conversationID
		records = append(records, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent messages: %w", err)
	}
	return records, nil
}

// UpsertBotContext records the last detected intent for a conversation.
func (r *PostgresRepository) UpsertBotContext(ctx context.Context, conversationID, lastIntent string) error {
	const q = `
INSERT INTO bot_contexts (conversation_id, last_intent)
VALUES ($1, $2)
ON CONFLICT (conversation_id) DO UPDATE SET
    last_intent = EXCLUDED.last_intent,
    updated_at = NOW();
`
	if _, err := r.db.Exec(ctx, q, conversationID, lastIntent); err != nil {
		return fmt.Errorf("upsert bot context: %w", err)
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/VTGare/Tally/ctxzap"
	"github.com/VTGare/Tally/store"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const opTimeout = 15 * time.Second

type sqliteStore struct {
	db *sql.DB
}

// New opens or creates a SQLite database at path. WAL mode keeps reads
// cheap while a write is in flight; the pool is capped at one connection
// because SQLite allows a single writer anyway. Foreign keys stay off:
// history rows are retained after their counter row is deleted.
func New(path string) (store.Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &sqliteStore{db: db}, nil
}

func (ss *sqliteStore) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := ss.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	return nil
}

func (ss *sqliteStore) Close(ctx context.Context) error {
	return ss.db.Close()
}

func (ss *sqliteStore) Counter(ctx context.Context, guildID string) (*store.Counter, error) {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := ss.db.QueryRowContext(ctx, `
		SELECT guild_id, channel_id, webhook_id, webhook_token,
		       current_count, last_author_id, created_at, updated_at
		FROM counting_channels WHERE guild_id = ?`, guildID,
	)

	counter, err := scanCounter(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrCounterNotFound
		}

		log.With("guild_id", guildID, "error", err).
			Error("failed to scan a counter")
		return nil, store.ErrInternal
	}

	return counter, nil
}

func (ss *sqliteStore) Counters(ctx context.Context) ([]*store.Counter, error) {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := ss.db.QueryContext(ctx, `
		SELECT guild_id, channel_id, webhook_id, webhook_token,
		       current_count, last_author_id, created_at, updated_at
		FROM counting_channels`,
	)
	if err != nil {
		log.With("error", err).Error("failed to query counters")
		return nil, store.ErrInternal
	}

	defer rows.Close()

	counters := make([]*store.Counter, 0)
	for rows.Next() {
		counter, err := scanCounter(rows)
		if err != nil {
			log.With("error", err).Error("failed to scan a counter, skipping")
			continue
		}

		counters = append(counters, counter)
	}

	if err := rows.Err(); err != nil {
		log.With("error", err).Error("counter rows error")
		return counters, store.ErrInternal
	}

	return counters, nil
}

func (ss *sqliteStore) UpsertCounter(ctx context.Context, counter *store.Counter) error {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := ss.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO counting_channels
		(guild_id, channel_id, webhook_id, webhook_token, current_count, last_author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		counter.GuildID, counter.ChannelID, counter.WebhookID, counter.WebhookToken,
		counter.CurrentCount, counter.LastAuthorID, counter.CreatedAt, counter.UpdatedAt,
	)
	if err != nil {
		log.With("guild_id", counter.GuildID, "error", err).
			Error("failed to upsert a counter")
		return store.ErrInternal
	}

	return nil
}

func (ss *sqliteStore) UpdateCount(ctx context.Context, guildID string, count int64, lastAuthorID string) error {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := ss.db.ExecContext(ctx, `
		UPDATE counting_channels
		SET current_count = ?, last_author_id = ?, updated_at = ?
		WHERE guild_id = ?`,
		count, lastAuthorID, time.Now(), guildID,
	)
	if err != nil {
		log.With("guild_id", guildID, "count", count, "error", err).
			Error("failed to update a counter")
		return store.ErrInternal
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return store.ErrCounterNotFound
	}

	return nil
}

func (ss *sqliteStore) DeleteCounter(ctx context.Context, guildID string) error {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := ss.db.ExecContext(ctx,
		"DELETE FROM counting_channels WHERE guild_id = ?", guildID,
	)
	if err != nil {
		log.With("guild_id", guildID, "error", err).
			Error("failed to delete a counter")
		return store.ErrInternal
	}

	return nil
}

func (ss *sqliteStore) AppendHistory(ctx context.Context, entry *store.HistoryEntry) error {
	log := ctxzap.Extract(ctx)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := ss.db.ExecContext(ctx, `
		INSERT INTO counting_history (guild_id, user_id, count_number, timestamp)
		VALUES (?, ?, ?, ?)`,
		entry.GuildID, entry.UserID, entry.Number, entry.Timestamp,
	)
	if err != nil {
		log.With("guild_id", entry.GuildID, "error", err).
			Error("failed to insert a history entry")
		return store.ErrInternal
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCounter(row scanner) (*store.Counter, error) {
	var counter store.Counter
	err := row.Scan(
		&counter.GuildID, &counter.ChannelID, &counter.WebhookID, &counter.WebhookToken,
		&counter.CurrentCount, &counter.LastAuthorID, &counter.CreatedAt, &counter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &counter, nil
}

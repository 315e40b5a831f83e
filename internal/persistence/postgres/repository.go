// Package postgres provides pgx-backed persistence for feed entries and
// their outbox events.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/feedboard/internal/domain"
	"example.com/feedboard/internal/events"
	"example.com/feedboard/internal/observability"
)

// Repository provides Postgres-backed persistence for entries and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `entry_id, user_id, content, is_admin, app_version, created_at`

// Create persists the entry and records its outbox event inside a single
// transaction, so a committed entry always reaches the live stream.
func (r *Repository) Create(ctx context.Context, entry domain.Entry, dedupeKey string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	const insertEntry = `INSERT INTO entries (entry_id, user_id, content, is_admin, app_version, created_at, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, insertEntry,
		entry.ID,
		entry.UserID,
		entry.Content,
		entry.IsAdmin,
		entry.AppVersion,
		entry.CreatedAt,
		nullIfEmpty(dedupeKey),
	)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, entry); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}
	observability.RecordEntryPersisted(entry.CreatedAt)
	return nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, entry domain.Entry) error {
	body, err := json.Marshal(events.EntryCreated{
		EntryID:    entry.ID,
		UserID:     entry.UserID,
		Content:    entry.Content,
		IsAdmin:    entry.IsAdmin,
		AppVersion: entry.AppVersion,
		CreatedAt:  entry.CreatedAt,
	})
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[events.EventTypeEntryCreated]
	if !ok {
		return fmt.Errorf("unknown event type: %s", events.EventTypeEntryCreated)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		"entry",
		entry.ID,
		events.EventTypeEntryCreated,
		meta.Topic,
		meta.PartitionKeyFn(entry),
		body,
		fmt.Sprintf("%s:%s", entry.ID, events.EventTypeEntryCreated),
	)
	return err
}

// FindByDedupeKey looks up an entry by its dedupe key. A nil result means no
// entry carries the key.
func (r *Repository) FindByDedupeKey(ctx context.Context, key string) (*domain.Entry, error) {
	if key == "" {
		return nil, nil
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE dedupe_key = $1`

	row := r.pool.QueryRow(ctx, query, key)
	var entry domain.Entry
	if err := row.Scan(&entry.ID, &entry.UserID, &entry.Content, &entry.IsAdmin, &entry.AppVersion, &entry.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListRecent returns the newest entries first, entry_id breaking timestamp ties.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
        ORDER BY created_at DESC, entry_id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Entry, 0, limit)
	for rows.Next() {
		var entry domain.Entry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Content, &entry.IsAdmin, &entry.AppVersion, &entry.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	PartitionKeyFn func(domain.Entry) string
}

var eventCatalog = map[string]EventMetadata{
	events.EventTypeEntryCreated: {
		Topic: "feed_entries",
		PartitionKeyFn: func(e domain.Entry) string {
			return e.UserID
		},
	},
}

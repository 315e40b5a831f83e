//go:build integration

package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/feedboard/internal/domain"
	"example.com/feedboard/internal/events"
	"example.com/feedboard/internal/logger"
	persistence "example.com/feedboard/internal/persistence/postgres"
	"example.com/feedboard/migrations"
)

func TestDispatcherDeliversAndMarksPublished(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := startPostgres(t, ctx)
	repo := persistence.NewRepository(pool)

	entry := domain.Entry{
		ID:         uuid.NewString(),
		UserID:     "user-1",
		Content:    "dispatch me",
		AppVersion: "test",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, entry, ""))

	producer := &capturingProducer{}
	dispatcher := NewDispatcher(pool, producer, 50*time.Millisecond, 10, logger.Nop())
	go dispatcher.Start(ctx)

	require.Eventually(t, func() bool {
		return len(producer.snapshot()) == 1
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	dispatcher.Wait()

	delivered := producer.snapshot()[0]
	require.Equal(t, "feed_entries", delivered.topic)
	require.Equal(t, []byte("user-1"), delivered.message.Key)

	var event events.EntryCreated
	require.NoError(t, json.Unmarshal(delivered.message.Value, &event))
	require.Equal(t, entry.ID, event.EntryID)
	require.Equal(t, "dispatch me", event.Content)

	var eventType string
	for _, header := range delivered.message.Headers {
		if header.Key == "event_type" {
			eventType = string(header.Value)
		}
	}
	require.Equal(t, events.EventTypeEntryCreated, eventType)

	var unpublished int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished))
	require.Zero(t, unpublished)
}

type capturedMessage struct {
	topic   string
	message kafka.Message
}

type capturingProducer struct {
	mu       sync.Mutex
	captured []capturedMessage
}

func (p *capturingProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, msg := range msgs {
		p.captured = append(p.captured, capturedMessage{topic: topic, message: msg})
	}
	return nil
}

func (p *capturingProducer) snapshot() []capturedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]capturedMessage, len(p.captured))
	copy(out, p.captured)
	return out
}

func startPostgres(t *testing.T, _ context.Context) *pgxpool.Pool {
	t.Helper()

	// The caller's context gets cancelled to stop the dispatcher; container
	// and pool lifecycle use their own.
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("feedboard"),
		postgrescontainer.WithUsername("feedboard"),
		postgrescontainer.WithPassword("feedboard"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, pingErr := pgxpool.New(ctx, connStr)
		if pingErr == nil {
			pingErr = pool.Ping(ctx)
			pool.Close()
			if pingErr == nil {
				break
			}
		}
		require.False(t, time.Now().After(deadline), "postgres did not become ready: %v", pingErr)
		time.Sleep(time.Second)
	}

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)
	require.NoError(t, migrations.Migrate(db))
	require.NoError(t, db.Close())

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

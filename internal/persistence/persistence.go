// Package persistence implements the Postgres-backed store: table access for
// signal_sources, signals, and strategic_intents (the migrations also create
// indicators, decisions, and related tables, which this package does not
// query), plus the idempotent source-upsert guard and a retention sweep. Connection
// pooling is via github.com/jackc/pgx/v5; schema is owned by
// github.com/golang-migrate/migrate/v4 migrations run at startup
// (internal/persistence/migrations).
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signalbridge/collector/internal/evaluator"
)

// Store wraps a pooled Postgres connection and the in-process upsert mutex
// that backs the "select; if missing insert; if insert races, re-select"
// source guard, a fast path in front of the UNIQUE constraint applied by
// migrations.
type Store struct {
	Pool *pgxpool.Pool

	sourceMu sync.Mutex
	seenPair sync.Map // (pirID,url) -> struct{}, campaign-local dedupe
}

// Open connects to Postgres via the given DSN and returns a ready Store. It
// does not run migrations; call Migrate separately at startup.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("persistence: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("persistence: ping: %w", err)
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

// upsertSource implements the idempotent source-row guard keyed by
// (source_name, source_url): select first, insert on miss, and tolerate a
// concurrent insert race via ON CONFLICT DO NOTHING followed by a re-select.
func (s *Store) upsertSource(ctx context.Context, name, sourceURL, kind string) (string, error) {
	s.sourceMu.Lock()
	defer s.sourceMu.Unlock()

	var id string
	err := s.Pool.QueryRow(ctx,
		`SELECT id FROM signal_sources WHERE source_name = $1 AND source_url = $2`,
		name, sourceURL,
	).Scan(&id)
	if err == nil {
		_, _ = s.Pool.Exec(ctx, `UPDATE signal_sources SET last_checked = now() WHERE id = $1`, id)
		return id, nil
	}

	newID := uuid.New().String()
	_, err = s.Pool.Exec(ctx,
		`INSERT INTO signal_sources (id, source_name, source_type, source_url, last_checked)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (source_name, source_url) DO NOTHING`,
		newID, name, kind, sourceURL,
	)
	if err != nil {
		return "", fmt.Errorf("persistence: insert source: %w", err)
	}

	err = s.Pool.QueryRow(ctx,
		`SELECT id FROM signal_sources WHERE source_name = $1 AND source_url = $2`,
		name, sourceURL,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("persistence: re-select source after insert race: %w", err)
	}
	return id, nil
}

// WriteSignal persists one Signal, first resolving or creating its Source
// row, then enforcing the campaign-local (pirId, url) dedupe key before
// insert: within one campaign, a (pir, url) pair yields at most one Signal.
func (s *Store) WriteSignal(ctx context.Context, sessionID string, sig evaluator.Signal) error {
	key := dedupeKey(sig.IndicatorID, sig.URL)
	if _, loaded := s.seenPair.LoadOrStore(key, struct{}{}); loaded {
		return nil
	}

	sourceID, err := s.upsertSource(ctx, sig.SourceName, sig.URL, "other")
	if err != nil {
		return err
	}

	rawMeta, err := json.Marshal(rawSignalMeta(sig.RawMeta))
	if err != nil {
		return fmt.Errorf("persistence: marshal raw signal meta: %w", err)
	}

	var publishedAt *time.Time
	if sig.PublishedAt != nil {
		utc := sig.PublishedAt.UTC()
		publishedAt = &utc
	}

	_, err = s.Pool.Exec(ctx,
		`INSERT INTO signals (
			id, indicator_id, source_id, article_title, article_content, article_url,
			published_date, match_score, ai_reasoning, raw_signal_text, observed_at,
			session_id, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),$11,'new')`,
		uuid.New().String(), sig.IndicatorID, sourceID, sig.Title, sig.Body, sig.URL,
		publishedAt, sig.MatchScore, sig.Reasoning, rawMeta, sessionID,
	)
	if err != nil {
		return fmt.Errorf("persistence: insert signal: %w", err)
	}
	return nil
}

// dedupeKey builds the campaign-local (pirId, url) dedupe key.
func dedupeKey(pirID, url string) string {
	return pirID + "|" + url
}

// rawSignalMeta strips Reasoning from an Evaluation before it is serialized
// into raw_signal_text: reasoning already has its own column (ai_reasoning),
// and raw_signal_text must not duplicate it.
func rawSignalMeta(eval evaluator.Evaluation) evaluator.Evaluation {
	eval.Reasoning = ""
	return eval
}

// SweepRetention deletes signals observed before the cutoff. Best-effort:
// callers treat its error as non-fatal.
func (s *Store) SweepRetention(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := retentionCutoff(time.Now().UTC(), olderThan)
	tag, err := s.Pool.Exec(ctx, `DELETE FROM signals WHERE observed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("persistence: retention sweep: %w", err)
	}
	return tag.RowsAffected(), nil
}

func retentionCutoff(now time.Time, olderThan time.Duration) time.Time {
	return now.Add(-olderThan)
}

// LatestStrategicIntent reads the intent text and context of the most
// recently created strategic_intents row for a session.
func (s *Store) LatestStrategicIntent(ctx context.Context, sessionID string) (string, string, error) {
	var intentText, context string
	err := s.Pool.QueryRow(ctx,
		`SELECT intent_text, context FROM strategic_intents WHERE session_id = $1 ORDER BY created_at DESC LIMIT 1`,
		sessionID,
	).Scan(&intentText, &context)
	if err != nil {
		return "", "", fmt.Errorf("persistence: load strategic intent: %w", err)
	}
	return intentText, context, nil
}

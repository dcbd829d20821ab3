// Package store persists benchmark history and incident case state to
// PostgreSQL via pgx. cmd/attackgraph-dashboard writes incidents here;
// nothing loads them back into a running engine or incident manager.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/attackgraph-engine/internal/bench"
	"github.com/rawblock/attackgraph-engine/internal/investigation"
)

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr and verifies it with a ping.
func Connect(connStr string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}
	log.Println("attackgraph-engine: connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql.
func (s *Store) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}
	if _, err := s.pool.Exec(context.Background(), string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}
	log.Println("attackgraph-engine: schema initialized")
	return nil
}

// SaveBenchResult records one benchmark run.
func (s *Store) SaveBenchResult(ctx context.Context, r bench.Result) error {
	const sql = `
		INSERT INTO bench_results
		(topology, nodes, initial_ns, incremental_ns, speedup_factor, paths_initial, paths_after_cut)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, sql,
		r.Topology, r.Nodes, r.InitialComputation.Nanoseconds(), r.IncrementalUpdate.Nanoseconds(),
		r.SpeedupFactor, r.AttackPathsInitial, r.AttackPathsAfterCut)
	return err
}

// ListBenchResults returns the most recent benchmark runs, newest first.
func (s *Store) ListBenchResults(ctx context.Context, limit int) ([]bench.Result, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const sql = `
		SELECT topology, nodes, initial_ns, incremental_ns, speedup_factor, paths_initial, paths_after_cut
		FROM bench_results ORDER BY recorded_at DESC LIMIT $1
	`
	rows, err := s.pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []bench.Result
	for rows.Next() {
		var r bench.Result
		var initialNs, incrementalNs int64
		if err := rows.Scan(&r.Topology, &r.Nodes, &initialNs, &incrementalNs, &r.SpeedupFactor, &r.AttackPathsInitial, &r.AttackPathsAfterCut); err != nil {
			return nil, err
		}
		r.InitialComputation = time.Duration(initialNs)
		r.IncrementalUpdate = time.Duration(incrementalNs)
		results = append(results, r)
	}
	return results, nil
}

// SaveIncident upserts an incident along with its host tags and
// timeline, replacing both child tables wholesale: delete then
// batch-insert, inside one transaction.
func (s *Store) SaveIncident(ctx context.Context, inc *investigation.Incident) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertSQL = `
		INSERT INTO incidents (id, name, description, status, attacker_id, goal_hosts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, description = EXCLUDED.description, status = EXCLUDED.status,
			goal_hosts = EXCLUDED.goal_hosts, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(ctx, upsertSQL, inc.ID, inc.Name, inc.Description, inc.Status, inc.AttackerID, inc.GoalHosts, inc.CreatedAt, inc.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert incident: %v", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM incident_host_tags WHERE incident_id = $1`, inc.ID); err != nil {
		return fmt.Errorf("failed to clear host tags: %v", err)
	}
	for _, tag := range inc.HostTags {
		const insertTagSQL = `
			INSERT INTO incident_host_tags (incident_id, host, label, role, notes, tagged_at, tagged_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.Exec(ctx, insertTagSQL, inc.ID, tag.Host, tag.Label, tag.Role, tag.Notes, tag.TaggedAt, tag.TaggedBy); err != nil {
			return fmt.Errorf("failed to insert host tag: %v", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM incident_timeline_events WHERE incident_id = $1`, inc.ID); err != nil {
		return fmt.Errorf("failed to clear timeline: %v", err)
	}
	for _, ev := range inc.Timeline {
		const insertEventSQL = `
			INSERT INTO incident_timeline_events (incident_id, timestamp, event_type, description, host, privilege)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, insertEventSQL, inc.ID, ev.Timestamp, ev.EventType, ev.Description, ev.Host, ev.Privilege); err != nil {
			return fmt.Errorf("failed to insert timeline event: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// GetIncident loads an incident and its host tags and timeline back
// from storage.
func (s *Store) GetIncident(ctx context.Context, id string) (*investigation.Incident, error) {
	const sql = `SELECT id, name, description, status, attacker_id, goal_hosts, created_at, updated_at FROM incidents WHERE id = $1`
	inc := &investigation.Incident{}
	err := s.pool.QueryRow(ctx, sql, id).Scan(&inc.ID, &inc.Name, &inc.Description, &inc.Status, &inc.AttackerID, &inc.GoalHosts, &inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	tagRows, err := s.pool.Query(ctx, `SELECT host, label, role, notes, tagged_at, tagged_by FROM incident_host_tags WHERE incident_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tag investigation.HostTag
		if err := tagRows.Scan(&tag.Host, &tag.Label, &tag.Role, &tag.Notes, &tag.TaggedAt, &tag.TaggedBy); err != nil {
			return nil, err
		}
		inc.HostTags = append(inc.HostTags, tag)
	}

	eventRows, err := s.pool.Query(ctx, `SELECT timestamp, event_type, description, host, privilege FROM incident_timeline_events WHERE incident_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer eventRows.Close()
	for eventRows.Next() {
		var ev investigation.TimelineEvent
		if err := eventRows.Scan(&ev.Timestamp, &ev.EventType, &ev.Description, &ev.Host, &ev.Privilege); err != nil {
			return nil, err
		}
		inc.Timeline = append(inc.Timeline, ev)
	}

	return inc, nil
}

// GetPool exposes the connection pool for callers that need raw access.
func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}

package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/lvc-bridge/pkg/endpoint"
	"github.com/morezero/lvc-bridge/pkg/semver"
)

const repoLogPrefix = "db:repository"

// Repository provides database access for topology snapshots.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveTopology appends a snapshot and returns it with its new revision.
func (r *Repository) SaveTopology(ctx context.Context, params SaveTopologyParams) (*TopologyRecord, error) {
	if params.Endpoints == nil {
		return nil, fmt.Errorf("%s - SaveTopology requires endpoints", repoLogPrefix)
	}
	slog.Info(fmt.Sprintf("%s - SaveTopology source=%s endpoints=%d", repoLogPrefix, params.Source, params.Endpoints.Len()))

	endpoints, err := json.Marshal(params.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("%s - encode endpoints: %w", repoLogPrefix, err)
	}
	caps := params.Capabilities
	if caps == nil {
		caps = []string{}
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO endpoint_topologies (source, app_data_dir, capabilities, format_version, endpoints, created)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING revision, source, app_data_dir, capabilities, format_version, endpoints, created`,
		params.Source, params.AppDataDir, caps, semver.FormatVersion, endpoints, time.Now().UTC())

	return scanTopology(row)
}

// LatestTopology returns the newest snapshot, or nil when none exist.
func (r *Repository) LatestTopology(ctx context.Context) (*TopologyRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT revision, source, app_data_dir, capabilities, format_version, endpoints, created
		 FROM endpoint_topologies
		 ORDER BY revision DESC
		 LIMIT 1`)

	return scanTopology(row)
}

// ListTopologies returns up to limit snapshots, newest first.
func (r *Repository) ListTopologies(ctx context.Context, limit int) ([]TopologyRecord, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT revision, source, app_data_dir, capabilities, format_version, endpoints, created
		 FROM endpoint_topologies
		 ORDER BY revision DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - list topologies: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []TopologyRecord
	for rows.Next() {
		rec, err := scanTopology(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - list topologies: %w", repoLogPrefix, err)
	}
	return out, nil
}

// scanTopology reads one row; pgx.ErrNoRows yields (nil, nil).
func scanTopology(row pgx.Row) (*TopologyRecord, error) {
	var (
		rec       TopologyRecord
		endpoints []byte
	)
	err := row.Scan(&rec.Revision, &rec.Source, &rec.AppDataDir, &rec.Capabilities, &rec.FormatVersion, &endpoints, &rec.Created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan topology failed: %w", repoLogPrefix, err)
	}
	if err := semver.CheckCompatible(rec.FormatVersion); err != nil {
		return nil, fmt.Errorf("%s - revision %d: %w", repoLogPrefix, rec.Revision, err)
	}
	var set endpoint.Set
	if err := json.Unmarshal(endpoints, &set); err != nil {
		return nil, fmt.Errorf("%s - revision %d: decode endpoints: %w", repoLogPrefix, rec.Revision, err)
	}
	rec.Endpoints = &set
	return &rec, nil
}

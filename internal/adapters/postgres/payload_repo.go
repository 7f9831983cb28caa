package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/ports"
)

var _ ports.PayloadRecorder = (*PayloadRepo)(nil)

// PayloadRepo keeps the last outgoing routing payload in a single row per
// sink name. It implements ports.PayloadRecorder.
type PayloadRepo struct {
	db   *DB
	name string
}

// NewPayloadRepo creates a repo writing the row identified by name.
func NewPayloadRepo(db *DB, name string) *PayloadRepo {
	return &PayloadRepo{db: db, name: name}
}

// Record upserts the payload, replacing the previous one.
func (r *PayloadRepo) Record(ctx context.Context, payload *domain.RoutingPayload) error {
	data, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("postgres: marshal payload: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO route_debug_payloads (name, route_id, costing, exclusion_count, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (name) DO UPDATE SET
			route_id = EXCLUDED.route_id,
			costing = EXCLUDED.costing,
			exclusion_count = EXCLUDED.exclusion_count,
			payload = EXCLUDED.payload,
			recorded_at = EXCLUDED.recorded_at
	`, r.name, payload.ID, payload.Costing, len(payload.ExcludeLocations), data)
	if err != nil {
		return fmt.Errorf("postgres: upsert payload: %w", err)
	}
	return nil
}

// Last returns the most recently recorded payload and when it was written.
func (r *PayloadRepo) Last(ctx context.Context) (*domain.RoutingPayload, time.Time, error) {
	var (
		data       []byte
		recordedAt time.Time
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT payload, recorded_at FROM route_debug_payloads WHERE name = $1
	`, r.name).Scan(&data, &recordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, domain.ErrNoPayload
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("postgres: load payload: %w", err)
	}

	var p domain.RoutingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, time.Time{}, fmt.Errorf("postgres: decode payload: %w", err)
	}
	return &p, recordedAt, nil
}

// encodePayload keeps opaque costing options unescaped, matching what the
// routing engine received.
func encodePayload(payload *domain.RoutingPayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

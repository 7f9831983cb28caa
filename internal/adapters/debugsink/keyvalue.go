package debugsink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/ports"
)

// KeyValue stores the latest payload under a fixed key with a TTL.
type KeyValue struct {
	store      ports.KeyValueStore
	key        string
	ttlSeconds int
	now        func() time.Time
}

type storedPayload struct {
	RecordedAt time.Time              `json:"recorded_at"`
	Payload    *domain.RoutingPayload `json:"payload"`
}

// NewKeyValue creates a key-value sink, typically backed by Valkey.
func NewKeyValue(store ports.KeyValueStore, key string, ttlSeconds int) *KeyValue {
	return &KeyValue{store: store, key: key, ttlSeconds: ttlSeconds, now: time.Now}
}

func (k *KeyValue) Record(ctx context.Context, payload *domain.RoutingPayload) error {
	data, err := json.Marshal(storedPayload{RecordedAt: k.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("debugsink: kv: marshal: %w", err)
	}
	if err := k.store.Set(ctx, k.key, data, k.ttlSeconds); err != nil {
		return fmt.Errorf("debugsink: kv: set %s: %w", k.key, err)
	}
	return nil
}

// Last returns the stored payload, or domain.ErrNoPayload once the key expired.
func (k *KeyValue) Last(ctx context.Context) (*domain.RoutingPayload, time.Time, error) {
	data, err := k.store.Get(ctx, k.key)
	if errors.Is(err, ports.ErrKeyNotFound) {
		return nil, time.Time{}, domain.ErrNoPayload
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("debugsink: kv: get %s: %w", k.key, err)
	}

	var sp storedPayload
	if err := json.Unmarshal(data, &sp); err != nil {
		return nil, time.Time{}, fmt.Errorf("debugsink: kv: decode %s: %w", k.key, err)
	}
	return sp.Payload, sp.RecordedAt, nil
}

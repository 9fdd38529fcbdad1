package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

var ErrNoSnapshot = errors.New("no snapshot for key")

// SnapshotStore keeps the last successful result of a computation in Redis
// so a caller can fall back to it when the upstream source is unreachable.
// Unlike ResultCache entries, snapshots do not expire.
type SnapshotStore struct {
	client *redis.Client
	prefix string
}

func NewSnapshotStore(client *redis.Client, prefix string) *SnapshotStore {
	if prefix == "" {
		prefix = "mdm:snapshot:"
	}
	return &SnapshotStore{client: client, prefix: prefix}
}

func (s *SnapshotStore) Save(ctx context.Context, key string, value interface{}) error {
	if s == nil || s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, data, 0).Err()
}

func (s *SnapshotStore) Load(ctx context.Context, key string, out interface{}) error {
	if s == nil || s.client == nil {
		return ErrNoSnapshot
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNoSnapshot
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

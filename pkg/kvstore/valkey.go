package kvstore

import (
	"context"
	"time"

	"github.com/AzielCF/az-social/infrastructure/valkey"
)

// ValkeyStore keeps entries in Valkey under "<prefix>:kv:<key>", relying on EX for expiry.
type ValkeyStore struct {
	client *valkey.Client
	prefix string
}

func NewValkeyStore(client *valkey.Client) *ValkeyStore {
	return &ValkeyStore{
		client: client,
		prefix: client.Key("kv") + ":",
	}
}

func (s *ValkeyStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	inner := s.client.Inner()
	if ttl > 0 {
		cmd := inner.B().Set().Key(s.prefix + key).Value(string(value)).Ex(ttl).Build()
		return inner.Do(ctx, cmd).Error()
	}
	cmd := inner.B().Set().Key(s.prefix + key).Value(string(value)).Build()
	return inner.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	inner := s.client.Inner()
	data, err := inner.Do(ctx, inner.B().Get().Key(s.prefix+key).Build()).AsBytes()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *ValkeyStore) Delete(ctx context.Context, key string) error {
	inner := s.client.Inner()
	return inner.Do(ctx, inner.B().Del().Key(s.prefix+key).Build()).Error()
}

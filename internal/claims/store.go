package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Marker proves one successful captcha verification, bound to the fid it was
// issued for and the wallet that will receive the points voucher. It is
// consumed (deleted) the moment a voucher is signed against it.
type Marker struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

var ErrNotFound = errors.New("claim marker not found")

// markerTTL bounds how long a verification stays exchangeable. Well past the
// captcha expiry on purpose: the user still has to connect a wallet and
// request the voucher.
const markerTTL = time.Hour

type Store interface {
	Put(ctx context.Context, fid uint64, marker Marker) error
	Get(ctx context.Context, fid uint64) (*Marker, error)
	Delete(ctx context.Context, fid uint64) error
}

// RedisStore keeps markers in Redis so any instance can consume a marker
// issued by another.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func markerKey(fid uint64) string {
	return fmt.Sprintf("captcha:claim:%d", fid)
}

func (s *RedisStore) Put(ctx context.Context, fid uint64, marker Marker) error {
	data, err := json.Marshal(marker)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, markerKey(fid), data, markerTTL).Err()
}

func (s *RedisStore) Get(ctx context.Context, fid uint64) (*Marker, error) {
	data, err := s.client.Get(ctx, markerKey(fid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var marker Marker
	if err := json.Unmarshal(data, &marker); err != nil {
		return nil, err
	}
	return &marker, nil
}

func (s *RedisStore) Delete(ctx context.Context, fid uint64) error {
	return s.client.Del(ctx, markerKey(fid)).Err()
}

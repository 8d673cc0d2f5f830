package presence

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"CollectBox/global"
)

// Service keeps small per-user session state in Redis: online presence
// and the set of acknowledged notification ids. Acks used to be a
// client-only flag that a reload lost; persisting the id set here keeps
// the bell badge honest across sessions.
type Service struct {
	rdb *redis.Client
}

func New(cfg *global.RedisConfig) (*Service, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Service{rdb: rdb}, nil
}

// presence key: cb:presence:<user>, TTL controls the online validity period
func presenceKey(user string) string { return "cb:presence:" + user }
func ackKey(user string) string      { return "cb:notifack:" + user }

// Online sets the user as online and renews the TTL.
func (s *Service) Online(ctx context.Context, user string, ttl time.Duration) error {
	return s.rdb.Set(ctx, presenceKey(user), "1", ttl).Err()
}

// Offline actively sets the user offline (deletes the key).
func (s *Service) Offline(ctx context.Context, user string) error {
	return s.rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup checks whether the user is online.
func (s *Service) Lookup(ctx context.Context, user string) (bool, error) {
	err := s.rdb.Get(ctx, presenceKey(user)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Ack records notification ids as acknowledged.
func (s *Service) Ack(ctx context.Context, user string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return s.rdb.SAdd(ctx, ackKey(user), members...).Err()
}

// Acked returns the set of acknowledged notification ids.
func (s *Service) Acked(ctx context.Context, user string) (map[string]struct{}, error) {
	vals, err := s.rdb.SMembers(ctx, ackKey(user)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out, nil
}

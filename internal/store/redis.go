package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dappconnect/internal/domain"
)

// DefaultKeyPrefix namespaces every key written by the Redis stores.
const DefaultKeyPrefix = "dappconnect:"

// NewRedisClient connects to addr and pings it.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cl, nil
}

// RedisSessionStore keeps one JSON value per session.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSessionStore stores sessions under prefix+"session:"+clientID. A
// zero ttl keeps sessions until they are deleted.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisSessionStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisSessionStore{client: client, keyPrefix: prefix, ttl: ttl}
}

func (r *RedisSessionStore) sessionKey(clientID string) string {
	return r.keyPrefix + "session:" + clientID
}

func (r *RedisSessionStore) SaveSession(ctx context.Context, s domain.StoredSession) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.sessionKey(s.ClientID), b, r.ttl).Err()
}

func (r *RedisSessionStore) LoadSession(ctx context.Context, clientID string) (domain.StoredSession, bool, error) {
	b, err := r.client.Get(ctx, r.sessionKey(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.StoredSession{}, false, nil
	}
	if err != nil {
		return domain.StoredSession{}, false, err
	}
	var s domain.StoredSession
	if err := json.Unmarshal(b, &s); err != nil {
		return domain.StoredSession{}, false, fmt.Errorf("decode session %s: %w", clientID, err)
	}
	return s, true, nil
}

func (r *RedisSessionStore) DeleteSession(ctx context.Context, clientID string) error {
	return r.client.Del(ctx, r.sessionKey(clientID)).Err()
}

var _ domain.SessionStore = (*RedisSessionStore)(nil)

// RedisQueue keeps pending bridge messages in one list per topic.
type RedisQueue struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisQueue stores pending messages under prefix+"pending:"+topic.
func NewRedisQueue(client *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisQueue{client: client, keyPrefix: prefix}
}

func (q *RedisQueue) pendingKey(topic string) string { return q.keyPrefix + "pending:" + topic }

// Push appends msg and refreshes the list's expiry to ttl.
func (q *RedisQueue) Push(ctx context.Context, msg domain.SocketMessage, ttl time.Duration) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := q.pendingKey(msg.Topic)
	_, err = q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, b)
		if ttl > 0 {
			p.Expire(ctx, key, ttl)
		}
		return nil
	})
	return err
}

// Drain removes and returns every pending message for topic, oldest first.
func (q *RedisQueue) Drain(ctx context.Context, topic string) ([]domain.SocketMessage, error) {
	key := q.pendingKey(topic)
	var lr *redis.StringSliceCmd
	_, err := q.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		lr = p.LRange(ctx, key, 0, -1)
		p.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw := lr.Val()
	out := make([]domain.SocketMessage, 0, len(raw))
	for _, s := range raw {
		var msg domain.SocketMessage
		if err := json.Unmarshal([]byte(s), &msg); err != nil {
			return out, fmt.Errorf("decode pending message for %s: %w", topic, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

var _ domain.MessageQueue = (*RedisQueue)(nil)

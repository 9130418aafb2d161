package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptCounter is the slice of the attempt store SQLCounter reads.
type AttemptCounter interface {
	CountAttemptsSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// SQLCounter counts attempts straight from the attempts table. Record is a
// no-op because the attempt row is the record.
type SQLCounter struct {
	repo AttemptCounter
}

// NewSQLCounter returns a counter reading from repo.
func NewSQLCounter(repo AttemptCounter) *SQLCounter {
	return &SQLCounter{repo: repo}
}

func (c *SQLCounter) StartedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return c.repo.CountAttemptsSince(ctx, userID, since)
}

func (c *SQLCounter) Record(context.Context, string, time.Time) error { return nil }

// RedisCounter keeps one counter per learner per UTC day in Redis, so
// several engine processes share the same daily quota.
type RedisCounter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCounter returns a counter using client. Keys expire after two days.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client, prefix: "testprep:attempts", ttl: 48 * time.Hour}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisCounter) key(userID string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, userID, day.UTC().Format("2006-01-02"))
}

// StartedSince reads the counter for the day containing since.
func (c *RedisCounter) StartedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	n, err := c.client.Get(ctx, c.key(userID, since)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read attempt counter: %w", err)
	}
	return n, nil
}

// Record increments the counter for the day containing at.
func (c *RedisCounter) Record(ctx context.Context, userID string, at time.Time) error {
	key := c.key(userID, at)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment attempt counter: %w", err)
	}
	return nil
}

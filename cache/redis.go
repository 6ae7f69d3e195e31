package cache

import (
	"context"
	"fmt"
	"net/http"

	"AlbumShelf/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const flashKeyPrefix = "albumshelf:flash:"

// RedisFlashStore keeps messages in a Redis list; the cookie only carries the list id.
type RedisFlashStore struct {
	client *redis.Client
}

// NewRedisFlashStore 创建基于 Redis 的消息存储
func NewRedisFlashStore(client *redis.Client) *RedisFlashStore {
	return &RedisFlashStore{client: client}
}

func flashKey(id string) string {
	return flashKeyPrefix + id
}

// Add 追加一条消息
func (s *RedisFlashStore) Add(ctx context.Context, w http.ResponseWriter, r *http.Request, msg string) error {
	id := flashID(r)
	if id == "" {
		id = uuid.NewString()
	}
	key := flashKey(id)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, msg)
	pipe.Expire(ctx, key, flashTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store flash message: %w", err)
	}

	setFlashCookie(w, id, flashTTL)
	return nil
}

// Pop 读取并清除消息
func (s *RedisFlashStore) Pop(ctx context.Context, w http.ResponseWriter, r *http.Request) ([]string, error) {
	id := flashID(r)
	if id == "" {
		return nil, nil
	}
	key := flashKey(id)

	pipe := s.client.TxPipeline()
	lrange := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read flash messages: %w", err)
	}
	clearFlashCookie(w)

	msgs, err := lrange.Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(msgs) > 0 {
		logger.Debug("[Flash] 消息已读取", logger.String("id", id), logger.Int("count", len(msgs)))
	}
	return msgs, nil
}

// flashID returns the list id from the cookie if it is a well-formed uuid.
func flashID(r *http.Request) string {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/pkg/logger"
)

// Client is a loss-tolerant hot cache in front of the sqlite analysis cache.
// Keys embed the content hash, so a stale entry can never be served for
// changed step text; it simply expires or is swept by InvalidateStep.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func suggestionKey(stepID int64, analyzerType, contentHash string) string {
	return fmt.Sprintf("suggestions:%d:%s:%s", stepID, analyzerType, contentHash)
}

func (c *Client) SetSuggestions(ctx context.Context, stepID int64, analyzerType, contentHash string, bundle interface{}) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	err = c.client.Set(ctx, suggestionKey(stepID, analyzerType, contentHash), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set suggestion cache: %w", err)
	}

	logger.Debug("Suggestions cached in redis",
		zap.Int64("step_id", stepID),
		zap.String("analyzer_type", analyzerType),
	)
	return nil
}

func (c *Client) GetSuggestions(ctx context.Context, stepID int64, analyzerType, contentHash string, bundle interface{}) (bool, error) {
	data, err := c.client.Get(ctx, suggestionKey(stepID, analyzerType, contentHash)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get suggestion cache: %w", err)
	}

	err = json.Unmarshal(data, bundle)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal suggestions: %w", err)
	}

	logger.Debug("Redis suggestion cache hit", zap.Int64("step_id", stepID))
	return true, nil
}

// InvalidateStep drops every cached bundle for the step across all analyzer
// types and content hashes.
func (c *Client) InvalidateStep(ctx context.Context, stepID int64) error {
	pattern := fmt.Sprintf("suggestions:%d:*", stepID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Debug("Redis suggestion cache invalidated", zap.Int64("step_id", stepID))
	return nil
}

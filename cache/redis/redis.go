package redis

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCanvoraCache struct {
	client redis.UniversalClient
}

func NewRedisCanvoraCache(ctx context.Context, devMode bool, redisEndpoint string) (*RedisCanvoraCache, error) {
	var client redis.UniversalClient
	if devMode {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
		})
	} else {
		client = redis.NewClient(&redis.Options{
			Addr: redisEndpoint,
			// AWS elasticache endpoints require TLS
			TLSConfig: &tls.Config{},
		})
	}

	err := client.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return &RedisCanvoraCache{client: client}, nil
}

func (redisCache *RedisCanvoraCache) Publish(ctx context.Context, channel string, message []byte) error {
	if err := redisCache.client.Publish(ctx, channel, message).Err(); err != nil {
		return err
	}
	return nil
}

func (redisCache *RedisCanvoraCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	pubsub := redisCache.client.Subscribe(ctx, channel)
	// Ensure subscription is established
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Printf("Pubsub channel closed: %s", channel)
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Hash tags keep all keys of one canvas in the same cluster slot
func buildContentKey(canvasId string) string {
	return "canvas:{" + canvasId + "}:content"
}

const cacheTTL = 10 * time.Minute

func (redisCache *RedisCanvoraCache) GetCanvasContent(ctx context.Context, canvasId string) ([]byte, error) {
	val, err := redisCache.client.Get(ctx, buildContentKey(canvasId)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // miss
		}
		return nil, err
	}
	return val, nil
}

func (redisCache *RedisCanvoraCache) SetCanvasContent(ctx context.Context, canvasId string, content []byte) error {
	return redisCache.client.Set(ctx, buildContentKey(canvasId), content, cacheTTL).Err()
}

func (redisCache *RedisCanvoraCache) InvalidateCanvases(ctx context.Context, canvasIds []string) error {
	if len(canvasIds) == 0 {
		return nil
	}

	// In Redis Cluster, keys with different hash tags hash to different
	// slots, so each canvas is deleted separately.
	for _, canvasId := range canvasIds {
		if err := redisCache.client.Del(ctx, buildContentKey(canvasId)).Err(); err != nil {
			return err
		}
	}

	return nil
}

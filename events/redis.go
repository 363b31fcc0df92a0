package events

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/models"
)

// NewRedisClient connects to the redis server at url
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return client, nil
}

type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes events as JSON on a redis channel
type RedisPublisher struct {
	client  redisPublishClient
	channel string
}

// NewRedisPublisher returns a publisher writing to channel
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends event to every subscribed instance
func (p *RedisPublisher) Publish(ctx context.Context, event models.ComplaintEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to encode complaint event")
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrap(err, "failed to publish complaint event")
	}
	return nil
}

// Subscribe listens on channel and hands every event to listeners until ctx is done
// or the subscription is closed.
func Subscribe(ctx context.Context, client *redis.Client, channel string, listeners ...Listener) {
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	zap.S().Infow("subscribed to complaint events", "channel", channel)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := decode(ctx, msg.Payload, listeners); err != nil {
				zap.S().Errorw("dropping complaint event", "channel", channel, "error", err)
			}
		}
	}
}

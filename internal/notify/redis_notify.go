package notify

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisNotifier broadcasts change events over a Redis pub/sub channel. The
// frontend gateway subscribes to the channel and fans the events out to its
// websocket clients.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

type changeEvent struct {
	Topic string `json:"topic"`
	At    string `json:"at"`
}

func NewRedisNotifier(addr string, password string, db int, channel string) *RedisNotifier {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

func (n *RedisNotifier) DataChanged(ctx context.Context, topic string) error {
	payload, err := json.Marshal(changeEvent{
		Topic: topic,
		At:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, payload).Err()
}

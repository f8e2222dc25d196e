package queue

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a broadcast queue over Redis pub/sub, for deployments where
// the ingestion front and the stage workers run as separate processes.
type RedisQueue struct {
	client *redis.Client
	log    Logger

	mu      sync.Mutex
	pubsubs []*redis.PubSub
}

// NewRedisQueue creates a queue over client. The client is borrowed, not
// owned; Close releases only the subscriptions.
func NewRedisQueue(client *redis.Client, log Logger) *RedisQueue {
	return &RedisQueue{
		client: client,
		log:    log,
	}
}

// Publish broadcasts the message on topic.
func (q *RedisQueue) Publish(ctx context.Context, topic string, message []byte) error {
	return q.client.Publish(ctx, topic, message).Err()
}

// Subscribe registers handler for topic and starts a delivery goroutine. It
// waits for the subscription confirmation before returning, so a publish
// after Subscribe is guaranteed to be seen.
func (q *RedisQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	pubsub := q.client.Subscribe(ctx, topic)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}

	q.mu.Lock()
	q.pubsubs = append(q.pubsubs, pubsub)
	q.mu.Unlock()

	q.log.Info("subscribing to topic", "topic", topic)

	ch := pubsub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				q.log.Info("subscription cancelled", "topic", topic)
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				if err := handler(ctx, []byte(msg.Payload)); err != nil {
					q.log.Error("message handler error", "topic", topic, "error", err)
				}
			}
		}
	}()

	return nil
}

// Close tears down the subscriptions.
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var firstErr error
	for _, pubsub := range q.pubsubs {
		if err := pubsub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	q.pubsubs = nil
	return firstErr
}

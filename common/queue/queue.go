// Package queue carries ingestion events to the stage workers. Topics are
// broadcast: every subscriber sees every message, so independent stages can
// fan out from one publish.
package queue

import (
	"context"
	"fmt"
	"sync"
)

// Logger is the narrow logging interface the queues require.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Queue interface for message passing
type Queue interface {
	Publish(ctx context.Context, topic string, message []byte) error
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error
	Close() error
}

// MessageHandler processes messages
type MessageHandler func(ctx context.Context, message []byte) error

const subscriberBuffer = 1000

type subscriber struct {
	ch chan []byte
}

// MemoryQueue is an in-process broadcast queue for single-binary deployments
// and tests.
type MemoryQueue struct {
	topics map[string][]*subscriber
	mu     sync.RWMutex
	closed bool
	log    Logger
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(log Logger) *MemoryQueue {
	return &MemoryQueue{
		topics: make(map[string][]*subscriber),
		log:    log,
	}
}

// Publish delivers the message to every current subscriber of topic. A
// subscriber that cannot keep up drops the message rather than stalling the
// publisher. The lock is held across the sends so Close cannot tear down a
// channel mid-delivery; sends never block, so holding it is cheap.
func (q *MemoryQueue) Publish(ctx context.Context, topic string, message []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("publish to %s: queue closed", topic)
	}

	for _, sub := range q.topics[topic] {
		select {
		case sub.ch <- message:
		case <-ctx.Done():
			return ctx.Err()
		default:
			q.log.Warn("subscriber queue full, dropping message", "topic", topic)
		}
	}
	return nil
}

// Subscribe registers handler for topic. Each subscriber runs its own
// delivery goroutine until ctx ends; handler errors are logged, never fatal.
func (q *MemoryQueue) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	sub := &subscriber{ch: make(chan []byte, subscriberBuffer)}

	q.mu.Lock()
	q.topics[topic] = append(q.topics[topic], sub)
	q.mu.Unlock()

	q.log.Info("subscribing to topic", "topic", topic)

	go func() {
		for {
			select {
			case <-ctx.Done():
				q.log.Info("subscription cancelled", "topic", topic)
				return
			case msg, ok := <-sub.ch:
				if !ok {
					return
				}
				if err := handler(ctx, msg); err != nil {
					q.log.Error("message handler error", "topic", topic, "error", err)
				}
			}
		}
	}()

	return nil
}

// Close closes the queue
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	for topic, subs := range q.topics {
		for _, sub := range subs {
			close(sub.ch)
		}
		q.log.Info("closed topic", "topic", topic)
	}
	q.topics = make(map[string][]*subscriber)

	return nil
}

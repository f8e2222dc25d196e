package clients

import (
	"context"
	"fmt"
	"sync"
)

// Pool is a fixed-size borrow/return pool of client instances. Every
// collaborator call borrows before it talks and returns on every exit path;
// Do wraps that discipline so callers cannot leak an instance.
type Pool[T any] struct {
	items  chan T
	closer func(T)

	mu     sync.Mutex
	closed bool
}

// NewPool builds a pool of size instances created eagerly with factory.
// closer may be nil for instances that need no teardown.
func NewPool[T any](size int, factory func() (T, error), closer func(T)) (*Pool[T], error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}

	p := &Pool[T]{
		items:  make(chan T, size),
		closer: closer,
	}
	for i := 0; i < size; i++ {
		item, err := factory()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("create pooled instance %d: %w", i, err)
		}
		p.items <- item
	}
	return p, nil
}

// Borrow takes an instance, waiting until one is free or ctx ends.
func (p *Pool[T]) Borrow(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-p.items:
		if !ok {
			return zero, fmt.Errorf("pool is closed")
		}
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Return gives an instance back. Returning to a closed pool tears the
// instance down instead.
func (p *Pool[T]) Return(item T) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		if p.closer != nil {
			p.closer(item)
		}
		return
	}
	p.items <- item
}

// Do borrows an instance, runs fn, and returns the instance no matter how fn
// exits.
func (p *Pool[T]) Do(ctx context.Context, fn func(T) error) error {
	item, err := p.Borrow(ctx)
	if err != nil {
		return err
	}
	defer p.Return(item)
	return fn(item)
}

// Close drains the pool and tears down the pooled instances. Instances still
// borrowed are torn down as they come back.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case item := <-p.items:
			if p.closer != nil {
				p.closer(item)
			}
		default:
			return
		}
	}
}

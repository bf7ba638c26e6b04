package stream

import (
	"context"
	"sync"
)

// Overflow selects what happens when a subscriber's buffer is full.
type Overflow int

const (
	// DropNewest discards the incoming value for the lagging subscriber.
	DropNewest Overflow = iota
	// DropOldest evicts the oldest buffered value to make room.
	DropOldest
)

type Options struct {
	// Replay is the number of recent values delivered to new subscribers.
	Replay int
	// Buffer is each subscriber's channel capacity beyond the replay values.
	Buffer int
	Policy Overflow
}

// Broadcaster fans one producer out to many subscribers without blocking
// the producer. Delivery order per subscriber matches publish order.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	opts   Options
	replay []T
	subs   map[*subscriber[T]]struct{}
	closed bool
}

type subscriber[T any] struct {
	ch chan T
}

func New[T any](opts Options) *Broadcaster[T] {
	if opts.Buffer <= 0 {
		opts.Buffer = 1
	}
	return &Broadcaster[T]{
		opts: opts,
		subs: make(map[*subscriber[T]]struct{}),
	}
}

// Publish delivers the value to every subscriber, applying the overflow
// policy per lagging subscriber. It reports whether no value was dropped.
func (b *Broadcaster[T]) Publish(value T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	if b.opts.Replay > 0 {
		b.replay = append(b.replay, value)
		if len(b.replay) > b.opts.Replay {
			b.replay = b.replay[len(b.replay)-b.opts.Replay:]
		}
	}
	delivered := true
	for sub := range b.subs {
		if !b.send(sub, value) {
			delivered = false
		}
	}
	return delivered
}

func (b *Broadcaster[T]) send(sub *subscriber[T], value T) bool {
	select {
	case sub.ch <- value:
		return true
	default:
	}
	if b.opts.Policy == DropOldest {
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- value:
			return true
		default:
		}
	}
	return false
}

// Subscribe registers a consumer channel that first receives the replay
// values and then live ones. The channel closes when ctx is cancelled or
// the broadcaster is closed.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()
	sub := &subscriber[T]{ch: make(chan T, b.opts.Replay+b.opts.Buffer)}
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch
	}
	for _, v := range b.replay {
		sub.ch <- v
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.ch)
		}
		b.mu.Unlock()
	}()
	return sub.ch
}

// Last returns the most recent replayed value, if any. Only useful on
// broadcasters with Replay > 0.
func (b *Broadcaster[T]) Last() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.replay) == 0 {
		var zero T
		return zero, false
	}
	return b.replay[len(b.replay)-1], true
}

// ResetReplay clears the replay cache so new subscribers cannot observe
// values from a previous session.
func (b *Broadcaster[T]) ResetReplay() {
	b.mu.Lock()
	b.replay = nil
	b.mu.Unlock()
}

// Close unsubscribes everyone; later publishes are discarded.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
	}
	b.replay = nil
}

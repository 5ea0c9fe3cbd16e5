package async

import (
	"sync"
)

// Broadcast fans the latest published value out to subscribers. A slow subscriber never blocks
// Publish: values it did not receive yet are replaced by newer ones.
type Broadcast[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	last   *T
	closed bool
}

func NewBroadcast[T any]() *Broadcast[T] {
	return &Broadcast[T]{subs: map[int]chan T{}}
}

// Subscribe returns a channel receiving the latest value and every later one, and a function
// releasing the subscription.
func (b *Broadcast[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	if b.last != nil {
		ch <- *b.last
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *Broadcast[T]) Publish(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.last = &value

	for _, ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- value
	}
}

// Close closes every subscription. Later publishes are dropped.
func (b *Broadcast[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

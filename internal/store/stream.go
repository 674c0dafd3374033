package store

import (
	"context"
	"sync"
)

// Subscription is one consumer's view of the change feed.
//
// Batches queue unbounded on the subscription so cascading writes never
// block the writer; the consumer drains them with Next. Batches arrive
// whole and in commit order.
type Subscription struct {
	mu      sync.Mutex
	batches []ChangeBatch
	closed  bool
	signal  chan struct{} // Signals batch availability (buffered, size 1)

	cancel func()
}

// Next blocks until a batch is available, the subscription is cancelled,
// or the context is done. After cancellation it drains queued batches,
// then reports ok=false.
func (s *Subscription) Next(ctx context.Context) (ChangeBatch, bool, error) {
	for {
		s.mu.Lock()
		if len(s.batches) > 0 {
			b := s.batches[0]
			// Nil out the slot so the batch's documents can be collected.
			s.batches[0] = ChangeBatch{}
			s.batches = s.batches[1:]
			if len(s.batches) == 0 {
				s.batches = nil
			}
			s.mu.Unlock()
			return b, true, nil
		}
		if s.closed {
			s.mu.Unlock()
			return ChangeBatch{}, false, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ChangeBatch{}, false, ctx.Err()
		case <-s.signal:
		}
	}
}

// Cancel unregisters the subscription. Queued batches remain readable
// via Next until drained. Idempotent.
func (s *Subscription) Cancel() {
	s.cancel()
}

func (s *Subscription) push(b ChangeBatch) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.batches = append(s.batches, b)
	s.mu.Unlock()

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// stream fans committed change batches out to subscriptions.
type stream struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
	closed bool
}

func newStream() *stream {
	return &stream{subs: make(map[int]*Subscription)}
}

// subscribe registers a new subscription.
func (s *stream) subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{signal: make(chan struct{}, 1)}
	if s.closed {
		sub.closed = true
		sub.cancel = func() {}
		return sub
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = sub

	var once sync.Once
	sub.cancel = func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			sub.markClosed()
		})
	}
	return sub
}

// publish appends one batch to every subscription, in commit order.
func (s *stream) publish(b ChangeBatch) {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.push(b)
	}
}

// close shuts down the stream and every open subscription.
func (s *stream) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := make([]*Subscription, 0, len(s.subs))
	for id, sub := range s.subs {
		delete(s.subs, id)
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.markClosed()
	}
}

package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/unicollab/backend/internal/docstore"
)

type subscription struct {
	store *Store
	query docstore.Query
	ch    chan []*docstore.Document

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

// Subscribe pushes the current result set immediately and again after every
// write to the queried collection. Only the latest snapshot is kept if the
// reader falls behind.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query) (docstore.Subscription, error) {
	if err := docstore.ValidateCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("memory store is closed")
	}
	if _, err := s.run(q); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		store:  s,
		query:  q,
		ch:     make(chan []*docstore.Document, 1),
		cancel: cancel,
	}
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	sub.refresh()
	go func() {
		<-ctx.Done()
		sub.Stop()
	}()
	return sub, nil
}

// subscribersOf returns the subscriptions watching collection. Caller holds mu.
func (s *Store) subscribersOf(collection string) []*subscription {
	var out []*subscription
	for sub := range s.subs {
		if sub.query.Collection == collection {
			out = append(out, sub)
		}
	}
	return out
}

func (sub *subscription) refresh() {
	sub.store.mu.Lock()
	docs, err := sub.store.run(sub.query)
	sub.store.mu.Unlock()
	if err != nil {
		return
	}

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped {
		return
	}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- docs
}

func (sub *subscription) Snapshots() <-chan []*docstore.Document {
	return sub.ch
}

func (sub *subscription) Err() error {
	return nil
}

func (sub *subscription) Stop() {
	sub.mu.Lock()
	if sub.stopped {
		sub.mu.Unlock()
		return
	}
	sub.stopped = true
	close(sub.ch)
	sub.mu.Unlock()

	sub.cancel()
	sub.store.mu.Lock()
	delete(sub.store.subs, sub)
	sub.store.mu.Unlock()
}

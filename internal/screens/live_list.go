package screens

import (
	"context"
	"fmt"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/metrics"
)

// LiveState is a realtime list view.
type LiveState[T any] struct {
	Items   []T    `json:"items"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// LiveList keeps a list in step with a store subscription. Every store
// snapshot replaces Items in full.
type LiveList[T any] struct {
	state  *Holder[LiveState[T]]
	sub    docstore.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// OpenLiveList subscribes to q and decodes each snapshot with decode. view
// labels the subscription in metrics.
func OpenLiveList[T any](ctx context.Context, store docstore.Store, q docstore.Query, view string,
	decode func([]*docstore.Document) ([]T, error)) (*LiveList[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	sub, err := store.Subscribe(ctx, q)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", view, err)
	}

	l := &LiveList[T]{
		state:  NewHolder(LiveState[T]{Loading: true}),
		sub:    sub,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	metrics.LiveSubscriptions.WithLabelValues(view).Inc()
	go func() {
		defer metrics.LiveSubscriptions.WithLabelValues(view).Dec()
		l.run(decode)
	}()
	return l, nil
}

func (l *LiveList[T]) run(decode func([]*docstore.Document) ([]T, error)) {
	defer close(l.done)
	defer l.state.Close()

	for docs := range l.sub.Snapshots() {
		items, err := decode(docs)
		l.state.Update(func(st LiveState[T]) LiveState[T] {
			st.Loading = false
			if err != nil {
				st.Error = UserMessage(err)
				return st
			}
			st.Items = items
			st.Error = ""
			return st
		})
	}
	if err := l.sub.Err(); err != nil {
		l.state.Update(func(st LiveState[T]) LiveState[T] {
			st.Loading = false
			st.Error = UserMessage(err)
			return st
		})
	}
}

// State exposes the list's state holder. Its subscriptions end when the
// store subscription does.
func (l *LiveList[T]) State() *Holder[LiveState[T]] { return l.state }

// Done is closed once the list has stopped receiving snapshots.
func (l *LiveList[T]) Done() <-chan struct{} { return l.done }

// Close releases the store subscription and waits for the list to stop.
func (l *LiveList[T]) Close() {
	l.cancel()
	l.sub.Stop()
	<-l.done
}

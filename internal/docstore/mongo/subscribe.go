package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unicollab/backend/internal/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Subscribe watches the flattened collection with a change stream and
// re-runs q on every change under the queried parent. Change streams need a
// replica set or sharded cluster.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query) (docstore.Subscription, error) {
	if err := docstore.ValidateCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"fullDocument." + parentField: q.Collection}}},
	}
	stream, err := s.db.Collection(collectionName(q.Collection)).Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("mongo watch %s: %w", q.Collection, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan []*docstore.Document, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.run(ctx, s, q, stream)
	return sub, nil
}

type subscription struct {
	ch     chan []*docstore.Document
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (sub *subscription) run(ctx context.Context, s *Store, q docstore.Query, stream *mongo.ChangeStream) {
	defer close(sub.done)
	defer close(sub.ch)
	defer stream.Close(context.Background())

	push := func() bool {
		docs, err := s.Query(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				sub.err = err
			}
			return false
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- docs:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !push() {
		return
	}
	for stream.Next(ctx) {
		if !push() {
			return
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		sub.err = fmt.Errorf("mongo watch %s: %w", q.Collection, err)
		slog.Warn("mongo subscription ended", "collection", q.Collection, "error", err)
	}
}

func (sub *subscription) Snapshots() <-chan []*docstore.Document {
	return sub.ch
}

func (sub *subscription) Err() error {
	select {
	case <-sub.done:
		return sub.err
	default:
		return nil
	}
}

func (sub *subscription) Stop() {
	sub.cancel()
}

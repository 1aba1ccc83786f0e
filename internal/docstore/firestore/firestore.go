// Package firestore adapts cloud.google.com/go/firestore to docstore.Store.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/unicollab/backend/internal/docstore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store implements docstore.Store on top of a Firestore client.
type Store struct {
	client *firestore.Client
}

// New wraps an initialized Firestore client, usually obtained from the Firebase app.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	snap, err := s.client.Doc(path).Get(ctx)
	if err != nil {
		return nil, mapError(path, err)
	}
	return document(snap), nil
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	_, err := s.client.Doc(path).Set(ctx, convert(data))
	return mapError(path, err)
}

func (s *Store) Merge(ctx context.Context, path string, data map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	_, err := s.client.Doc(path).Set(ctx, convert(data), firestore.MergeAll)
	return mapError(path, err)
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return "", err
	}
	ref, _, err := s.client.Collection(collection).Add(ctx, convert(data))
	if err != nil {
		return "", mapError(collection, err)
	}
	return ref.ID, nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: convertValue(v)})
	}
	_, err := s.client.Doc(path).Update(ctx, updates)
	return mapError(path, err)
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := docstore.ValidateCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	snaps, err := s.build(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(q.Collection, err)
	}
	docs := make([]*docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, document(snap))
	}
	return docs, nil
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query) (docstore.Subscription, error) {
	if err := docstore.ValidateCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		ch:     make(chan []*docstore.Document, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	iter := s.build(q).Snapshots(ctx)
	go sub.run(ctx, q.Collection, iter)
	return sub, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) build(q docstore.Query) firestore.Query {
	query := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, string(f.Op), f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Direction == docstore.Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

type subscription struct {
	ch     chan []*docstore.Document
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (sub *subscription) run(ctx context.Context, collection string, iter *firestore.QuerySnapshotIterator) {
	defer close(sub.done)
	defer close(sub.ch)
	defer iter.Stop()

	for {
		qs, err := iter.Next()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled {
				sub.err = mapError(collection, err)
				slog.Warn("firestore subscription ended", "collection", collection, "error", err)
			}
			return
		}
		snaps, err := qs.Documents.GetAll()
		if err != nil {
			sub.err = mapError(collection, err)
			return
		}
		docs := make([]*docstore.Document, 0, len(snaps))
		for _, snap := range snaps {
			docs = append(docs, document(snap))
		}
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- docs:
		case <-ctx.Done():
			return
		}
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

func document(snap *firestore.DocumentSnapshot) *docstore.Document {
	return docstore.NewDocument(relativePath(snap.Ref), snap.Data(), snap.DataTo)
}

// relativePath turns a document reference into a "collection/id/..." path.
func relativePath(ref *firestore.DocumentRef) string {
	var segs []string
	for d := ref; d != nil; d = d.Parent.Parent {
		segs = append([]string{d.Parent.ID, d.ID}, segs...)
	}
	return strings.Join(segs, "/")
}

func convert(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = convertValue(v)
	}
	return out
}

func convertValue(v any) any {
	switch val := v.(type) {
	case docstore.ServerTimestampValue:
		return firestore.ServerTimestamp
	case docstore.ArrayUnionValue:
		return firestore.ArrayUnion(val.Elems...)
	case docstore.IncrementValue:
		return firestore.Increment(val.N)
	}
	return v
}

func mapError(path string, err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", path, docstore.ErrNotFound)
	case codes.FailedPrecondition:
		return fmt.Errorf("%s: %w: %v", path, docstore.ErrIndexUnavailable, err)
	}
	return fmt.Errorf("firestore %s: %w", path, err)
}

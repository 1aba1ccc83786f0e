package docstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/unicollab/backend/internal/metrics"
)

type instrumented struct {
	Store
}

// Instrument wraps s so every call is timed into metrics.StoreOperationDuration.
func Instrument(s Store) Store {
	return &instrumented{Store: s}
}

func observe(op, path string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	collection := path
	if ValidateDocumentPath(path) == nil {
		collection, _ = Split(path)
	}
	metrics.StoreOperationDuration.WithLabelValues(op, collectionLabel(collection), outcome).
		Observe(time.Since(start).Seconds())
}

// collectionLabel keeps label cardinality bounded: groups/abc/messages -> groups/*/messages.
func collectionLabel(collection string) string {
	segs := strings.Split(collection, "/")
	for i := 1; i < len(segs); i += 2 {
		segs[i] = "*"
	}
	return strings.Join(segs, "/")
}

func (s *instrumented) Get(ctx context.Context, path string) (*Document, error) {
	start := time.Now()
	doc, err := s.Store.Get(ctx, path)
	observe("get", path, start, err)
	return doc, err
}

func (s *instrumented) Set(ctx context.Context, path string, data map[string]any) error {
	start := time.Now()
	err := s.Store.Set(ctx, path, data)
	observe("set", path, start, err)
	return err
}

func (s *instrumented) Merge(ctx context.Context, path string, data map[string]any) error {
	start := time.Now()
	err := s.Store.Merge(ctx, path, data)
	observe("merge", path, start, err)
	return err
}

func (s *instrumented) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	start := time.Now()
	id, err := s.Store.Add(ctx, collection, data)
	observe("add", collection, start, err)
	return id, err
}

func (s *instrumented) Update(ctx context.Context, path string, fields map[string]any) error {
	start := time.Now()
	err := s.Store.Update(ctx, path, fields)
	observe("update", path, start, err)
	return err
}

func (s *instrumented) Query(ctx context.Context, q Query) ([]*Document, error) {
	start := time.Now()
	docs, err := s.Store.Query(ctx, q)
	observe("query", q.Collection, start, err)
	return docs, err
}

func (s *instrumented) Subscribe(ctx context.Context, q Query) (Subscription, error) {
	start := time.Now()
	sub, err := s.Store.Subscribe(ctx, q)
	observe("subscribe", q.Collection, start, err)
	return sub, err
}

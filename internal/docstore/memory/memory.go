// Package memory is an in-process docstore.Store used by tests and local
// development. Documents are held as field maps and decoded through bson so
// models carry the same tags for this store and the mongo adapter.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/unicollab/backend/internal/docstore"
	"go.mongodb.org/mongo-driver/bson"
)

// Store implements docstore.Store in memory.
type Store struct {
	mu         sync.Mutex
	docs       map[string]map[string]any
	subs       map[*subscription]struct{}
	missingIdx map[string]bool
	clock      func() time.Time
	lastStamp  time.Time
	newID      func() string
	closed     bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for server timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithIDGenerator overrides the id generator used by Add.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithMissingIndex makes ordered queries on collection by field fail with
// docstore.ErrIndexUnavailable, the way a managed backend does before the
// composite index is built.
func WithMissingIndex(collection, field string) Option {
	return func(s *Store) { s.missingIdx[collection+"|"+field] = true }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:       make(map[string]map[string]any),
		subs:       make(map[*subscription]struct{}),
		missingIdx: make(map[string]bool),
		clock:      time.Now,
		newID:      func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:20] },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, docstore.ErrNotFound)
	}
	return document(path, data), nil
}

func (s *Store) Set(ctx context.Context, path string, data map[string]any) error {
	return s.write(ctx, path, func(existing map[string]any, exists bool) (map[string]any, error) {
		return s.apply(map[string]any{}, data), nil
	})
}

func (s *Store) Merge(ctx context.Context, path string, data map[string]any) error {
	return s.write(ctx, path, func(existing map[string]any, exists bool) (map[string]any, error) {
		if !exists {
			existing = map[string]any{}
		}
		return s.apply(existing, data), nil
	})
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	return s.write(ctx, path, func(existing map[string]any, exists bool) (map[string]any, error) {
		if !exists {
			return nil, fmt.Errorf("%s: %w", path, docstore.ErrNotFound)
		}
		return s.apply(existing, fields), nil
	})
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return "", err
	}
	s.mu.Lock()
	id := s.newID()
	for {
		if _, taken := s.docs[docstore.Join(collection, id)]; !taken {
			break
		}
		id = s.newID()
	}
	s.mu.Unlock()
	if err := s.Set(ctx, docstore.Join(collection, id), data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := docstore.ValidateCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(q)
}

func (s *Store) Close() error {
	s.mu.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.closed = true
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Stop()
	}
	return nil
}

// Len reports how many documents are stored under the collection path.
func (s *Store) Len(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for path := range s.docs {
		if parent, _ := docstore.Split(path); parent == collection {
			n++
		}
	}
	return n
}

func (s *Store) write(ctx context.Context, path string, mutate func(map[string]any, bool) (map[string]any, error)) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("memory store is closed")
	}
	existing, exists := s.docs[path]
	next, err := mutate(clone(existing), exists)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.docs[path] = next
	collection, _ := docstore.Split(path)
	subs := s.subscribersOf(collection)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.refresh()
	}
	return nil
}

// apply resolves sentinels against the current field values. Caller holds mu.
func (s *Store) apply(dst, fields map[string]any) map[string]any {
	for k, v := range fields {
		switch val := v.(type) {
		case docstore.ServerTimestampValue:
			dst[k] = s.stamp()
		case docstore.IncrementValue:
			cur, _ := toInt64(dst[k])
			dst[k] = cur + val.N
		case docstore.ArrayUnionValue:
			arr := toSlice(dst[k])
			for _, e := range val.Elems {
				if !containsValue(arr, e) {
					arr = append(arr, e)
				}
			}
			dst[k] = arr
		default:
			dst[k] = normalize(v)
		}
	}
	return dst
}

// stamp returns a strictly increasing server time so creation order is stable.
func (s *Store) stamp() time.Time {
	now := s.clock().UTC().Truncate(time.Millisecond)
	if !now.After(s.lastStamp) {
		now = s.lastStamp.Add(time.Millisecond)
	}
	s.lastStamp = now
	return now
}

func (s *Store) run(q docstore.Query) ([]*docstore.Document, error) {
	if q.OrderBy != "" && s.missingIdx[q.Collection+"|"+q.OrderBy] {
		return nil, fmt.Errorf("order %s by %s: %w", q.Collection, q.OrderBy, docstore.ErrIndexUnavailable)
	}

	var paths []string
	for path, data := range s.docs {
		if parent, _ := docstore.Split(path); parent != q.Collection {
			continue
		}
		if !matches(data, q.Filters) {
			continue
		}
		if q.OrderBy != "" {
			if _, ok := data[q.OrderBy]; !ok {
				continue
			}
		}
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool {
		if q.OrderBy != "" {
			c := compare(s.docs[paths[i]][q.OrderBy], s.docs[paths[j]][q.OrderBy])
			if c != 0 {
				if q.Direction == docstore.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return paths[i] < paths[j]
	})

	if q.Limit > 0 && len(paths) > q.Limit {
		paths = paths[:q.Limit]
	}

	docs := make([]*docstore.Document, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, document(p, s.docs[p]))
	}
	return docs, nil
}

func document(path string, data map[string]any) *docstore.Document {
	snapshot := clone(data)
	return docstore.NewDocument(path, snapshot, func(v any) error {
		raw, err := bson.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		return bson.Unmarshal(raw, v)
	})
}

func matches(data map[string]any, filters []docstore.Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		switch f.Op {
		case docstore.OpEqual:
			if compare(v, normalize(f.Value)) != 0 || !sameKind(v, normalize(f.Value)) {
				return false
			}
		case docstore.OpArrayContains:
			if !containsValue(toSlice(v), f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func clone(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if arr, ok := v.([]any); ok {
			cp := make([]any, len(arr))
			copy(cp, arr)
			v = cp
		}
		out[k] = v
	}
	return out
}

// normalize converts typed slices to []any and integers to int64.
func normalize(v any) any {
	if n, ok := toInt64(v); ok {
		if _, isFloat := v.(float64); !isFloat {
			return n
		}
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		return toSlice(v)
	}
	return v
}

func toSlice(v any) []any {
	if v == nil {
		return []any{}
	}
	if arr, ok := v.([]any); ok {
		return append([]any{}, arr...)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []any{}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = normalize(rv.Index(i).Interface())
	}
	return out
}

func containsValue(arr []any, v any) bool {
	nv := normalize(v)
	for _, e := range arr {
		if sameKind(e, nv) && compare(e, nv) == 0 {
			return true
		}
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func sameKind(a, b any) bool {
	_, an := toInt64(a)
	_, bn := toInt64(b)
	if an || bn {
		return an && bn
	}
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// compare orders values of the same kind; mixed kinds fall back to their type names.
func compare(a, b any) int {
	if an, ok := toInt64(a); ok {
		if bn, ok := toInt64(b); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			}
			return 0
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	if reflect.DeepEqual(a, b) {
		return 0
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

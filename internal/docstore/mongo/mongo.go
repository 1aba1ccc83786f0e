// Package mongo adapts the MongoDB driver to docstore.Store.
//
// Nested collections are flattened: documents under groups/{id}/messages live
// in the "groups.messages" collection. Each stored document carries its full
// path as _id and its parent collection path in _parent so queries stay scoped
// to one parent.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/unicollab/backend/internal/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	idField     = "_id"
	parentField = "_parent"
)

// Store implements docstore.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New wraps a connected client. The client is disconnected by Close.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

var _ docstore.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return nil, err
	}
	raw, err := s.collectionOf(path).FindOne(ctx, bson.M{idField: path}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", path, docstore.ErrNotFound)
		}
		return nil, fmt.Errorf("mongo get %s: %w", path, err)
	}
	return document(path, raw)
}

// Set replaces the document. Server timestamps are filled with $$NOW in a
// pipeline update so the database clock is used, as with Merge and Update.
func (s *Store) Set(ctx context.Context, path string, data map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	parent, _ := docstore.Split(path)
	literal := bson.M{idField: path, parentField: parent}
	stamps := bson.M{}
	for k, v := range data {
		switch val := v.(type) {
		case docstore.ServerTimestampValue:
			stamps[k] = "$$NOW"
		case docstore.IncrementValue:
			literal[k] = val.N
		case docstore.ArrayUnionValue:
			literal[k] = dedupe(val.Elems)
		default:
			literal[k] = v
		}
	}
	pipeline := mongo.Pipeline{{{Key: "$replaceWith", Value: bson.M{"$literal": literal}}}}
	if len(stamps) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$set", Value: stamps}})
	}
	_, err := s.collectionOf(path).UpdateOne(ctx, bson.M{idField: path}, pipeline, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo set %s: %w", path, err)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, path string, data map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	parent, _ := docstore.Split(path)
	update := updateDoc(data)
	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
	}
	set[parentField] = parent
	update["$set"] = set
	_, err := s.collectionOf(path).UpdateOne(ctx, bson.M{idField: path}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo merge %s: %w", path, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := docstore.ValidateDocumentPath(path); err != nil {
		return err
	}
	res, err := s.collectionOf(path).UpdateOne(ctx, bson.M{idField: path}, updateDoc(fields))
	if err != nil {
		return fmt.Errorf("mongo update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", path, docstore.ErrNotFound)
	}
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return "", err
	}
	id := primitive.NewObjectID().Hex()
	if err := s.Set(ctx, docstore.Join(collection, id), data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Document, error) {
	if err := docstore.ValidateCollectionPath(q.Collection); err != nil {
		return nil, err
	}
	findOptions := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Direction == docstore.Desc {
			dir = -1
		}
		findOptions.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: idField, Value: 1}})
	} else {
		findOptions.SetSort(bson.D{{Key: idField, Value: 1}})
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(collectionName(q.Collection)).Find(ctx, filterDoc(q), findOptions)
	if err != nil {
		return nil, fmt.Errorf("mongo query %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var docs []*docstore.Document
	for cursor.Next(ctx) {
		raw := make(bson.Raw, len(cursor.Current))
		copy(raw, cursor.Current)
		path, _ := raw.Lookup(idField).StringValueOK()
		doc, err := document(path, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo query %s: %w", q.Collection, err)
	}
	return docs, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) collectionOf(path string) *mongo.Collection {
	parent, _ := docstore.Split(path)
	return s.db.Collection(collectionName(parent))
}

// collectionName drops the document ids from a collection path: groups/g1/messages -> groups.messages.
func collectionName(collection string) string {
	segs := strings.Split(collection, "/")
	names := make([]string, 0, len(segs)/2+1)
	for i := 0; i < len(segs); i += 2 {
		names = append(names, segs[i])
	}
	return strings.Join(names, ".")
}

func filterDoc(q docstore.Query) bson.M {
	clauses := bson.A{bson.M{parentField: q.Collection}}
	for _, f := range q.Filters {
		// A scalar match on an array field matches any element, which is array-contains.
		clauses = append(clauses, bson.M{f.Field: f.Value})
	}
	if q.OrderBy != "" {
		clauses = append(clauses, bson.M{q.OrderBy: bson.M{"$exists": true}})
	}
	return bson.M{"$and": clauses}
}

func updateDoc(fields map[string]any) bson.M {
	set, stamp, inc, union := bson.M{}, bson.M{}, bson.M{}, bson.M{}
	for k, v := range fields {
		switch val := v.(type) {
		case docstore.ServerTimestampValue:
			stamp[k] = bson.M{"$type": "date"}
		case docstore.IncrementValue:
			inc[k] = val.N
		case docstore.ArrayUnionValue:
			union[k] = bson.M{"$each": val.Elems}
		default:
			set[k] = v
		}
	}
	update := bson.M{}
	for op, doc := range map[string]bson.M{"$set": set, "$currentDate": stamp, "$inc": inc, "$addToSet": union} {
		if len(doc) > 0 {
			update[op] = doc
		}
	}
	return update
}

func document(path string, raw bson.Raw) (*docstore.Document, error) {
	var data bson.M
	if err := bson.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	delete(data, idField)
	delete(data, parentField)
	return docstore.NewDocument(path, data, func(v any) error {
		return bson.Unmarshal(raw, v)
	}), nil
}

func dedupe(elems []any) bson.A {
	out := bson.A{}
	seen := make(map[any]bool, len(elems))
	for _, e := range elems {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

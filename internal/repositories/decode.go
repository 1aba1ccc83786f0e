package repositories

import (
	"fmt"

	"github.com/unicollab/backend/internal/docstore"
)

// decodeAll decodes every document into a T and lets setID stamp the document id.
func decodeAll[T any](docs []*docstore.Document, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Path, err)
		}
		if setID != nil {
			setID(&v, doc.ID)
		}
		out = append(out, v)
	}
	return out, nil
}

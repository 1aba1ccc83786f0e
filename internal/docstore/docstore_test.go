package docstore

import (
	"errors"
	"testing"
)

func TestPaths(t *testing.T) {
	tests := []struct {
		path       string
		isDocument bool
	}{
		{"groups", false},
		{"groups/g1", true},
		{"groups/g1/messages", false},
		{"groups/g1/tournaments/t1/participants/u1", true},
		{"groups//messages", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ValidateDocumentPath(tt.path)
			if tt.isDocument && err != nil {
				t.Errorf("expected document path, got %v", err)
			}
			if !tt.isDocument && !errors.Is(err, ErrInvalidPath) {
				t.Errorf("expected ErrInvalidPath, got %v", err)
			}
		})
	}

	parent, id := Split("groups/g1/messages/m1")
	if parent != "groups/g1/messages" || id != "m1" {
		t.Errorf("unexpected split: %q %q", parent, id)
	}
	if got := Join("wallets", "u1", "tx"); got != "wallets/u1/tx" {
		t.Errorf("unexpected join: %q", got)
	}
}

func TestQueryBuildersCopy(t *testing.T) {
	base := Collection("groups").Where("members", OpArrayContains, "u1")
	ordered := base.Order("createdAt", Desc).Take(5)
	other := base.Where("code", OpEqual, "123456")

	if len(base.Filters) != 1 || base.OrderBy != "" || base.Limit != 0 {
		t.Errorf("base query was mutated: %+v", base)
	}
	if len(ordered.Filters) != 1 || ordered.OrderBy != "createdAt" || ordered.Direction != Desc || ordered.Limit != 5 {
		t.Errorf("unexpected ordered query: %+v", ordered)
	}
	if len(other.Filters) != 2 {
		t.Errorf("expected 2 filters, got %d", len(other.Filters))
	}
	if u := ordered.Unordered(); u.OrderBy != "" || u.Limit != 5 {
		t.Errorf("Unordered should keep the limit and drop the order: %+v", u)
	}
}

func TestCollectionLabel(t *testing.T) {
	if got := collectionLabel("groups/abc/tournaments/t1/participants"); got != "groups/*/tournaments/*/participants" {
		t.Errorf("unexpected label %q", got)
	}
	if got := collectionLabel("users"); got != "users" {
		t.Errorf("unexpected label %q", got)
	}
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/screens"
	"github.com/unicollab/backend/internal/session"
)

func TestHTTPError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"validation", &repositories.ValidationError{Field: "text", Message: "is required"}, http.StatusBadRequest, "text is required"},
		{"not authenticated", session.ErrNotAuthenticated, http.StatusUnauthorized, screens.MsgPermission},
		{"invalid code", fmt.Errorf("join: %w", repositories.ErrInvalidGroupCode), http.StatusNotFound, screens.MsgInvalidCode},
		{"group gone", repositories.ErrGroupNotFound, http.StatusNotFound, screens.MsgGroupGone},
		{"missing document", fmt.Errorf("users/x: %w", docstore.ErrNotFound), http.StatusNotFound, "Not found"},
		{"not a member", repositories.ErrNotGroupMember, http.StatusForbidden, screens.MsgNotMember},
		{"not recipient", repositories.ErrNotRecipient, http.StatusForbidden, ""},
		{"already answered", repositories.ErrFriendRequestResolved, http.StatusConflict, ""},
		{"exhausted", repositories.ErrJoinCodeExhausted, http.StatusServiceUnavailable, screens.MsgCodeExhausted},
		{"timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, screens.MsgNetwork},
		{"backend failure", errors.New("boom"), http.StatusInternalServerError, screens.MsgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var he *echo.HTTPError
			if !errors.As(httpError(tt.err), &he) {
				t.Fatalf("expected *echo.HTTPError")
			}
			if he.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, he.Code)
			}
			if tt.wantMsg != "" && he.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %v", tt.wantMsg, he.Message)
			}
		})
	}
}

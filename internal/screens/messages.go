package screens

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/session"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Display strings shown to users.
const (
	MsgNetwork         = "Network error. Check your connection."
	MsgPermission      = "Permission denied. Please sign in again."
	MsgGroupGone       = "This group no longer exists."
	MsgNotMember       = "You are not a member of this group."
	MsgGeneric         = "Something went wrong."
	MsgInvalidCode     = "Invalid group code"
	MsgCodeExhausted   = "Unable to generate unique code. Try again."
	MsgGroupCreated    = "Group created ✅"
	MsgGroupJoined     = "Joined group 🎉"
	MsgNoGroups        = "No groups yet. Create or join one to get started."
	MsgNoSearchResults = "No results. Try a different search word."
)

// UserMessage turns an error into the sentence shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return MsgPermission
	case errors.Is(err, repositories.ErrGroupNotFound), errors.Is(err, docstore.ErrNotFound):
		return MsgGroupGone
	case errors.Is(err, repositories.ErrNotGroupMember):
		return MsgNotMember
	case errors.Is(err, repositories.ErrInvalidGroupCode):
		return MsgInvalidCode
	case errors.Is(err, repositories.ErrJoinCodeExhausted):
		return MsgCodeExhausted
	case isNetwork(err):
		return MsgNetwork
	}

	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.PermissionDenied, codes.Unauthenticated:
			return MsgPermission
		case codes.Unavailable, codes.DeadlineExceeded:
			return MsgNetwork
		}
	}

	raw := strings.TrimSpace(err.Error())
	lower := strings.ToLower(raw)
	switch {
	case raw == "":
		return MsgGeneric
	case strings.Contains(lower, "network"):
		return MsgNetwork
	case strings.Contains(lower, "permission"):
		return MsgPermission
	}
	return raw
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

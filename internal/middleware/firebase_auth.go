package middleware

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/session"
)

// IDTokenVerifier is the part of the Firebase auth client used to accept
// Firebase ID tokens directly.
type IDTokenVerifier interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
}

// firebaseCaller verifies a Firebase ID token. A linked account's uid wins
// over the Firebase uid.
func firebaseCaller(ctx context.Context, verifier IDTokenVerifier, accounts repositories.AccountRepository, idToken string) (session.Caller, error) {
	token, err := verifier.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return session.Caller{}, err
	}
	email, _ := token.Claims["email"].(string)
	caller := session.Caller{UID: token.UID, Email: email, Provider: session.ProviderFirebase}
	if accounts != nil {
		if account, err := accounts.GetAccountByFirebaseUID(token.UID); err == nil {
			caller.UID = account.UID
		}
	}
	return caller, nil
}

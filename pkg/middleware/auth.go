package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/handlers/respond"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage"
)

// TokenVerifier turns a bearer token into the account key it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// AccountLookup loads the account behind a verified token.
type AccountLookup interface {
	GetAccount(ctx context.Context, accountKey string) (*models.Account, error)
}

// Authenticate requires a bearer token and attaches the caller's
// auth.Principal to the request context. Tokens whose subject no longer
// names an account are rejected.
func Authenticate(verifier TokenVerifier, accounts AccountLookup, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respond.Error(w, r, logger, fmt.Errorf("%w: missing bearer token", auth.ErrUnauthenticated))
				return
			}

			accountKey, err := verifier.Verify(token)
			if err != nil {
				respond.Error(w, r, logger, err)
				return
			}

			account, err := accounts.GetAccount(r.Context(), accountKey)
			if errors.Is(err, storage.ErrAccountNotFound) {
				respond.Error(w, r, logger, fmt.Errorf("%w: unknown account", auth.ErrUnauthenticated))
				return
			}
			if err != nil {
				respond.Error(w, r, logger, err)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.PrincipalFromAccount(account))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chris/campus-ledger/pkg/api"
	"github.com/chris/campus-ledger/pkg/auth"
	"github.com/chris/campus-ledger/pkg/models"
	"github.com/chris/campus-ledger/pkg/storage/memory"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("Propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))
	})

	t.Run("Generated", func(t *testing.T) {
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})

	t.Run("Shared With chi", func(t *testing.T) {
		var chiID string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chiID = chimiddleware.GetReqID(r.Context())
		}))

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, chiID, second.Header().Get(RequestIDHeader))
		assert.NotEqual(t, first.Header().Get(RequestIDHeader), second.Header().Get(RequestIDHeader))
	})

	assert.Empty(t, GetRequestID(context.Background()))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, err := store.CreateAccount(ctx, &models.Account{AccountKey: "key-1", IDNumber: "2020-0001", Role: models.RoleStudent}, nil)
	require.NoError(t, err)

	verifier := auth.NewVerifier("secret", "campus-ledger")

	var principal auth.Principal
	var reached bool
	h := Authenticate(verifier, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		principal, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(authorization string) *httptest.ResponseRecorder {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/accounts/2020-0001", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Success", func(t *testing.T) {
		token, err := verifier.Sign("key-1", time.Hour)
		require.NoError(t, err)

		rr := serve("Bearer " + token)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.True(t, reached)
		assert.Equal(t, "key-1", principal.AccountKey)
		assert.Equal(t, "2020-0001", principal.IDNumber)
		assert.Equal(t, models.RoleStudent, principal.Role)
	})

	t.Run("Missing Token", func(t *testing.T) {
		rr := serve("")

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, reached)

		var body api.Error
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "authentication required", body.Message)
	})

	t.Run("Wrong Scheme", func(t *testing.T) {
		rr := serve("Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		rr := serve("Bearer not-a-token")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, reached)
	})

	t.Run("Unknown Account", func(t *testing.T) {
		token, err := verifier.Sign("deleted-key", time.Hour)
		require.NoError(t, err)

		rr := serve("Bearer " + token)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, reached)
	})
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(NewStructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})))

	req := httptest.NewRequest(http.MethodPost, "/transactions", nil)
	req.Header.Set(RequestIDHeader, "req-9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "server error", entry["msg"])

	request := entry["request"].(map[string]any)
	assert.Equal(t, "req-9", request["id"])
	assert.Equal(t, "/transactions", request["path"])

	response := entry["response"].(map[string]any)
	assert.Equal(t, float64(500), response["status"])
}

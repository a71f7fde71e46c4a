package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pratodigital/delivery-api/internal/domain/auth"
)

type stubKeyRepo struct {
	keys map[string]*auth.APIKeyInfo // keyed by hash
}

func (s *stubKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if k, ok := s.keys[hash]; ok {
		return k, nil
	}
	return nil, auth.ErrKeyNotFound
}

func TestAPIKeyAuth(t *testing.T) {
	pepper := []byte("test-pepper")
	hashKey := func(key string) string {
		mac := hmac.New(sha256.New, pepper)
		mac.Write([]byte(key))
		return hex.EncodeToString(mac.Sum(nil))
	}

	repo := &stubKeyRepo{keys: map[string]*auth.APIKeyInfo{
		hashKey("valid-key"): {ID: "key-1", KeyHash: hashKey("valid-key"), Name: "gateway"},
	}}

	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	protected := APIKeyAuth(repo, pepper)(next)

	t.Run("valid key passes", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/api/orders/x", nil)
		req.Header.Set("api_key", "valid-key")
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, reached)
	})

	t.Run("missing key rejected", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/api/orders/x", nil)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, reached)
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/api/orders/x", nil)
		req.Header.Set("api_key", "wrong-key")
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, reached)
	})

	t.Run("key hashed with a different pepper rejected", func(t *testing.T) {
		otherMac := hmac.New(sha256.New, []byte("other-pepper"))
		otherMac.Write([]byte("valid-key"))
		otherRepo := &stubKeyRepo{keys: map[string]*auth.APIKeyInfo{
			hex.EncodeToString(otherMac.Sum(nil)): {ID: "key-2", KeyHash: hex.EncodeToString(otherMac.Sum(nil))},
		}}
		otherProtected := APIKeyAuth(otherRepo, pepper)(next)

		reached = false
		req := httptest.NewRequest(http.MethodGet, "/api/orders/x", nil)
		req.Header.Set("api_key", "valid-key")
		rec := httptest.NewRecorder()

		otherProtected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, reached)
	})
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacto/internal/notification"
	"pacto/internal/notification/service"
	id "pacto/pkg/domain"
	"pacto/pkg/testutil"
)

func newRouter(t *testing.T) (chi.Router, *service.Service) {
	t.Helper()
	svc := service.NewService(notification.NewInMemoryStore(), nil)
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r, svc
}

func authed(req *http.Request, userID id.UserID) *http.Request {
	return testutil.WithUserID(req, userID.String())
}

func TestHandleListUnread(t *testing.T) {
	router, svc := newRouter(t)
	userID := id.NewUserID()
	consentID := id.NewConsentID()
	require.NoError(t, svc.Emit(context.Background(), userID, notification.TypeConsentRequest, "New consent request from Alice", consentID))

	req := authed(httptest.NewRequest(http.MethodGet, "/notifications/unread", nil), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var items []NotificationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "CONSENT_REQUEST", items[0].Type)
	assert.Equal(t, consentID.String(), items[0].ConsentID)

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/notifications/unread", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleMarkRead(t *testing.T) {
	router, svc := newRouter(t)
	ctx := context.Background()
	userID := id.NewUserID()
	require.NoError(t, svc.Emit(ctx, userID, notification.TypeConsentRequest, "one", id.NewConsentID()))

	unread, err := svc.ListUnread(ctx, userID)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	body, err := json.Marshal(map[string][]string{"notificationIds": {unread[0].ID.String()}})
	require.NoError(t, err)

	req := authed(httptest.NewRequest(http.MethodPut, "/notifications/mark-as-read", bytes.NewReader(body)), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	remaining, err := svc.ListUnread(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	t.Run("invalid id rejected", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPut, "/notifications/mark-as-read", bytes.NewBufferString(`{"notificationIds":["nope"]}`)), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

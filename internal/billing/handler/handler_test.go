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

	"pacto/internal/billing"
	id "pacto/pkg/domain"
	"pacto/pkg/testutil"
)

type fakeService struct {
	sheetFn   func(ctx context.Context, userID id.UserID, quantity int) (billing.PaymentSheet, error)
	succeeded []string
}

func (f *fakeService) CreatePaymentSheet(ctx context.Context, userID id.UserID, quantity int) (billing.PaymentSheet, error) {
	return f.sheetFn(ctx, userID, quantity)
}

func (f *fakeService) HandlePaymentSucceeded(_ context.Context, eventID string, _ id.UserID, _ int) error {
	f.succeeded = append(f.succeeded, eventID)
	return nil
}

func newRouter(svc Service) chi.Router {
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterPublic(r)
	return r
}

func TestHandlePaymentSheet(t *testing.T) {
	userID := id.NewUserID()
	svc := &fakeService{
		sheetFn: func(_ context.Context, gotUser id.UserID, quantity int) (billing.PaymentSheet, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, 10, quantity)
			return billing.PaymentSheet{ClientSecret: "pi_secret", CustomerID: "cus_1", AmountCents: 1000}, nil
		},
	}
	router := newRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/packs/payment-sheet", bytes.NewBufferString(`{"quantity":10}`))
	req = testutil.WithUserID(req, userID.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var sheet billing.PaymentSheet
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sheet))
	assert.Equal(t, 1000, sheet.AmountCents)

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/packs/payment-sheet", bytes.NewBufferString(`{"quantity":1}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/packs/payment-sheet", bytes.NewBufferString(`{"quantity":0}`))
		req = testutil.WithUserID(req, userID.String())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleWebhook(t *testing.T) {
	userID := id.NewUserID()
	svc := &fakeService{}
	router := newRouter(svc)

	event := func(eventType string) *bytes.Buffer {
		payload := map[string]any{
			"id":   "evt_1",
			"type": eventType,
			"data": map[string]any{
				"object": map[string]any{
					"metadata": map[string]string{
						"userId":       userID.String(),
						"packQuantity": "10",
					},
				},
			},
		}
		raw, _ := json.Marshal(payload)
		return bytes.NewBuffer(raw)
	}

	t.Run("succeeded event applied", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/webhook", event("payment_intent.succeeded")))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"evt_1"}, svc.succeeded)
	})

	t.Run("other event types acknowledged without applying", func(t *testing.T) {
		before := len(svc.succeeded)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/webhook", event("payment_intent.created")))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, svc.succeeded, before)
	})

	t.Run("bad metadata rejected", func(t *testing.T) {
		body := bytes.NewBufferString(`{"id":"evt_2","type":"payment_intent.succeeded","data":{"object":{"metadata":{"userId":"nope","packQuantity":"10"}}}}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/webhook", body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

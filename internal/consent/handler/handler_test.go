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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacto/internal/consent"
	"pacto/internal/consent/service"
	"pacto/internal/user"
	id "pacto/pkg/domain"
	dErrors "pacto/pkg/domain-errors"
	"pacto/pkg/testutil"
)

type fakeService struct {
	createFn  func(ctx context.Context, initiatorID id.UserID, partnerEmail string, payload []byte) (consent.Consent, error)
	confirmFn func(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error)
	historyFn func(ctx context.Context, userID id.UserID, statusFilter string, skip, take int) ([]service.HistoryEntry, error)
	decryptFn func(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) ([]byte, error)
}

func (f *fakeService) Create(ctx context.Context, initiatorID id.UserID, partnerEmail string, payload []byte) (consent.Consent, error) {
	return f.createFn(ctx, initiatorID, partnerEmail, payload)
}

func (f *fakeService) AcceptByPartner(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error) {
	return f.confirmFn(ctx, actingUserID, consentID)
}

func (f *fakeService) RefuseByPartner(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error) {
	return f.confirmFn(ctx, actingUserID, consentID)
}

func (f *fakeService) ConfirmBiometric(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) (consent.Consent, error) {
	return f.confirmFn(ctx, actingUserID, consentID)
}

func (f *fakeService) SoftDelete(context.Context, id.UserID, id.ConsentID) error {
	return nil
}

func (f *fakeService) ListHistory(ctx context.Context, userID id.UserID, statusFilter string, skip, take int) ([]service.HistoryEntry, error) {
	return f.historyFn(ctx, userID, statusFilter, skip, take)
}

func (f *fakeService) DecryptPayload(ctx context.Context, actingUserID id.UserID, consentID id.ConsentID) ([]byte, error) {
	return f.decryptFn(ctx, actingUserID, consentID)
}

func newRouter(svc Service) chi.Router {
	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func authed(req *http.Request, userID id.UserID) *http.Request {
	return testutil.WithUserID(req, userID.String())
}

func TestHandleCreate(t *testing.T) {
	userID := id.NewUserID()
	created := consent.Consent{
		ID:                 id.NewConsentID(),
		UserID:             userID,
		PartnerID:          id.NewUserID(),
		Status:             consent.StatusPending,
		PaymentStatus:      consent.PaymentPending,
		InitiatorConfirmed: true,
		CreatedAt:          time.Now(),
	}
	svc := &fakeService{
		createFn: func(_ context.Context, initiatorID id.UserID, partnerEmail string, payload []byte) (consent.Consent, error) {
			assert.Equal(t, userID, initiatorID)
			assert.Equal(t, "bob@example.com", partnerEmail)
			assert.JSONEq(t, `{"terms":"agreed"}`, string(payload))
			return created, nil
		},
	}
	router := newRouter(svc)

	t.Run("creates and returns 201", func(t *testing.T) {
		body := bytes.NewBufferString(`{"partnerEmail":"bob@example.com","data":{"terms":"agreed"}}`)
		req := authed(httptest.NewRequest(http.MethodPost, "/consent", body), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp ConsentResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, created.ID.String(), resp.ID)
		assert.Equal(t, "PENDING", resp.Status)
		assert.True(t, resp.InitiatorConfirmed)
	})

	t.Run("rejects missing partner email", func(t *testing.T) {
		body := bytes.NewBufferString(`{"data":{"terms":"agreed"}}`)
		req := authed(httptest.NewRequest(http.MethodPost, "/consent", body), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		body := bytes.NewBufferString(`{"partnerEmail":"bob@example.com","data":{}}`)
		req := httptest.NewRequest(http.MethodPost, "/consent", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleCreateErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"insufficient credit", dErrors.New(dErrors.CodeInsufficientCredit, "no consent credits available"), http.StatusBadRequest},
		{"partner not found", dErrors.New(dErrors.CodePartnerNotFound, "no user with that email"), http.StatusBadRequest},
		{"timeout", dErrors.New(dErrors.CodeTimeout, "contended"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{
				createFn: func(context.Context, id.UserID, string, []byte) (consent.Consent, error) {
					return consent.Consent{}, tc.err
				},
			}
			router := newRouter(svc)
			body := bytes.NewBufferString(`{"partnerEmail":"bob@example.com","data":{"k":1}}`)
			req := authed(httptest.NewRequest(http.MethodPost, "/consent", body), id.NewUserID())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestHandleConfirmBiometric(t *testing.T) {
	userID := id.NewUserID()
	consentID := id.NewConsentID()
	now := time.Now()
	svc := &fakeService{
		confirmFn: func(_ context.Context, actingUserID id.UserID, gotID id.ConsentID) (consent.Consent, error) {
			assert.Equal(t, userID, actingUserID)
			assert.Equal(t, consentID, gotID)
			return consent.Consent{
				ID:                   consentID,
				UserID:               userID,
				Status:               consent.StatusAccepted,
				InitiatorConfirmed:   true,
				PartnerConfirmed:     true,
				BiometricValidated:   true,
				BiometricValidatedAt: &now,
			}, nil
		},
	}
	router := newRouter(svc)

	req := authed(httptest.NewRequest(http.MethodPut, "/consent/"+consentID.String()+"/confirm-biometric", nil), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ConsentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.BiometricValidated)
	require.NotNil(t, resp.BiometricValidatedAt)

	t.Run("invalid id", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPut, "/consent/not-a-uuid/confirm-biometric", nil), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleHistory(t *testing.T) {
	userID := id.NewUserID()
	partnerID := id.NewUserID()
	svc := &fakeService{
		historyFn: func(_ context.Context, gotUser id.UserID, statusFilter string, skip, take int) ([]service.HistoryEntry, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, "ACCEPTED", statusFilter)
			assert.Equal(t, 5, skip)
			assert.Equal(t, 10, take)
			// Entries always carry both profiles, ID at minimum.
			return []service.HistoryEntry{{
				Consent:   consent.Consent{ID: id.NewConsentID(), UserID: userID, PartnerID: partnerID, Status: consent.StatusAccepted},
				Initiator: user.PublicProfile{ID: userID, FirstName: "Alice"},
				Partner:   user.PublicProfile{ID: partnerID, FirstName: "Bob"},
			}}, nil
		},
	}
	router := newRouter(svc)

	req := authed(httptest.NewRequest(http.MethodGet, "/consent/history?status=ACCEPTED&skip=5&take=10", nil), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var items []HistoryItemResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "ACCEPTED", items[0].Status)
	assert.Equal(t, "Alice", items[0].Initiator.FirstName)
	assert.Equal(t, partnerID.String(), items[0].Partner.ID.String())

	t.Run("non-integer pagination rejected", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/consent/history?skip=x", nil), userID)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandlePayload(t *testing.T) {
	userID := id.NewUserID()
	consentID := id.NewConsentID()
	svc := &fakeService{
		decryptFn: func(_ context.Context, actingUserID id.UserID, gotID id.ConsentID) ([]byte, error) {
			if actingUserID != userID {
				return nil, dErrors.New(dErrors.CodeUnauthorized, "not authorized")
			}
			return []byte(`{"terms":"agreed"}`), nil
		},
	}
	router := newRouter(svc)

	req := authed(httptest.NewRequest(http.MethodGet, "/consent/"+consentID.String()+"/payload", nil), userID)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp PayloadResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.JSONEq(t, `{"terms":"agreed"}`, string(resp.Data))

	t.Run("non-participant gets 401", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/consent/"+consentID.String()+"/payload", nil), id.NewUserID())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

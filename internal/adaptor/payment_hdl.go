package adaptor

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"booking-payments/internal/dto/request"
	"booking-payments/internal/dto/response"
	"booking-payments/internal/usecase"
	"booking-payments/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	preference usecase.PreferenceService
	webhook    usecase.WebhookService
	reconcile  usecase.ReconcileService
	credential usecase.CredentialService
	log        *zap.Logger
}

func NewPaymentHandler(
	preference usecase.PreferenceService,
	webhook usecase.WebhookService,
	reconcile usecase.ReconcileService,
	credential usecase.CredentialService,
	log *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		preference: preference,
		webhook:    webhook,
		reconcile:  reconcile,
		credential: credential,
		log:        log.With(zap.String("handler", "payment")),
	}
}

// CreatePreference handles POST /payments/preferences
func (h *PaymentHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	pref, err := h.preference.CreatePreference(r.Context(), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create preference")
		return
	}

	utils.ResponseJSON(w, http.StatusCreated, pref)
}

// Webhook handles POST /payments/webhook. The payment id is read from the
// JSON body or from the ?data.id= / ?id=&topic= query forms.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Unable to read request body", nil)
		return
	}

	var body request.WebhookNotification
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			h.log.Warn("Webhook body is not valid JSON, falling back to query", zap.Error(err))
		}
	}

	query := r.URL.Query()
	in := &usecase.WebhookInput{
		PaymentID:    utils.FirstNonEmpty(body.Data.ID.String(), query.Get("data.id"), query.Get("id")),
		PreferenceID: utils.FirstNonEmpty(body.PreferenceID, query.Get("preference_id")),
		OwnerID:      query.Get("owner_id"),
		Topic:        utils.FirstNonEmpty(body.Type, body.Topic, query.Get("type"), query.Get("topic")),
		Signature:    r.Header.Get("x-signature"),
		RawBody:      raw,
	}

	result, err := h.webhook.HandleWebhook(r.Context(), in)
	if err != nil {
		handleServiceError(h.log, w, err, "handle webhook")
		return
	}

	utils.ResponseJSON(w, http.StatusOK, result)
}

// Verify handles GET /payments/verify?preference_id=
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	preferenceID := r.URL.Query().Get("preference_id")
	if preferenceID == "" {
		utils.ResponseBadRequest(w, "preference_id is required", nil)
		return
	}

	result, err := h.reconcile.VerifyPreference(r.Context(), preferenceID)
	if err != nil {
		handleServiceError(h.log, w, err, "verify preference")
		return
	}

	utils.ResponseJSON(w, http.StatusOK, result)
}

// Reconcile handles POST /payments/reconcile (admin only)
func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconcile.RunManual(r.Context())
	if err != nil {
		handleServiceError(h.log, w, err, "reconcile payments")
		return
	}

	utils.ResponseJSON(w, http.StatusOK, result)
}

// SaveCredentials handles PUT /payments/credentials/{owner_id} (admin only)
func (h *PaymentHandler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")

	var req request.SaveCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.credential.Save(r.Context(), ownerID, &req); err != nil {
		handleServiceError(h.log, w, err, "save credentials")
		return
	}

	utils.ResponseSuccess(w, "Credentials saved", response.CredentialsStatusResponse{OwnerID: ownerID, Configured: true})
}

// CredentialsStatus handles GET /payments/credentials/{owner_id} (admin only)
func (h *PaymentHandler) CredentialsStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.credential.Status(r.Context(), chi.URLParam(r, "owner_id"))
	if err != nil {
		handleServiceError(h.log, w, err, "get credentials status")
		return
	}

	utils.ResponseJSON(w, http.StatusOK, status)
}

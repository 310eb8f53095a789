package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/chainforge/chainforge/internal/ctxkeys"
	"github.com/chainforge/chainforge/internal/service/payment"
)

type BillingHandler struct {
	provider payment.Provider
}

func NewBillingHandler(provider payment.Provider) *BillingHandler {
	return &BillingHandler{provider: provider}
}

type checkoutRequest struct {
	PlanID   string `json:"plan_id" validate:"required,oneof=pro premium"`
	Interval string `json:"interval" validate:"required,oneof=monthly yearly"`
}

func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.provider.CreateCheckoutURL(user.ID, req.PlanID, req.Interval, user.Email, user.Name)
	if err != nil {
		slog.Error("failed to create checkout", "error", err, "user_id", user.ID, "provider", h.provider.Name())
		respondError(w, http.StatusInternalServerError, "failed to create checkout")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	url, err := h.provider.CustomerPortalURL(user.ID)
	if err != nil {
		slog.Error("failed to create portal session", "error", err, "user_id", user.ID, "provider", h.provider.Name())
		respondError(w, http.StatusInternalServerError, "failed to open customer portal")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	subscription := ctxkeys.Subscription(r.Context())
	respondJSON(w, http.StatusOK, subscription)
}

// Webhook receives provider events. Signature verification happens inside the
// provider; the endpoint itself is unauthenticated.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read payload")
		return
	}

	err = h.provider.HandleWebhook(payload, r.Header)
	if err != nil {
		slog.Error("webhook processing failed", "error", err, "provider", h.provider.Name())
		respondError(w, http.StatusBadRequest, "webhook rejected")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// AngelaMos | 2026
// webhook.go

package payment

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/carterperez-dev/templates/tutor-backend/internal/core"
)

const maxWebhookBody = 64 << 10

// StripeWebhook verifies the Stripe-Signature header and settles checkout
// sessions. The session id is the transaction id the client registered.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.stripeSecret == "" {
		core.JSONError(w, core.NewAppError(
			nil, "card payments are not configured",
			http.StatusServiceUnavailable, "NOT_CONFIGURED",
		))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "unreadable body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		h.stripeSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		slog.Warn("stripe webhook rejected", "error", err)
		core.BadRequest(w, "invalid signature")
		return
	}

	var success bool
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		success = true
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		success = false
	default:
		w.WriteHeader(http.StatusOK)
		return
	}

	var session stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &session) != nil || session.ID == "" {
		slog.Warn("stripe event without checkout session", "event_id", event.ID)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Completed sessions with delayed methods stay unpaid until the async
	// success event arrives.
	if event.Type == stripe.EventTypeCheckoutSessionCompleted &&
		session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		w.WriteHeader(http.StatusOK)
		return
	}

	_, err = h.service.Confirm(r.Context(), Confirmation{
		TransactionID: session.ID,
		Success:       success,
		Reference:     event.ID,
		Provider:      ProviderCard,
		Paid:          sessionPaid(session),
	})
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// MpesaWebhook receives Daraja STK push results. Daraja does not sign its
// callbacks, so the URL carries a shared token.
func (h *Handler) MpesaWebhook(w http.ResponseWriter, r *http.Request) {
	if h.mpesaToken == "" || !core.SecretEqual(h.mpesaToken, r.URL.Query().Get("token")) {
		core.Unauthorized(w, "invalid callback token")
		return
	}

	var cb mpesaCallback
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&cb); err != nil {
		slog.Warn("malformed mpesa callback", "error", err)
		writeMpesaAck(w, http.StatusOK)
		return
	}

	stk := cb.Body.STKCallback
	if stk.CheckoutRequestID == "" {
		slog.Warn("mpesa callback without checkout request id")
		writeMpesaAck(w, http.StatusOK)
		return
	}

	_, err := h.service.Confirm(r.Context(), Confirmation{
		TransactionID: stk.CheckoutRequestID,
		Success:       stk.ResultCode == 0,
		Reference:     mpesaReceipt(cb),
		Provider:      ProviderMobileMoney,
		Paid:          mpesaPaid(cb),
	})
	if err != nil {
		slog.Error("mpesa confirmation failed",
			"checkout_request_id", stk.CheckoutRequestID,
			"error", err,
		)
		writeMpesaAck(w, http.StatusInternalServerError)
		return
	}

	writeMpesaAck(w, http.StatusOK)
}

func sessionPaid(s stripe.CheckoutSession) *Money {
	if s.Currency == "" {
		return nil
	}
	return &Money{Amount: s.AmountTotal, Currency: string(s.Currency)}
}

func mpesaItemValue(cb mpesaCallback, name string) any {
	meta := cb.Body.STKCallback.CallbackMetadata
	if meta == nil {
		return nil
	}
	for _, item := range meta.Item {
		if item.Name == name {
			return item.Value
		}
	}
	return nil
}

func mpesaReceipt(cb mpesaCallback) string {
	s, _ := mpesaItemValue(cb, "MpesaReceiptNumber").(string)
	return s
}

// mpesaPaid converts the callback's whole-shilling Amount to cents.
func mpesaPaid(cb mpesaCallback) *Money {
	amount, ok := mpesaItemValue(cb, "Amount").(float64)
	if !ok {
		return nil
	}
	return &Money{Amount: int64(math.Round(amount * 100)), Currency: "kes"}
}

func writeMpesaAck(w http.ResponseWriter, status int) {
	ack := mpesaAck{ResultCode: 0, ResultDesc: "Accepted"}
	if status != http.StatusOK {
		ack = mpesaAck{ResultCode: 1, ResultDesc: "Retry"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ack) //nolint:errcheck // best-effort ack
}

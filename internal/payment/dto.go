// AngelaMos | 2026
// dto.go

package payment

import (
	"time"
)

type InitiateRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,min=4,max=128,printascii"`
	Provider      string `json:"provider"       validate:"required,oneof=card mobile_money"`
}

type PaymentResponse struct {
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Provider      Provider  `json:"provider"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toPaymentResponse(p PendingPayment) *PaymentResponse {
	return &PaymentResponse{
		TransactionID: p.ID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Provider:      p.Provider,
		Status:        "pending",
		CreatedAt:     p.CreatedAt,
	}
}

// mpesaCallback is the Daraja STK push result body.
type mpesaCallback struct {
	Body struct {
		STKCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []mpesaItem `json:"Item"`
			} `json:"CallbackMetadata,omitempty"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type mpesaItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

type mpesaAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

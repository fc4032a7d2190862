package models

import (
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/utils"
)

type PaymentMethod string

const (
	PaymentMethodMobileMoney    PaymentMethod = "mobile_money"
	PaymentMethodMomoPay        PaymentMethod = "momo_pay"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodCard           PaymentMethod = "card"
)

// CashOnDelivery tracks the collection sub-state of a COD payment.
type CashOnDelivery struct {
	CollectedBy string             `json:"collectedBy,omitempty"`
	CollectedAt *utils.RFC3339Date `json:"collectedAt,omitempty"`
}

// Payment is the authoritative payment aggregate. An order references at most
// one payment; the payment-shaped fields embedded on Order are a derived copy
// updated only in the same transaction as this record.
type Payment struct {
	ID             string            `json:"id"`
	OrderID        string            `json:"orderId"`
	Amount         float64           `json:"amount"`
	Method         PaymentMethod     `json:"paymentMethod"`
	Status         PaymentStatus     `json:"status"`
	MobileMoney    *MobileMoney      `json:"mobileMoney,omitempty"`
	CashOnDelivery *CashOnDelivery   `json:"cashOnDelivery,omitempty"`
	CreatedAt      utils.RFC3339Date `json:"createdAt"`
}

// PaymentAck is the synchronous answer to a payment initiation: the gateway
// accepted the request and the customer has to approve it on their phone.
type PaymentAck struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// PaymentCallback is the gateway's asynchronous result, field names verbatim
// from the gateway contract. The same shape is produced by the manual
// verification poll.
type PaymentCallback struct {
	RequestTransactionID string `json:"requesttransactionid"`
	TransactionID        string `json:"transactionid"`
	ResponseCode         string `json:"responsecode"`
	Status               string `json:"status"`
	StatusDesc           string `json:"statusdesc"`
	ReferenceNo          string `json:"referenceno"`
}

// Succeeded applies the gateway's documented success contract: response code
// "01" or the literal status "Successfully". Exact match only.
func (c PaymentCallback) Succeeded() bool {
	return c.ResponseCode == "01" || c.Status == "Successfully"
}

// CallbackResponse is what the gateway expects back; it only needs to know
// whether to stop retrying the callback.
type CallbackResponse struct {
	Message   string `json:"message"`
	Success   bool   `json:"success"`
	RequestID string `json:"request_id"`
}

// PaymentInitiationRequest is the body of a payment initiation call.
type PaymentInitiationRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// RefundRequest is the admin refund payload.
type RefundRequest struct {
	Reason string `json:"reason"`
}

// RefundResult reports the outcome of a refund attempt.
type RefundResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

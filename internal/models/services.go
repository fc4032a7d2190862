package models

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

//go:generate mockgen -destination=mocks/mock_jwt.go . JWTService
type JWTService interface {
	GenerateJWT(subject string) (string, error)

	ValidateToken(token string) (*jwt.Token, error)
}

//go:generate mockgen -destination=mocks/mock_order.go . OrderService
type OrderService interface {
	CreateOrder(ctx context.Context, draft OrderDraft) (*Order, error)

	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

//go:generate mockgen -destination=mocks/mock_payment.go . PaymentService
type PaymentService interface {
	InitiatePayment(ctx context.Context, orderID, phoneNumber string) (*PaymentAck, error)

	Refund(ctx context.Context, paymentID, reason, refundedBy string) (*RefundResult, error)
}

//go:generate mockgen -destination=mocks/mock_reconciliation.go . ReconciliationService
type ReconciliationService interface {
	ApplyCallback(ctx context.Context, callback PaymentCallback) error

	VerifyPayment(ctx context.Context, transactionID string) (*Order, error)

	StartPendingVerification(ctx context.Context) error
}

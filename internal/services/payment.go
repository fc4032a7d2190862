package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/database"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/logger"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrPaymentProcessing is the single user-facing initiation failure; the
	// gateway's reason stays in the logs.
	ErrPaymentProcessing = errors.New("payment processing failed")

	ErrPaymentNotFound         = errors.New("payment not found")
	ErrRefundIneligible        = errors.New("payment must be completed to be refunded")
	ErrPaymentAlreadyCompleted = errors.New("payment is already completed")
	ErrMissingPhoneNumber      = errors.New("phone number is required")
)

// PaymentService initiates mobile-money payments and handles refunds.
type PaymentService struct {
	storage            paymentStorage
	gateway            paymentGateway
	outbox             notificationPublisher
	pendingVerifyAfter time.Duration
}

type paymentStorage interface {
	FindOrder(ctx context.Context, orderID string) (*database.OrderDB, error)

	SavePaymentAttempt(ctx context.Context, orderID string, attempt database.PaymentAttemptDB) error

	FindPayment(ctx context.Context, paymentID string) (*database.PaymentDB, error)

	RefundPayment(ctx context.Context, paymentID, reason, refundedBy string) (*database.PaymentDB, error)
}

type paymentGateway interface {
	RequestPayment(ctx context.Context, amount float64, phoneNumber, transactionID string) (GatewayResult, error)
}

func NewPaymentService(storage paymentStorage, gateway paymentGateway, outbox notificationPublisher, pendingVerifyAfter time.Duration) *PaymentService {
	return &PaymentService{
		storage:            storage,
		gateway:            gateway,
		outbox:             outbox,
		pendingVerifyAfter: pendingVerifyAfter,
	}
}

// InitiatePayment starts a mobile-money payment attempt for an order. The
// fresh transaction id and pending sub-state are persisted before the
// gateway call; on acceptance a delayed verification poll is scheduled in
// case the callback never arrives.
func (p *PaymentService) InitiatePayment(ctx context.Context, orderID, phoneNumber string) (*models.PaymentAck, error) {
	if phoneNumber == "" {
		return nil, ErrMissingPhoneNumber
	}

	order, err := p.storage.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	if order.PaymentStatus.PaymentStatus == models.PaymentStatusCompleted ||
		order.PaymentStatus.PaymentStatus == models.PaymentStatusRefunded {
		return nil, ErrPaymentAlreadyCompleted
	}

	transactionID := GenerateTransactionID()

	attempt := database.PaymentAttemptDB{
		TransactionID: transactionID,
		Provider:      "mtn",
		PhoneNumber:   phoneNumber,
	}
	if err := p.storage.SavePaymentAttempt(ctx, orderID, attempt); err != nil {
		return nil, err
	}

	result, err := p.gateway.RequestPayment(ctx, order.Total, phoneNumber, transactionID)
	if err != nil {
		logger.Log.Error("payment initiation failed",
			zap.String("orderID", orderID),
			zap.String("transactionID", transactionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s", ErrPaymentProcessing, err.Error())
	}

	switch outcome := result.(type) {
	case GatewayAccepted:
		if err := p.outbox.PublishPaymentCheck(ctx, transactionID, p.pendingVerifyAfter); err != nil {
			logger.Log.Error("failed to schedule payment check", zap.Error(err), zap.String("transactionID", transactionID))
		}

		return &models.PaymentAck{
			TransactionID: transactionID,
			Status:        "pending",
			Message:       "payment request sent, approve it on your phone",
		}, nil
	case GatewayRejected:
		logger.Log.Error("gateway rejected payment request",
			zap.String("orderID", orderID),
			zap.String("transactionID", transactionID),
			zap.String("reason", outcome.Reason),
		)
		return nil, fmt.Errorf("%w: %s", ErrPaymentProcessing, outcome.Reason)
	case GatewayMalformed:
		logger.Log.Error("gateway returned an unexpected response",
			zap.String("orderID", orderID),
			zap.String("transactionID", transactionID),
			zap.String("raw", outcome.Raw),
		)
		return nil, ErrPaymentProcessing
	default:
		return nil, ErrPaymentProcessing
	}
}

// Refund reverses a completed payment. It dispatches to a method-specific
// refund call first and only then persists refunded/returned; a provider
// failure leaves both records untouched. refundedBy is the authenticated
// admin recorded in the order history.
func (p *PaymentService) Refund(ctx context.Context, paymentID, reason, refundedBy string) (*models.RefundResult, error) {
	if refundedBy == "" {
		refundedBy = "admin"
	}

	payment, err := p.storage.FindPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	if payment.Status.PaymentStatus != models.PaymentStatusCompleted {
		return nil, ErrRefundIneligible
	}

	if err := p.refundViaProvider(ctx, payment); err != nil {
		logger.Log.Error("provider refund failed",
			zap.String("paymentID", paymentID),
			zap.Error(err),
		)
		return &models.RefundResult{Success: false, Message: err.Error()}, nil
	}

	if _, err := p.storage.RefundPayment(ctx, paymentID, reason, refundedBy); err != nil {
		if errors.Is(err, database.ErrPaymentNotCompleted) {
			return nil, ErrRefundIneligible
		}
		return nil, err
	}

	logger.Log.Info("payment refunded",
		zap.String("paymentID", paymentID),
		zap.String("orderID", payment.OrderID),
		zap.String("reason", reason),
		zap.String("refundedBy", refundedBy),
	)

	return &models.RefundResult{Success: true, Message: "payment refunded"}, nil
}

// refundViaProvider dispatches by payment method. The provider calls are
// simulated until the gateway exposes a disbursement API.
func (p *PaymentService) refundViaProvider(ctx context.Context, payment *database.PaymentDB) error {
	switch models.PaymentMethod(payment.Method) {
	case models.PaymentMethodMobileMoney, models.PaymentMethodMomoPay:
		// TODO: call the gateway disbursement endpoint once the merchant
		// account is enabled for refunds.
		return nil
	case models.PaymentMethodCashOnDelivery:
		return nil
	case models.PaymentMethodCard:
		return nil
	default:
		return fmt.Errorf("unsupported payment method %q", payment.Method)
	}
}

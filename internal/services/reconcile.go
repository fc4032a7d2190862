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

// ReconciliationService applies the gateway's final payment outcome to the
// order and payment records. The pushed callback and the manual verification
// poll drive the same transition; once a payment is terminal every further
// attempt is a no-op.
type ReconciliationService struct {
	storage          reconciliationStorage
	gateway          gatewayStatusClient
	outbox           notificationPublisher
	jobQueueService  reconciliationJobQueueService
	restockOnFailure bool
}

type reconciliationStorage interface {
	ApplyReconciliation(ctx context.Context, transactionID string, rec database.ReconciliationDB) (*database.ReconcileOutcomeDB, error)

	FindOrderByExternalID(ctx context.Context, transactionID string) (*database.OrderDB, error)

	FindPendingMobileMoneyOrders(ctx context.Context) (*[]database.OrderDB, error)
}

type gatewayStatusClient interface {
	QueryStatus(ctx context.Context, transactionID string) (*models.PaymentCallback, error)
}

type notificationPublisher interface {
	PublishCustomerSMS(ctx context.Context, phoneNumber, message string) error

	PublishAdminAlert(ctx context.Context, message string) error

	PublishPaymentCheck(ctx context.Context, transactionID string, delay time.Duration) error

	PublishRestock(ctx context.Context, orderID string) error
}

type reconciliationJobQueueService interface {
	Enqueue(job Job) error

	PauseAndResume(delay time.Duration)
}

func NewReconciliationService(
	storage reconciliationStorage,
	gateway gatewayStatusClient,
	outbox notificationPublisher,
	jobQueueService reconciliationJobQueueService,
	restockOnFailure bool,
) *ReconciliationService {
	return &ReconciliationService{
		storage:          storage,
		gateway:          gateway,
		outbox:           outbox,
		jobQueueService:  jobQueueService,
		restockOnFailure: restockOnFailure,
	}
}

// ApplyCallback reconciles one gateway outcome. Success is the exact-match
// contract responsecode "01" or status "Successfully"; everything else is a
// failure. Replaying a callback for an already terminal payment changes
// nothing and sends no notifications.
func (rs *ReconciliationService) ApplyCallback(ctx context.Context, callback models.PaymentCallback) error {
	succeeded := callback.Succeeded()

	note := fmt.Sprintf("payment failed: %s", callback.StatusDesc)
	if succeeded {
		note = "payment completed via mobile money"
	}

	outcome, err := rs.storage.ApplyReconciliation(ctx, callback.RequestTransactionID, database.ReconciliationDB{
		Succeeded:       succeeded,
		TransactionID:   callback.TransactionID,
		ResponseCode:    callback.ResponseCode,
		ResponseMessage: callback.StatusDesc,
		ReferenceNo:     callback.ReferenceNo,
		Note:            note,
	})
	if err != nil {
		if errors.Is(err, database.ErrOrderNotFound) {
			logger.Log.Error("callback for unknown transaction id",
				zap.String("transactionID", callback.RequestTransactionID),
			)
			return ErrOrderNotFound
		}
		return err
	}

	if !outcome.Applied {
		logger.Log.Info("payment already reconciled, skipping",
			zap.String("transactionID", callback.RequestTransactionID),
			zap.String("paymentStatus", string(outcome.Order.PaymentStatus.PaymentStatus)),
		)
		return nil
	}

	logger.Log.Info("payment reconciled",
		zap.String("transactionID", callback.RequestTransactionID),
		zap.String("orderID", outcome.Order.ID),
		zap.Bool("succeeded", succeeded),
		zap.String("responseCode", callback.ResponseCode),
	)

	rs.notify(ctx, &outcome.Order, succeeded)

	if !succeeded && rs.restockOnFailure {
		if err := rs.outbox.PublishRestock(ctx, outcome.Order.ID); err != nil {
			logger.Log.Error("failed to publish restock intent", zap.Error(err), zap.String("orderID", outcome.Order.ID))
		}
	}

	return nil
}

// VerifyPayment polls the gateway for the outcome of a payment attempt and
// runs the callback transition on the answer. A still-pending gateway status
// is left alone: the attempt is not failed just because the poll came early.
func (rs *ReconciliationService) VerifyPayment(ctx context.Context, transactionID string) (*models.Order, error) {
	callback, err := rs.gateway.QueryStatus(ctx, transactionID)
	if err != nil {
		var throttled *TooManyRequestsError
		if errors.As(err, &throttled) {
			logger.Log.Warn("gateway throttled status polls, pausing the queue",
				zap.Duration("retryAfter", throttled.RetryAfter),
			)
			rs.jobQueueService.PauseAndResume(throttled.RetryAfter)
		}
		return nil, fmt.Errorf("failed to query payment status: %w", err)
	}

	if callback.Status == "Pending" && !callback.Succeeded() {
		logger.Log.Info("payment still pending at the gateway",
			zap.String("transactionID", transactionID),
		)
	} else if err := rs.ApplyCallback(ctx, *callback); err != nil {
		return nil, err
	}

	orderDB, err := rs.storage.FindOrderByExternalID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if orderDB == nil {
		return nil, ErrOrderNotFound
	}

	return OrderFromDB(orderDB), nil
}

// StartPendingVerification enqueues a verification poll for every order with
// an in-flight payment attempt. It runs at startup to catch callbacks lost
// while the process was down.
func (rs *ReconciliationService) StartPendingVerification(ctx context.Context) error {
	orders, err := rs.storage.FindPendingMobileMoneyOrders(ctx)
	if err != nil {
		return err
	}

	if orders == nil {
		return nil
	}

	for _, order := range *orders {
		if order.ExternalID == nil {
			continue
		}

		transactionID := *order.ExternalID
		err := rs.jobQueueService.Enqueue(func(ctx context.Context) {
			if _, err := rs.VerifyPayment(ctx, transactionID); err != nil {
				logger.Log.Error("pending verification failed",
					zap.String("transactionID", transactionID),
					zap.Error(err),
				)
			}
		})
		if err != nil {
			logger.Log.Error("failed to enqueue pending verification",
				zap.String("transactionID", transactionID),
				zap.Error(err),
			)
		}
	}

	return nil
}

// notify sends the customer and admin messages for a freshly applied
// outcome. Notification failures are logged and never surface: the
// reconciliation has already committed.
func (rs *ReconciliationService) notify(ctx context.Context, order *database.OrderDB, succeeded bool) {
	customerMessage := fmt.Sprintf(
		"Your payment for order %s could not be completed. The order was cancelled.",
		order.OrderNumber,
	)
	adminMessage := fmt.Sprintf("Payment failed for order %s (%.0f RWF)", order.OrderNumber, order.Total)
	if succeeded {
		customerMessage = fmt.Sprintf(
			"Your payment of %.0f RWF for order %s was received. Murakoze!",
			order.Total, order.OrderNumber,
		)
		adminMessage = fmt.Sprintf("Payment received for order %s (%.0f RWF)", order.OrderNumber, order.Total)
	}

	if order.CustomerPhone != "" {
		if err := rs.outbox.PublishCustomerSMS(ctx, order.CustomerPhone, customerMessage); err != nil {
			logger.Log.Error("failed to publish customer notification", zap.Error(err), zap.String("orderID", order.ID))
		}
	}

	if err := rs.outbox.PublishAdminAlert(ctx, adminMessage); err != nil {
		logger.Log.Error("failed to publish admin notification", zap.Error(err), zap.String("orderID", order.ID))
	}
}

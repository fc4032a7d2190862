package database

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDatabase(t *testing.T) *Database {
	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		t.Skip("DATABASE_URI is not set")
	}

	db, err := New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.RunMigrations())

	return db
}

// createPendingAttempt inserts an order with its payment record and an
// in-flight payment attempt keyed by transactionID.
func createPendingAttempt(t *testing.T, db *Database, transactionID string) string {
	ctx := context.Background()

	order := &OrderDB{
		ID:            uuid.New().String(),
		OrderNumber:   fmt.Sprintf("ORD-TEST-%s", transactionID),
		CustomerName:  "Alice",
		CustomerPhone: "0788123456",
		Subtotal:      3000,
		Tax:           540,
		ShippingCost:  1000,
		Total:         4540,
		Status:        OrderStatusDB{models.OrderStatusPending},
		PaymentStatus: PaymentStatusDB{models.PaymentStatusPending},
		PaymentMethod: "mobile_money",
	}
	items := []OrderItemDB{
		{ProductID: "p-1", Name: "Phone case", Quantity: 2, UnitPrice: 1500},
	}
	require.NoError(t, db.CreateOrder(ctx, order, items))

	require.NoError(t, db.CreatePayment(ctx, &PaymentDB{
		ID:      uuid.New().String(),
		OrderID: order.ID,
		Amount:  order.Total,
		Method:  "mobile_money",
		Status:  PaymentStatusDB{models.PaymentStatusPending},
	}))

	require.NoError(t, db.SavePaymentAttempt(ctx, order.ID, PaymentAttemptDB{
		TransactionID: transactionID,
		Provider:      "mtn",
		PhoneNumber:   "0788123456",
	}))

	return order.ID
}

func TestApplyReconciliationConcurrentConflict(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	transactionID := fmt.Sprintf("%d", time.Now().UnixNano())
	orderID := createPendingAttempt(t, db, transactionID)

	recs := []ReconciliationDB{
		{
			Succeeded:       true,
			TransactionID:   "gw-1",
			ResponseCode:    "01",
			ResponseMessage: "Transaction completed",
			ReferenceNo:     "ref-1",
			Note:            "payment completed via mobile money",
		},
		{
			Succeeded:       false,
			ResponseCode:    "99",
			ResponseMessage: "Insufficient funds",
			Note:            "payment failed: Insufficient funds",
		},
	}

	outcomes := make([]*ReconcileOutcomeDB, len(recs))
	errs := make([]error, len(recs))

	var wg sync.WaitGroup
	for i := range recs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = db.ApplyReconciliation(ctx, transactionID, recs[i])
		}(i)
	}
	wg.Wait()

	applied := 0
	var winner ReconciliationDB
	for i := range recs {
		require.NoError(t, errs[i])
		if outcomes[i].Applied {
			applied++
			winner = recs[i]
		}
	}
	require.Equal(t, 1, applied, "exactly one conflicting outcome must win")

	order, err := db.FindOrderByExternalID(ctx, transactionID)
	require.NoError(t, err)
	require.NotNil(t, order)

	if winner.Succeeded {
		assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus.PaymentStatus)
		assert.Equal(t, models.OrderStatusConfirmed, order.Status.OrderStatus)
		assert.NotNil(t, order.MobileMoney.CompletedAt)
		assert.Nil(t, order.MobileMoney.FailedAt)
	} else {
		assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus.PaymentStatus)
		assert.Equal(t, models.OrderStatusCancelled, order.Status.OrderStatus)
		assert.NotNil(t, order.MobileMoney.FailedAt)
		assert.Nil(t, order.MobileMoney.CompletedAt)
	}

	payment, err := db.FindPaymentByOrder(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, order.PaymentStatus.PaymentStatus, payment.Status.PaymentStatus)
}

func TestApplyReconciliationReplayKeepsOutcome(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	transactionID := fmt.Sprintf("%d", time.Now().UnixNano())
	createPendingAttempt(t, db, transactionID)

	outcome, err := db.ApplyReconciliation(ctx, transactionID, ReconciliationDB{
		Succeeded:       true,
		TransactionID:   "gw-1",
		ResponseCode:    "01",
		ResponseMessage: "Transaction completed",
		ReferenceNo:     "ref-1",
		Note:            "payment completed via mobile money",
	})
	require.NoError(t, err)
	require.True(t, outcome.Applied)

	order, err := db.FindOrderByExternalID(ctx, transactionID)
	require.NoError(t, err)
	require.NotNil(t, order.MobileMoney.CompletedAt)
	completedAt := *order.MobileMoney.CompletedAt

	// A late conflicting callback must not move the terminal state.
	replay, err := db.ApplyReconciliation(ctx, transactionID, ReconciliationDB{
		Succeeded:       false,
		ResponseCode:    "99",
		ResponseMessage: "Insufficient funds",
		Note:            "payment failed: Insufficient funds",
	})
	require.NoError(t, err)
	assert.False(t, replay.Applied)
	assert.Equal(t, models.PaymentStatusCompleted, replay.Order.PaymentStatus.PaymentStatus)

	order, err = db.FindOrderByExternalID(ctx, transactionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status.OrderStatus)
	require.NotNil(t, order.MobileMoney.CompletedAt)
	assert.True(t, order.MobileMoney.CompletedAt.Equal(completedAt))
	assert.Nil(t, order.MobileMoney.FailedAt)
}

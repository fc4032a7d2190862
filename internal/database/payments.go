package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicatePayment    = errors.New("payment already exists for this order")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotCompleted = errors.New("payment must be completed to be refunded")
)

const (
	InsertPaymentQuery = `
		INSERT INTO
			payments (id, order_id, amount, method, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	paymentColumns = `
		id,
		order_id,
		amount,
		method,
		status,
		momo_provider,
		momo_phone,
		momo_transaction_id,
		momo_external_id,
		momo_status,
		momo_response_code,
		momo_response_message,
		momo_reference_no,
		momo_completed_at,
		momo_failed_at,
		cod_collected_by,
		cod_collected_at,
		created_at
	`
	SelectPaymentQuery = `
		SELECT ` + paymentColumns + `
		FROM
			payments
		WHERE
			id = $1
	`
	SelectPaymentForUpdateQuery = SelectPaymentQuery + `
		FOR UPDATE
	`
	SelectPaymentByOrderQuery = `
		SELECT ` + paymentColumns + `
		FROM
			payments
		WHERE
			order_id = $1
	`
	SavePaymentAttemptPaymentQuery = `
		UPDATE
			payments
		SET
			status = 'pending',
			momo_provider = $3,
			momo_phone = $4,
			momo_transaction_id = $2,
			momo_external_id = NULL,
			momo_status = 'pending',
			momo_response_code = NULL,
			momo_response_message = NULL,
			momo_reference_no = NULL,
			momo_completed_at = NULL,
			momo_failed_at = NULL
		WHERE
			order_id = $1
	`
	ReconcilePaymentQuery = `
		UPDATE
			payments
		SET
			status = $2,
			momo_external_id = $3,
			momo_status = $4,
			momo_response_code = $5,
			momo_response_message = $6,
			momo_reference_no = $7,
			momo_completed_at = $8,
			momo_failed_at = $9
		WHERE
			order_id = $1
	`
	RefundPaymentQuery = `
		UPDATE
			payments
		SET
			status = 'refunded'
		WHERE
			id = $1
	`
	ReturnOrderQuery = `
		UPDATE
			orders
		SET
			status = 'returned',
			payment_status = 'refunded'
		WHERE
			id = $1
	`
)

type PaymentDB struct {
	ID             string
	OrderID        string
	Amount         float64
	Method         string
	Status         PaymentStatusDB
	MobileMoney    MobileMoneyDB
	CODCollectedBy *string
	CODCollectedAt *time.Time
	CreatedAt      time.Time
}

func scanPayment(row pgx.Row, payment *PaymentDB) error {
	return row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&payment.MobileMoney.Provider,
		&payment.MobileMoney.PhoneNumber,
		&payment.MobileMoney.TransactionID,
		&payment.MobileMoney.ExternalID,
		&payment.MobileMoney.Status,
		&payment.MobileMoney.ResponseCode,
		&payment.MobileMoney.ResponseMessage,
		&payment.MobileMoney.ReferenceNo,
		&payment.MobileMoney.CompletedAt,
		&payment.MobileMoney.FailedAt,
		&payment.CODCollectedBy,
		&payment.CODCollectedAt,
		&payment.CreatedAt,
	)
}

// CreatePayment inserts the payment record for an order. Each order owns at
// most one payment.
func (d *Database) CreatePayment(ctx context.Context, payment *PaymentDB) error {
	_, err := d.db.Exec(ctx, InsertPaymentQuery,
		payment.ID, payment.OrderID, payment.Amount, payment.Method, payment.Status,
	)
	if err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// FindPayment returns the payment by id, or nil when it doesn't exist.
func (d *Database) FindPayment(ctx context.Context, paymentID string) (*PaymentDB, error) {
	payment := &PaymentDB{}

	err := scanPayment(d.db.QueryRow(ctx, SelectPaymentQuery, paymentID), payment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}

	return payment, nil
}

// FindPaymentByOrder returns the payment owned by the given order, or nil.
func (d *Database) FindPaymentByOrder(ctx context.Context, orderID string) (*PaymentDB, error) {
	payment := &PaymentDB{}

	err := scanPayment(d.db.QueryRow(ctx, SelectPaymentByOrderQuery, orderID), payment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find payment by order: %w", err)
	}

	return payment, nil
}

// RefundPayment moves a completed payment to refunded and its order to
// returned in one transaction, recording who ordered the refund in the
// history. A payment in any other state is rejected with
// ErrPaymentNotCompleted and nothing is mutated.
func (d *Database) RefundPayment(ctx context.Context, paymentID, reason, refundedBy string) (*PaymentDB, error) {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	payment := PaymentDB{}
	if err := scanPayment(tx.QueryRow(ctx, SelectPaymentForUpdateQuery, paymentID), &payment); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}

	if payment.Status.PaymentStatus != models.PaymentStatusCompleted {
		return nil, ErrPaymentNotCompleted
	}

	if _, err := tx.Exec(ctx, RefundPaymentQuery, paymentID); err != nil {
		return nil, fmt.Errorf("failed to refund payment: %w", err)
	}

	if _, err := tx.Exec(ctx, ReturnOrderQuery, payment.OrderID); err != nil {
		return nil, fmt.Errorf("failed to return order: %w", err)
	}

	if _, err := tx.Exec(ctx, InsertStatusHistoryQuery,
		payment.OrderID, "returned", reason, refundedBy,
	); err != nil {
		return nil, fmt.Errorf("failed to append status history entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit refund: %w", err)
	}

	payment.Status = PaymentStatusDB{models.PaymentStatusRefunded}

	return &payment, nil
}

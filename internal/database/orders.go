package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDuplicateOrder = errors.New("order already exists")
	ErrOrderNotFound  = errors.New("order not found")
)

const (
	InsertOrderQuery = `
		INSERT INTO
			orders (id, order_number, customer_name, customer_phone,
				subtotal, tax, shipping_cost, discount, total,
				status, payment_status, payment_method)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	InsertOrderItemQuery = `
		INSERT INTO
			order_items (order_id, product_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`
	InsertStatusHistoryQuery = `
		INSERT INTO
			order_status_history (order_id, status, note, updated_by)
		VALUES ($1, $2, $3, $4)
	`
	orderColumns = `
		id,
		order_number,
		external_id,
		customer_name,
		customer_phone,
		subtotal,
		tax,
		shipping_cost,
		discount,
		total,
		status,
		payment_status,
		payment_method,
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
		created_at
	`
	SelectOrderQuery = `
		SELECT ` + orderColumns + `
		FROM
			orders
		WHERE
			id = $1
	`
	SelectOrderByExternalIDQuery = `
		SELECT ` + orderColumns + `
		FROM
			orders
		WHERE
			external_id = $1
	`
	SelectOrderByExternalIDForUpdateQuery = SelectOrderByExternalIDQuery + `
		FOR UPDATE
	`
	SelectOrderItemsQuery = `
		SELECT
			product_id,
			name,
			quantity,
			unit_price
		FROM
			order_items
		WHERE
			order_id = $1
		ORDER BY
			id
	`
	SelectStatusHistoryQuery = `
		SELECT
			status,
			note,
			updated_by,
			created_at
		FROM
			order_status_history
		WHERE
			order_id = $1
		ORDER BY
			id
	`
	CountOrdersForDayQuery = `
		SELECT
			COUNT(*)
		FROM
			orders
		WHERE
			created_at >= $1 AND created_at < $2
	`
	SelectPendingMobileMoneyOrdersQuery = `
		SELECT ` + orderColumns + `
		FROM
			orders
		WHERE
			external_id IS NOT NULL
			AND payment_status NOT IN ('completed', 'failed', 'refunded')
	`
	SavePaymentAttemptOrderQuery = `
		UPDATE
			orders
		SET
			external_id = $2,
			status = 'pending',
			payment_status = 'pending',
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
			id = $1
	`
	ReconcileOrderQuery = `
		UPDATE
			orders
		SET
			status = $2,
			payment_status = $3,
			momo_external_id = $4,
			momo_status = $5,
			momo_response_code = $6,
			momo_response_message = $7,
			momo_reference_no = $8,
			momo_completed_at = $9,
			momo_failed_at = $10
		WHERE
			id = $1
	`
)

// OrderStatusDB wraps the fulfillment status for database round-trips.
type OrderStatusDB struct {
	models.OrderStatus
}

func (s *OrderStatusDB) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("order status must be a string, got %T", value)
	}

	*s = OrderStatusDB{models.OrderStatus(strVal)}
	return nil
}

func (s OrderStatusDB) Value() (driver.Value, error) {
	return string(s.OrderStatus), nil
}

// PaymentStatusDB wraps the payment status for database round-trips.
type PaymentStatusDB struct {
	models.PaymentStatus
}

func (s *PaymentStatusDB) Scan(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("payment status must be a string, got %T", value)
	}

	*s = PaymentStatusDB{models.PaymentStatus(strVal)}
	return nil
}

func (s PaymentStatusDB) Value() (driver.Value, error) {
	return string(s.PaymentStatus), nil
}

// MobileMoneyDB carries the nullable mobile-money columns shared by the
// orders and payments tables.
type MobileMoneyDB struct {
	Provider        *string
	PhoneNumber     *string
	TransactionID   *string
	ExternalID      *string
	Status          *string
	ResponseCode    *string
	ResponseMessage *string
	ReferenceNo     *string
	CompletedAt     *time.Time
	FailedAt        *time.Time
}

type OrderDB struct {
	ID            string
	OrderNumber   string
	ExternalID    *string
	CustomerName  string
	CustomerPhone string
	Subtotal      float64
	Tax           float64
	ShippingCost  float64
	Discount      float64
	Total         float64
	Status        OrderStatusDB
	PaymentStatus PaymentStatusDB
	PaymentMethod string
	MobileMoney   MobileMoneyDB
	CreatedAt     time.Time
}

type OrderItemDB struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice float64
}

type StatusHistoryDB struct {
	Status    OrderStatusDB
	Note      string
	UpdatedBy string
	CreatedAt time.Time
}

// PaymentAttemptDB is the pre-flight write of a payment initiation: the
// transaction id and pending sub-state persisted before the gateway call.
type PaymentAttemptDB struct {
	TransactionID string
	Provider      string
	PhoneNumber   string
}

// ReconciliationDB is a terminal outcome to apply to an order and its
// payment record.
type ReconciliationDB struct {
	Succeeded       bool
	TransactionID   string
	ResponseCode    string
	ResponseMessage string
	ReferenceNo     string
	Note            string
}

// ReconcileOutcomeDB reports whether the outcome was applied; Applied is
// false when the order was already in a terminal payment state.
type ReconcileOutcomeDB struct {
	Applied bool
	Order   OrderDB
}

func scanOrder(row pgx.Row, order *OrderDB) error {
	return row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.ExternalID,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.Subtotal,
		&order.Tax,
		&order.ShippingCost,
		&order.Discount,
		&order.Total,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentMethod,
		&order.MobileMoney.Provider,
		&order.MobileMoney.PhoneNumber,
		&order.MobileMoney.TransactionID,
		&order.MobileMoney.ExternalID,
		&order.MobileMoney.Status,
		&order.MobileMoney.ResponseCode,
		&order.MobileMoney.ResponseMessage,
		&order.MobileMoney.ReferenceNo,
		&order.MobileMoney.CompletedAt,
		&order.MobileMoney.FailedAt,
		&order.CreatedAt,
	)
}

// queryOrder runs a single-row order query against the pool or an open
// transaction.
func queryOrder(ctx context.Context, db DBExecutor, query string, args ...interface{}) (*OrderDB, error) {
	order := &OrderDB{}
	if err := scanOrder(db.QueryRow(ctx, query, args...), order); err != nil {
		return nil, err
	}

	return order, nil
}

// CreateOrder inserts the order, its line items and the initial history
// entry in one transaction.
func (d *Database) CreateOrder(ctx context.Context, order *OrderDB, items []OrderItemDB) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, InsertOrderQuery,
		order.ID,
		order.OrderNumber,
		order.CustomerName,
		order.CustomerPhone,
		order.Subtotal,
		order.Tax,
		order.ShippingCost,
		order.Discount,
		order.Total,
		order.Status,
		order.PaymentStatus,
		order.PaymentMethod,
	)
	if err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range items {
		if _, err := tx.Exec(ctx, InsertOrderItemQuery,
			order.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice,
		); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, InsertStatusHistoryQuery,
		order.ID, order.Status, "order created", "system",
	); err != nil {
		return fmt.Errorf("failed to create status history entry: %w", err)
	}

	return tx.Commit(ctx)
}

// FindOrder returns the order by id, or nil when it doesn't exist.
func (d *Database) FindOrder(ctx context.Context, orderID string) (*OrderDB, error) {
	order, err := queryOrder(ctx, d.db, SelectOrderQuery, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return order, nil
}

// FindOrderByExternalID returns the order owning the given payment
// transaction id, or nil when no attempt matches.
func (d *Database) FindOrderByExternalID(ctx context.Context, transactionID string) (*OrderDB, error) {
	order, err := queryOrder(ctx, d.db, SelectOrderByExternalIDQuery, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order by external id: %w", err)
	}

	return order, nil
}

// FindOrderItems returns the line items of an order.
func (d *Database) FindOrderItems(ctx context.Context, orderID string) (*[]OrderItemDB, error) {
	var result []OrderItemDB

	rows, err := d.db.Query(ctx, SelectOrderItemsQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItemDB
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item row: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order item rows: %w", err)
	}

	return &result, nil
}

// FindStatusHistory returns the append-only history of an order, oldest
// first.
func (d *Database) FindStatusHistory(ctx context.Context, orderID string) (*[]StatusHistoryDB, error) {
	var result []StatusHistoryDB

	rows, err := d.db.Query(ctx, SelectStatusHistoryQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item StatusHistoryDB
		if err := rows.Scan(&item.Status, &item.Note, &item.UpdatedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history row: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status history rows: %w", err)
	}

	return &result, nil
}

// CountOrdersForDay counts orders created on the given calendar day; the
// order number sequence is derived from it.
func (d *Database) CountOrdersForDay(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int
	if err := d.db.QueryRow(ctx, CountOrdersForDayQuery, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count orders for day: %w", err)
	}

	return count, nil
}

// FindPendingMobileMoneyOrders returns orders with an in-flight payment
// attempt that has not reached a terminal state yet.
func (d *Database) FindPendingMobileMoneyOrders(ctx context.Context) (*[]OrderDB, error) {
	var result []OrderDB

	rows, err := d.db.Query(ctx, SelectPendingMobileMoneyOrdersQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderDB
		if err := scanOrder(rows, &item); err != nil {
			return nil, fmt.Errorf("failed to scan pending order row: %w", err)
		}
		result = append(result, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending order rows: %w", err)
	}

	return &result, nil
}

// SavePaymentAttempt persists the transaction id and pending sub-state on
// both the order and its payment record. It must run before the gateway
// call so a crash after the call still leaves a traceable pending order.
func (d *Database) SavePaymentAttempt(ctx context.Context, orderID string, attempt PaymentAttemptDB) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, SavePaymentAttemptOrderQuery,
		orderID, attempt.TransactionID, attempt.Provider, attempt.PhoneNumber,
	)
	if err != nil {
		var e *pgconn.PgError
		if errors.As(err, &e) && e.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("transaction id is already in use: %w", err)
		}
		return fmt.Errorf("failed to save payment attempt on order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	if _, err := tx.Exec(ctx, SavePaymentAttemptPaymentQuery,
		orderID, attempt.TransactionID, attempt.Provider, attempt.PhoneNumber,
	); err != nil {
		return fmt.Errorf("failed to save payment attempt on payment: %w", err)
	}

	return tx.Commit(ctx)
}

// ApplyReconciliation applies a terminal payment outcome to the order and
// its payment record under a row lock keyed by the transaction id. Duplicate
// callbacks serialize on the lock; an order already in a terminal payment
// state is returned untouched with Applied=false.
func (d *Database) ApplyReconciliation(ctx context.Context, transactionID string, rec ReconciliationDB) (*ReconcileOutcomeDB, error) {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := queryOrder(ctx, tx, SelectOrderByExternalIDForUpdateQuery, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order by external id: %w", err)
	}

	if order.PaymentStatus.IsTerminal() {
		return &ReconcileOutcomeDB{Applied: false, Order: *order}, tx.Commit(ctx)
	}

	now := time.Now()

	orderStatus := models.OrderStatusCancelled
	paymentStatus := models.PaymentStatusFailed
	momoStatus := string(models.MobileMoneyStatusFailed)
	var completedAt, failedAt *time.Time
	failedAt = &now

	if rec.Succeeded {
		orderStatus = models.OrderStatusConfirmed
		paymentStatus = models.PaymentStatusCompleted
		momoStatus = string(models.MobileMoneyStatusSuccess)
		completedAt = &now
		failedAt = nil
	}

	if _, err := tx.Exec(ctx, ReconcileOrderQuery,
		order.ID,
		OrderStatusDB{orderStatus},
		PaymentStatusDB{paymentStatus},
		rec.TransactionID,
		momoStatus,
		rec.ResponseCode,
		rec.ResponseMessage,
		rec.ReferenceNo,
		completedAt,
		failedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to reconcile order: %w", err)
	}

	if _, err := tx.Exec(ctx, ReconcilePaymentQuery,
		order.ID,
		PaymentStatusDB{paymentStatus},
		rec.TransactionID,
		momoStatus,
		rec.ResponseCode,
		rec.ResponseMessage,
		rec.ReferenceNo,
		completedAt,
		failedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to reconcile payment: %w", err)
	}

	if _, err := tx.Exec(ctx, InsertStatusHistoryQuery,
		order.ID, OrderStatusDB{orderStatus}, rec.Note, "gateway",
	); err != nil {
		return nil, fmt.Errorf("failed to append status history entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	order.Status = OrderStatusDB{orderStatus}
	order.PaymentStatus = PaymentStatusDB{paymentStatus}

	return &ReconcileOutcomeDB{Applied: true, Order: *order}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/database"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/models"
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/utils"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("order item quantity must be positive")
)

// OrderService creates orders at checkout and serves them for client-side
// status polling.
type OrderService struct {
	storage orderStorage
}

type orderStorage interface {
	CreateOrder(ctx context.Context, order *database.OrderDB, items []database.OrderItemDB) error

	FindOrder(ctx context.Context, orderID string) (*database.OrderDB, error)

	FindOrderItems(ctx context.Context, orderID string) (*[]database.OrderItemDB, error)

	FindStatusHistory(ctx context.Context, orderID string) (*[]database.StatusHistoryDB, error)

	CountOrdersForDay(ctx context.Context, day time.Time) (int, error)

	CreatePayment(ctx context.Context, payment *database.PaymentDB) error
}

func NewOrderService(storage orderStorage) *OrderService {
	return &OrderService{storage: storage}
}

// CreateOrder creates the order and its payment record. Mobile-money orders
// start pending on both axes; cash-on-delivery orders are confirmed right
// away while their payment stays pending until collection.
func (o *OrderService) CreateOrder(ctx context.Context, draft models.OrderDraft) (*models.Order, error) {
	if len(draft.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range draft.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	method := draft.PaymentMethod
	if method == "" {
		method = models.PaymentMethodMobileMoney
	}

	now := time.Now()

	orderNumber, err := o.nextOrderNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:            uuid.New().String(),
		OrderNumber:   orderNumber,
		CustomerName:  draft.CustomerName,
		CustomerPhone: draft.CustomerPhone,
		Items:         draft.Items,
		Tax:           draft.Tax,
		ShippingCost:  draft.ShippingCost,
		Discount:      draft.Discount,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: method,
		CreatedAt:     utils.RFC3339Date{Time: now},
	}
	order.RecomputeTotals()

	if method == models.PaymentMethodCashOnDelivery {
		order.Status = models.OrderStatusConfirmed
	}

	items := make([]database.OrderItemDB, len(draft.Items))
	for i, item := range draft.Items {
		items[i] = database.OrderItemDB{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	orderDB := &database.OrderDB{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Subtotal:      order.Subtotal,
		Tax:           order.Tax,
		ShippingCost:  order.ShippingCost,
		Discount:      order.Discount,
		Total:         order.Total,
		Status:        database.OrderStatusDB{OrderStatus: order.Status},
		PaymentStatus: database.PaymentStatusDB{PaymentStatus: order.PaymentStatus},
		PaymentMethod: string(order.PaymentMethod),
	}

	if err := o.storage.CreateOrder(ctx, orderDB, items); err != nil {
		return nil, err
	}

	payment := &database.PaymentDB{
		ID:      uuid.New().String(),
		OrderID: order.ID,
		Amount:  order.Total,
		Method:  string(order.PaymentMethod),
		Status:  database.PaymentStatusDB{PaymentStatus: models.PaymentStatusPending},
	}
	if err := o.storage.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	order.StatusHistory = []models.StatusHistoryEntry{{
		Status: order.Status,
		Date:   utils.RFC3339Date{Time: now},
		Note:   "order created",
	}}

	return order, nil
}

// GetOrder returns the order with its line items and history.
func (o *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	orderDB, err := o.storage.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if orderDB == nil {
		return nil, ErrOrderNotFound
	}

	order := OrderFromDB(orderDB)

	items, err := o.storage.FindOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if items != nil {
		for _, item := range *items {
			order.Items = append(order.Items, models.OrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
	}

	history, err := o.storage.FindStatusHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if history != nil {
		for _, entry := range *history {
			order.StatusHistory = append(order.StatusHistory, models.StatusHistoryEntry{
				Status:    entry.Status.OrderStatus,
				Date:      utils.RFC3339Date{Time: entry.CreatedAt},
				Note:      entry.Note,
				UpdatedBy: entry.UpdatedBy,
			})
		}
	}

	return order, nil
}

// nextOrderNumber derives the human-readable order number from the date and
// the per-day sequence.
func (o *OrderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	count, err := o.storage.CountOrdersForDay(ctx, now)
	if err != nil {
		return "", fmt.Errorf("failed to derive order number: %w", err)
	}

	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), count+1), nil
}

// OrderFromDB converts a stored order into its API model. Line items and
// history are loaded separately.
func OrderFromDB(orderDB *database.OrderDB) *models.Order {
	order := &models.Order{
		ID:            orderDB.ID,
		OrderNumber:   orderDB.OrderNumber,
		ExternalID:    orderDB.ExternalID,
		CustomerName:  orderDB.CustomerName,
		CustomerPhone: orderDB.CustomerPhone,
		Subtotal:      orderDB.Subtotal,
		Tax:           orderDB.Tax,
		ShippingCost:  orderDB.ShippingCost,
		Discount:      orderDB.Discount,
		Total:         orderDB.Total,
		Status:        orderDB.Status.OrderStatus,
		PaymentStatus: orderDB.PaymentStatus.PaymentStatus,
		PaymentMethod: models.PaymentMethod(orderDB.PaymentMethod),
		MobileMoney:   mobileMoneyFromDB(orderDB.MobileMoney),
		CreatedAt:     utils.RFC3339Date{Time: orderDB.CreatedAt},
	}

	return order
}

func mobileMoneyFromDB(momo database.MobileMoneyDB) *models.MobileMoney {
	if momo.Status == nil {
		return nil
	}

	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	result := &models.MobileMoney{
		Provider:        deref(momo.Provider),
		PhoneNumber:     deref(momo.PhoneNumber),
		TransactionID:   deref(momo.TransactionID),
		ExternalID:      deref(momo.ExternalID),
		Status:          models.MobileMoneyStatus(deref(momo.Status)),
		ResponseCode:    deref(momo.ResponseCode),
		ResponseMessage: deref(momo.ResponseMessage),
		ReferenceNo:     deref(momo.ReferenceNo),
	}

	if momo.CompletedAt != nil {
		result.CompletedAt = &utils.RFC3339Date{Time: *momo.CompletedAt}
	}
	if momo.FailedAt != nil {
		result.FailedAt = &utils.RFC3339Date{Time: *momo.FailedAt}
	}

	return result
}

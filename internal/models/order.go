package models

import (
	"github.com/IGIHOZO/E-GURA-2025-sub003/internal/utils"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// PaymentStatus is the payment axis of an order. It is correlated with, but
// independent from, the fulfillment status: a cash-on-delivery order is
// confirmed while its payment is still pending.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// IsTerminal reports whether no further reconciliation transition is valid.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

type MobileMoneyStatus string

const (
	MobileMoneyStatusPending MobileMoneyStatus = "pending"
	MobileMoneyStatusSuccess MobileMoneyStatus = "success"
	MobileMoneyStatusFailed  MobileMoneyStatus = "failed"
)

// MobileMoney is the gateway-facing sub-state of a payment attempt. The
// external id correlates at most one in-flight attempt at a time; assigning
// a new one starts a new attempt.
type MobileMoney struct {
	Provider        string             `json:"provider,omitempty"`
	PhoneNumber     string             `json:"phoneNumber,omitempty"`
	TransactionID   string             `json:"transactionId,omitempty"`
	ExternalID      string             `json:"externalId,omitempty"`
	Status          MobileMoneyStatus  `json:"status,omitempty"`
	ResponseCode    string             `json:"responseCode,omitempty"`
	ResponseMessage string             `json:"responseMessage,omitempty"`
	ReferenceNo     string             `json:"referenceNo,omitempty"`
	CompletedAt     *utils.RFC3339Date `json:"completedAt,omitempty"`
	FailedAt        *utils.RFC3339Date `json:"failedAt,omitempty"`
}

// StatusHistoryEntry is one element of the append-only order history. Entries
// are never pruned.
type StatusHistoryEntry struct {
	Status    OrderStatus       `json:"status"`
	Date      utils.RFC3339Date `json:"date"`
	Note      string            `json:"note,omitempty"`
	UpdatedBy string            `json:"updatedBy,omitempty"`
}

type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type Order struct {
	ID            string               `json:"id"`
	OrderNumber   string               `json:"orderNumber"`
	ExternalID    *string              `json:"externalId,omitempty"`
	CustomerName  string               `json:"customerName,omitempty"`
	CustomerPhone string               `json:"customerPhone,omitempty"`
	Items         []OrderItem          `json:"items,omitempty"`
	Subtotal      float64              `json:"subtotal"`
	Tax           float64              `json:"tax"`
	ShippingCost  float64              `json:"shippingCost"`
	Discount      float64              `json:"discount"`
	Total         float64              `json:"total"`
	Status        OrderStatus          `json:"status"`
	PaymentStatus PaymentStatus        `json:"paymentStatus"`
	PaymentMethod PaymentMethod        `json:"paymentMethod"`
	MobileMoney   *MobileMoney         `json:"mobileMoney,omitempty"`
	StatusHistory []StatusHistoryEntry `json:"statusHistory,omitempty"`
	CreatedAt     utils.RFC3339Date    `json:"createdAt"`
}

// RecomputeTotals derives subtotal from the line items and reapplies the
// total invariant: total = subtotal + tax + shippingCost - discount.
// It must be called after every line-item mutation.
func (o *Order) RecomputeTotals() {
	var subtotal float64
	for _, item := range o.Items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}

	o.Subtotal = subtotal
	o.Total = o.Subtotal + o.Tax + o.ShippingCost - o.Discount
}

// OrderDraft is the checkout request payload.
type OrderDraft struct {
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	Items         []OrderItem   `json:"items"`
	Tax           float64       `json:"tax"`
	ShippingCost  float64       `json:"shippingCost"`
	Discount      float64       `json:"discount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

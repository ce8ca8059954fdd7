package cart

import (
	"encoding/json"
	"time"

	"wristwatch-be/internal/catalog"

	"github.com/shopspring/decimal"
)

type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryAccepted   DeliveryStatus = "accepted"
	DeliveryReady      DeliveryStatus = "ready"
	DeliveryPickedUp   DeliveryStatus = "picked-up"
	DeliveryOnTheWay   DeliveryStatus = "on-the-way"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryCanceled   DeliveryStatus = "canceled"
	DeliveryProcessing DeliveryStatus = "processing"
)

type OrderStatus string

const (
	OrderUnpaid    OrderStatus = "Unpaid"
	OrderPaid      OrderStatus = "Paid"
	OrderFailed    OrderStatus = "failed"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCard || m == PaymentTransfer
}

// Line is one watch in a user's cart. Unpaid lines form the active cart;
// paid lines sharing a payment reference form an order.
type Line struct {
	ID               string              `json:"id"`
	UserID           uint                `json:"userId"`
	WatchID          string              `json:"itemId"`
	Quantity         int                 `json:"quantity"`
	UnitPrice        decimal.Decimal     `json:"unitPrice"`
	LineTotal        decimal.Decimal     `json:"total"`
	DeliveryStatus   DeliveryStatus      `json:"deliveryStatus"`
	OrderStatus      OrderStatus         `json:"orderStatus"`
	PaymentStatus    PaymentStatus       `json:"paymentStatus"`
	PaymentMethod    PaymentMethod       `json:"paymentMethod"`
	PaymentReference *string             `json:"paymentReference"`
	AccessCode       *string             `json:"accessCode,omitempty"`
	IsPaid           bool                `json:"isPaid"`
	PaidAt           *time.Time          `json:"paidAt"`
	DeliveryAddress  *string             `json:"deliveryAddress"`
	DeliveryPhone    *string             `json:"deliveryPhone"`
	ShippingFee      decimal.NullDecimal `json:"shippingFee"`
	Tax              decimal.NullDecimal `json:"tax"`
	OrderTotal       decimal.NullDecimal `json:"orderTotal"`
	TransactionData  json.RawMessage     `json:"transactionData,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`

	// Watch is nil when the catalog no longer has the item.
	Watch *catalog.Watch `json:"watch"`
}

type Cart struct {
	Lines    []*Line         `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type ItemRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

type UpsertParams struct {
	UserID    uint
	WatchID   string
	Quantity  int
	UnitPrice decimal.Decimal
}

type UpdateQuantityParams struct {
	UserID    uint
	LineID    string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineTotal is the single pricing rule for a line.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

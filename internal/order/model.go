package order

import (
	"encoding/json"
	"time"

	"wristwatch-be/internal/cart"

	"github.com/shopspring/decimal"
)

// PaymentState is the orders row status.
type PaymentState string

const (
	PaymentPending   PaymentState = "pending"
	PaymentCompleted PaymentState = "completed"
	PaymentFailed    PaymentState = "failed"
	// PaymentSuperseded marks a pending order replaced by a newer one for the same user.
	PaymentSuperseded PaymentState = "superseded"
	// PaymentUnapplied marks money the provider confirmed for an order whose
	// lines had moved on.
	PaymentUnapplied PaymentState = "unapplied"
)

// Order is the record created for each payment reference.
// The cart lines carrying the same reference are its contents.
type Order struct {
	Reference        string
	UserID           uint
	Subtotal         decimal.Decimal
	ShippingFee      decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	Currency         string
	DeliveryAddress  string
	DeliveryPhone    string
	AccessCode       *string
	AuthorizationURL *string
	PaymentStatus    PaymentState
	PaidAt           *time.Time
	CreatedAt        time.Time
}

type Pricing struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

func NewPricing(subtotal, shippingFee, taxRate decimal.Decimal) Pricing {
	tax := subtotal.Mul(taxRate)
	return Pricing{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Tax:         tax,
		Total:       subtotal.Add(shippingFee).Add(tax),
	}
}

// MinorUnits is the order total in the smallest currency unit.
func (o *Order) MinorUnits() int64 {
	return Pricing{Total: o.Total}.MinorUnits()
}

// MinorUnits is the total in the smallest currency unit, rounded half away from zero.
func (p Pricing) MinorUnits() int64 {
	return p.Total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type InitializeInput struct {
	DeliveryAddress string `json:"deliveryAddress"`
	DeliveryPhone   string `json:"deliveryPhone"`
}

type InitializeResult struct {
	AuthorizationURL string          `json:"authorization_url"`
	AccessCode       string          `json:"access_code"`
	Reference        string          `json:"reference"`
	Amount           decimal.Decimal `json:"amount"`
	Shipping         decimal.Decimal `json:"shipping"`
	Tax              decimal.Decimal `json:"tax"`
	Subtotal         decimal.Decimal `json:"subtotal"`
}

type CheckoutInput struct {
	DeliveryAddress  string             `json:"deliveryAddress"`
	DeliveryPhone    string             `json:"deliveryPhone"`
	PaymentMethod    cart.PaymentMethod `json:"paymentMethod"`
	PaymentReference string             `json:"paymentReference"`
	AccessCode       string             `json:"paystackAccessCode"`
}

type CheckoutResult struct {
	TotalPrice decimal.Decimal `json:"totalPrice"`
	LinesPaid  int64           `json:"linesPaid"`
}

type CheckoutParams struct {
	UserID           uint
	DeliveryAddress  string
	DeliveryPhone    string
	PaymentMethod    cart.PaymentMethod
	PaymentReference string
	AccessCode       string
	Total            decimal.Decimal
	PaidAt           time.Time
}

type VerifyStatus string

const (
	VerifyPaid             VerifyStatus = "paid"
	VerifyAlreadyProcessed VerifyStatus = "already_processed"
)

type DeliveryInfo struct {
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

type VerifyResult struct {
	Status       VerifyStatus    `json:"status"`
	Lines        []*cart.Line    `json:"cartItems"`
	OrderNumber  string          `json:"orderNumber"`
	DeliveryInfo DeliveryInfo    `json:"deliveryInfo"`
	Transaction  json.RawMessage `json:"transaction,omitempty"`
}

type PaymentStatusResult struct {
	Lines          []*cart.Line        `json:"order"`
	PaymentStatus  string              `json:"paymentStatus"`
	OrderStatus    cart.OrderStatus    `json:"orderStatus"`
	DeliveryStatus cart.DeliveryStatus `json:"deliveryStatus"`
}

package order

import "errors"

var (
	ErrUnauthorized      = errors.New("user not authenticated")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrOrderNotFound     = errors.New("order not found")
	ErrReferenceNotFound = errors.New("cart items not found for this payment reference")
	ErrDuplicateOrder    = errors.New("an order with this reference already exists")
	ErrPaymentNotSuccess = errors.New("payment verification failed or payment was not successful")
	ErrInvalidPayMethod  = errors.New("payment method must be card or transfer")
	ErrAmountMismatch    = errors.New("amount paid does not match the order total")
	ErrOrderSuperseded   = errors.New("payment received for an order whose cart changed; it will be reviewed")
)

package handler

import "net/http"

// Register mounts the cart and payment routes. requireAuth guards every
// route except verify-payment, which the provider redirects shoppers to.
func Register(mux *http.ServeMux, carts *CartHandler, payments *PaymentHandler, requireAuth func(http.Handler) http.Handler) {
	protect := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux.Handle("POST /cart/add", protect(carts.AddItem))
	mux.Handle("POST /cart/addItemToCart", protect(carts.AddItems))
	mux.Handle("GET /cart", protect(carts.GetCart))
	mux.Handle("PUT /cart/update", protect(carts.UpdateItem))
	mux.Handle("DELETE /cart/remove/{itemId}", protect(carts.RemoveItem))

	mux.Handle("POST /cart/checkout", protect(payments.Checkout))
	mux.Handle("POST /cart/initialize-payment", protect(payments.InitializePayment))
	mux.Handle("GET /cart/payment-status/{reference}", protect(payments.PaymentStatus))
	mux.HandleFunc("GET /cart/verify-payment/{reference}", payments.VerifyPayment)
}

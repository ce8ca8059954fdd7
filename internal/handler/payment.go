package handler

import (
	"net/http"

	"wristwatch-be/internal/auth"
	"wristwatch-be/internal/order"
	"wristwatch-be/internal/utils"
)

type PaymentHandler struct {
	orders order.Service
}

func NewPaymentHandler(orders order.Service) *PaymentHandler {
	return &PaymentHandler{orders: orders}
}

// Checkout handles POST /cart/checkout.
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFrom(r.Context())

	var req order.CheckoutInput
	if err := decodeJSON(r, "handler.checkout", &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	res, err := h.orders.Checkout(r.Context(), userID, req)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Checkout complete", res)
}

// InitializePayment handles POST /cart/initialize-payment.
func (h *PaymentHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFrom(r.Context())

	var req order.InitializeInput
	if err := decodeJSON(r, "handler.initializePayment", &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	res, err := h.orders.InitializePayment(r.Context(), userID, req)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Payment initialization successful", res)
}

// VerifyPayment handles GET /cart/verify-payment/{reference}. It is the
// provider's redirect target, so it carries no user identity.
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.VerifyPayment(r.Context(), r.PathValue("reference"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	msg := "Payment successful! Your order has been confirmed."
	if res.Status == order.VerifyAlreadyProcessed {
		msg = "Payment already verified"
	}
	utils.WriteSuccess(w, http.StatusOK, msg, res)
}

// PaymentStatus handles GET /cart/payment-status/{reference}.
func (h *PaymentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFrom(r.Context())

	res, err := h.orders.GetPaymentStatus(r.Context(), userID, r.PathValue("reference"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "", res)
}

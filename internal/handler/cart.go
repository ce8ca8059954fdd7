package handler

import (
	"net/http"

	"wristwatch-be/internal/auth"
	"wristwatch-be/internal/cart"
	"wristwatch-be/internal/utils"
	"wristwatch-be/internal/validation"
)

type CartHandler struct {
	svc cart.Service
}

func NewCartHandler(svc cart.Service) *CartHandler {
	return &CartHandler{svc: svc}
}

type addItemRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity"`
}

type addItemsRequest struct {
	CartedItems []cart.ItemRequest `json:"cartedItems" validate:"required,min=1,dive"`
}

type updateItemRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity"`
}

// AddItem handles POST /cart/add.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	const op = "handler.addItem"
	userID, _ := auth.UserIDFrom(r.Context())

	var req addItemRequest
	if err := decodeJSON(r, op, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(op, req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	line, err := h.svc.AddItem(r.Context(), userID, req.ItemID, req.Quantity)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Item added to cart", line)
}

// AddItems handles POST /cart/addItemToCart.
func (h *CartHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	const op = "handler.addItems"
	userID, _ := auth.UserIDFrom(r.Context())

	var req addItemsRequest
	if err := decodeJSON(r, op, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(op, req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	lines, err := h.svc.AddItems(r.Context(), userID, req.CartedItems)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "", lines)
}

// GetCart handles GET /cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFrom(r.Context())

	c, err := h.svc.GetCart(r.Context(), userID)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "", c)
}

// UpdateItem handles PUT /cart/update.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	const op = "handler.updateItem"
	userID, _ := auth.UserIDFrom(r.Context())

	var req updateItemRequest
	if err := decodeJSON(r, op, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(op, req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	line, err := h.svc.UpdateItem(r.Context(), userID, req.ItemID, req.Quantity)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Cart item updated", line)
}

// RemoveItem handles DELETE /cart/remove/{itemId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFrom(r.Context())

	if err := h.svc.RemoveItem(r.Context(), userID, r.PathValue("itemId")); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Item removed", nil)
}

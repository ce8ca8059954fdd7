package cart

import "errors"

var (
	// -- Authentication/Authorization --
	ErrUserNotAuthenticated = errors.New("user not authenticated")

	// -- Validation & Input --
	ErrInvalidQuantity = errors.New("quantity must be a positive number")
	ErrNoItems         = errors.New("no items to add")

	// -- Resource State --
	ErrCartItemNotFound = errors.New("cart item not found")

	// -- Database & Operation Failures --
	ErrFailedGetCart        = errors.New("failed to get cart")
	ErrFailedUpsertCartItem = errors.New("failed to add cart item")
	ErrFailedUpdateCart     = errors.New("failed to update cart item")
	ErrFailedRemoveCart     = errors.New("failed to remove cart item")
)

package cart

import "errors"

var (
	// ErrInvalidQuantity is returned for an add with quantity below 1.
	ErrInvalidQuantity = errors.New("cart.invalid_quantity")

	// ErrInvalidVariant is returned for an add without a variant.
	ErrInvalidVariant = errors.New("cart.invalid_variant")

	// ErrInvalidItemID is returned for line operations without a line id.
	ErrInvalidItemID = errors.New("cart.invalid_item_id")

	// ErrInvalidItem is returned by ValidateItem.
	ErrInvalidItem = errors.New("cart.invalid_item")

	// ErrMutationFailed wraps backend failures of add, update and remove.
	ErrMutationFailed = errors.New("cart.mutation_failed")

	// ErrRefreshFailed wraps backend failures of a cart read. The state
	// then holds the local copy.
	ErrRefreshFailed = errors.New("cart.refresh_failed")

	// ErrClearFallback wraps a failed backend clear. The cart was emptied
	// locally regardless.
	ErrClearFallback = errors.New("cart.clear_fallback")
)

package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a rejection reason surfaced to callers
type Code string

const (
	CodeInvalidRequest          Code = "INVALID_REQUEST"
	CodeInvalidQuantity         Code = "INVALID_QUANTITY"
	CodeInvalidVariation        Code = "INVALID_VARIATION"
	CodeAddonNotFound           Code = "ADDON_NOT_FOUND"
	CodeAddonQuantityExceeded   Code = "ADDON_QUANTITY_EXCEEDED"
	CodeProductNotFound         Code = "PRODUCT_NOT_FOUND"
	CodeInvalidDeliveryFee      Code = "INVALID_DELIVERY_FEE"
	CodeItemNotFound            Code = "ITEM_NOT_FOUND"
	CodeTenantNotFound          Code = "TENANT_NOT_FOUND"
	CodeOrderNotFound           Code = "ORDER_NOT_FOUND"
	CodeEmptyCart               Code = "EMPTY_CART"
	CodeBelowMinimumOrder       Code = "BELOW_MINIMUM_ORDER"
	CodeStoreClosed             Code = "STORE_CLOSED"
	CodeOrderCreationFailed     Code = "ORDER_CREATION_FAILED"
	CodeOrderLineCreationFailed Code = "ORDER_LINE_CREATION_FAILED"
	CodeRateLimited             Code = "RATE_LIMITED"
)

// Kind groups codes by how a caller should react to them
type Kind int

const (
	// KindValidation means the request itself is bad and must not be retried as is
	KindValidation Kind = iota
	// KindConsistency means state was left untouched and the caller may correct and retry
	KindConsistency
	// KindPipeline means a persistence step failed; details are logged, not exposed
	KindPipeline
	// KindRateLimited means the caller should back off for the retry-after hint
	KindRateLimited
)

// Error is a typed rejection. Two errors match under errors.Is when their codes match.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Sentinels usable as errors.Is targets
var (
	ErrInvalidRequest          = &Error{Code: CodeInvalidRequest, Message: "invalid request"}
	ErrInvalidQuantity         = &Error{Code: CodeInvalidQuantity, Message: "quantity must be a positive integer"}
	ErrInvalidVariation        = &Error{Code: CodeInvalidVariation, Message: "variation is not available for this product"}
	ErrAddonNotFound           = &Error{Code: CodeAddonNotFound, Message: "addon is not available for this product"}
	ErrAddonQuantityExceeded   = &Error{Code: CodeAddonQuantityExceeded, Message: "addon quantity exceeds the allowed maximum"}
	ErrProductNotFound         = &Error{Code: CodeProductNotFound, Message: "product not found"}
	ErrInvalidDeliveryFee      = &Error{Code: CodeInvalidDeliveryFee, Message: "delivery fee cannot be negative"}
	ErrItemNotFound            = &Error{Code: CodeItemNotFound, Message: "item not found in cart"}
	ErrTenantNotFound          = &Error{Code: CodeTenantNotFound, Message: "establishment not found"}
	ErrOrderNotFound           = &Error{Code: CodeOrderNotFound, Message: "order not found"}
	ErrEmptyCart               = &Error{Code: CodeEmptyCart, Message: "cart is empty"}
	ErrBelowMinimumOrder       = &Error{Code: CodeBelowMinimumOrder, Message: "order total is below the minimum order value"}
	ErrStoreClosed             = &Error{Code: CodeStoreClosed, Message: "store is closed"}
	ErrOrderCreationFailed     = &Error{Code: CodeOrderCreationFailed, Message: "could not create the order, please try again"}
	ErrOrderLineCreationFailed = &Error{Code: CodeOrderLineCreationFailed, Message: "could not create the order, please try again"}
	ErrRateLimited             = &Error{Code: CodeRateLimited, Message: "too many requests"}
)

// ErrDuplicateOrderNumber is returned by order repositories when the order
// number is already taken for the tenant. It has no code and never reaches callers.
var ErrDuplicateOrderNumber = errors.New("order number already exists")

// New creates an error with the given code and a formatted message
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target carries the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Kind classifies the error code
func (e *Error) Kind() Kind {
	switch e.Code {
	case CodeItemNotFound, CodeTenantNotFound, CodeOrderNotFound, CodeEmptyCart, CodeBelowMinimumOrder, CodeStoreClosed:
		return KindConsistency
	case CodeOrderCreationFailed, CodeOrderLineCreationFailed:
		return KindPipeline
	case CodeRateLimited:
		return KindRateLimited
	default:
		return KindValidation
	}
}

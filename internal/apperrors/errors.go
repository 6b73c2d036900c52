// Package apperrors holds the error kinds that services return and that
// the HTTP layer turns into status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthenticationRequired
	KindForbidden
	KindNotFound
	KindEmptyCart
	KindProductUnavailable
	KindExternalProcessor
	KindConflict
	KindLocked
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindEmptyCart:
		return http.StatusBadRequest
	case KindAuthenticationRequired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindProductUnavailable, KindConflict:
		return http.StatusConflict
	case KindLocked:
		return http.StatusLocked
	case KindExternalProcessor:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable is true for failures the client may safely repeat.
func (e *Error) Retryable() bool {
	return e.Kind == KindExternalProcessor
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: message}
}

func AuthenticationRequired(message string) *Error {
	return &Error{Kind: KindAuthenticationRequired, Code: "UNAUTHORIZED", Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

// NotFound takes the resource name, e.g. "order".
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: resource + " not found", Details: map[string]string{"resource": resource}}
}

func EmptyCart() *Error {
	return &Error{Kind: KindEmptyCart, Code: "EMPTY_CART", Message: "cart is empty"}
}

func ProductUnavailable(productID, name string, requested, available int) *Error {
	return &Error{
		Kind:    KindProductUnavailable,
		Code:    "PRODUCT_UNAVAILABLE",
		Message: fmt.Sprintf("product %q is unavailable in the requested quantity", name),
		Details: map[string]interface{}{
			"product_id": productID,
			"name":       name,
			"requested":  requested,
			"available":  available,
		},
	}
}

func ExternalProcessor(err error) *Error {
	return &Error{
		Kind:    KindExternalProcessor,
		Code:    "PAYMENT_PROCESSOR_ERROR",
		Message: "payment could not be initiated, please retry",
		Details: map[string]bool{"retryable": true},
		Err:     err,
	}
}

// CaptchaRequired is returned by login once enough attempts have failed.
func CaptchaRequired(message string) *Error {
	return &Error{Kind: KindValidation, Code: "CAPTCHA_REQUIRED", Message: message, Details: map[string]bool{"captcha_required": true}}
}

func CaptchaInvalid(message string) *Error {
	return &Error{Kind: KindValidation, Code: "CAPTCHA_INVALID", Message: message, Details: map[string]bool{"captcha_required": true}}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: message}
}

func Locked(message string) *Error {
	return &Error{Kind: KindLocked, Code: "ACCOUNT_LOCKED", Message: message}
}

// As extracts an *Error from anywhere in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

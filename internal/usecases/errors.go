package usecases

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrPaymentNotFound   = errors.New("payment record not found")
	ErrPackageNotFound   = errors.New("package not found")
	ErrConversionFailed  = errors.New("crypto conversion failed")
	ErrPaymentInitiation = errors.New("payment initiation failed")
	ErrMissingSignature  = errors.New("missing signature")
)

// Messages shown to API callers.
const (
	MsgEmailRequired    = "Email is required to process the order."
	MsgUserDetails      = "Oops! There was an issue updating your personal details."
	MsgOrderDetails     = "Hmm... Something went wrong with your order details."
	MsgPaymentInitiated = "Your order has been initiated! Redirecting to the payment window..."
	MsgPaymentFailed    = "We couldn't process your payment at the moment."
	MsgConversionFailed = "We couldn't price your order at the moment."
)

// ValidationError is bad caller input, with per-field details.
type ValidationError struct {
	Message string
	Fields  map[string]string
	Err     error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

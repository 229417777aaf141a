package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies SDK errors.
type ErrorCode string

const (
	ErrSDKNotInitialized     ErrorCode = "sdk_not_initialized"
	ErrInvalidDataFormat     ErrorCode = "invalid_data_format"
	ErrUnknown               ErrorCode = "unknown"
	ErrUnsupportedPayment    ErrorCode = "unsupported_payment"
	ErrIncorrectPaymentSetup ErrorCode = "incorrect_payment_setup"
	ErrAuthentication        ErrorCode = "authentication_error"
	ErrMissingData           ErrorCode = "missing_data"
)

// ErrCanceled reports that the user dismissed a payment sheet, checkout or
// challenge page. Collaborators return it (or wrap it) to signal cancellation.
var ErrCanceled = errors.New("payment canceled by user")

// PayrailsError is the error type of the SDK.
type PayrailsError struct {
	Code        ErrorCode   `json:"code"`
	Message     string      `json:"message"`
	PaymentType PaymentType `json:"paymentType,omitempty"`
	Err         error       `json:"-"`
}

func (e *PayrailsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PayrailsError) Unwrap() error {
	return e.Err
}

// Is matches another *PayrailsError with the same code, so
// errors.Is(err, &PayrailsError{Code: ErrMissingData}) works.
func (e *PayrailsError) Is(target error) bool {
	var other *PayrailsError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// HasCode reports whether err is a *PayrailsError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var perr *PayrailsError
	if errors.As(err, &perr) {
		return perr.Code == code
	}
	return false
}

func NewSDKNotInitialized() *PayrailsError {
	return &PayrailsError{Code: ErrSDKNotInitialized, Message: "sdk is not initialized"}
}

func NewInvalidDataFormat(message string, cause error) *PayrailsError {
	return &PayrailsError{Code: ErrInvalidDataFormat, Message: message, Err: cause}
}

func NewUnknown(cause error) *PayrailsError {
	return &PayrailsError{Code: ErrUnknown, Message: "unknown error", Err: cause}
}

func NewUnsupportedPayment(t PaymentType) *PayrailsError {
	return &PayrailsError{
		Code:        ErrUnsupportedPayment,
		Message:     fmt.Sprintf("unsupported payment: %s", t),
		PaymentType: t,
	}
}

func NewIncorrectPaymentSetup(t PaymentType, cause error) *PayrailsError {
	return &PayrailsError{
		Code:        ErrIncorrectPaymentSetup,
		Message:     fmt.Sprintf("incorrect payment setup for %s", t),
		PaymentType: t,
		Err:         cause,
	}
}

func NewAuthenticationError(status int) *PayrailsError {
	return &PayrailsError{
		Code:    ErrAuthentication,
		Message: fmt.Sprintf("authentication error (status %d)", status),
	}
}

func NewMissingData(description string) *PayrailsError {
	return &PayrailsError{Code: ErrMissingData, Message: fmt.Sprintf("missing data: %s", description)}
}

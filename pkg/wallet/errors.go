package wallet

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the wallet service.
var (
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrOfferNotFound        = errors.New("offer not found")
	ErrPlanNotFound         = errors.New("pricing plan not found")
	ErrAdminNotFound        = errors.New("admin not found")
	ErrMobileTaken          = errors.New("mobile number already registered")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrSessionActive        = errors.New("customer already has an open session")
	ErrSessionClosed        = errors.New("session is already closed")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidMobile        = errors.New("invalid mobile number")
	ErrInvalidQRToken       = errors.New("invalid qr token")
	ErrInvalidName          = errors.New("invalid name")
	ErrInvalidDuration      = errors.New("invalid duration")
	ErrInvalidGuestCount    = errors.New("invalid guest count")
	ErrInvalidDiscount      = errors.New("invalid discount")
	ErrInvalidPaymentMode   = errors.New("invalid payment mode")
	ErrInvalidKind          = errors.New("invalid transaction kind")
	ErrInvalidStatus        = errors.New("invalid session status")
	ErrInvalidRole          = errors.New("invalid admin role")
	ErrInvalidPlanType      = errors.New("invalid plan type")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

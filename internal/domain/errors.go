package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation errors (VALIDATION_*): local invariant violated before any
	// external call was made. No processor side effect exists.
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationTokenRequired ErrorCode = "VALIDATION_TOKEN_REQUIRED"
	ErrorCodeValidationAmountInvalid ErrorCode = "VALIDATION_AMOUNT_INVALID"
	ErrorCodeValidationMissingField  ErrorCode = "VALIDATION_MISSING_FIELD"

	// Processor gateway errors (GATEWAY_*)
	ErrorCodeGatewayError    ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayTimeout  ErrorCode = "GATEWAY_TIMEOUT"
	ErrorCodeGatewayDeclined ErrorCode = "GATEWAY_DECLINED"

	// Not-found errors
	ErrorCodeSaleNotFound         ErrorCode = "SALE_NOT_FOUND"
	ErrorCodeSubscriptionNotFound ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrorCodePlanNotFound         ErrorCode = "PLAN_NOT_FOUND"
	ErrorCodeCustomerNotFound     ErrorCode = "CUSTOMER_NOT_FOUND"

	// State machine errors (STATE_*)
	ErrorCodeStateTransition ErrorCode = "STATE_TRANSITION_INVALID"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsValidationError reports whether err is a pre-call validation failure.
// Validation failures leave entity state untouched.
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationTokenRequired ||
		code == ErrorCodeValidationAmountInvalid ||
		code == ErrorCodeValidationMissingField
}

// IsGatewayError reports whether err originated from the payment processor
func IsGatewayError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeGatewayError ||
		code == ErrorCodeGatewayTimeout ||
		code == ErrorCodeGatewayDeclined
}

// IsNotFoundError reports whether err represents a missing record
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeSaleNotFound ||
		code == ErrorCodeSubscriptionNotFound ||
		code == ErrorCodePlanNotFound ||
		code == ErrorCodeCustomerNotFound
}

// StateTransitionError signals an attempt to move an entity through a
// transition its current state does not allow. This is a programming-contract
// violation: callers must guard transitions, so it is logged as fatal-class
// and never surfaced to end users.
type StateTransitionError struct {
	Entity string
	Event  string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition %s -> %s (event %q)", e.Entity, e.From, e.To, e.Event)
}

// IsStateTransitionError reports whether err is a StateTransitionError
func IsStateTransitionError(err error) bool {
	var t *StateTransitionError
	return errors.As(err, &t)
}

// Common domain errors
var (
	ErrSaleNotFound         = NewDomainError(ErrorCodeSaleNotFound, "sale not found")
	ErrSubscriptionNotFound = NewDomainError(ErrorCodeSubscriptionNotFound, "subscription not found")
	ErrPlanNotFound         = NewDomainError(ErrorCodePlanNotFound, "plan not found")
	ErrCustomerNotFound     = NewDomainError(ErrorCodeCustomerNotFound, "customer not found")

	ErrTokenRequired = NewDomainError(ErrorCodeValidationTokenRequired, "payment token required for paid plan with new customer")
	ErrInvalidAmount = NewDomainError(ErrorCodeValidationAmountInvalid, "amount must not be negative")

	ErrGatewayError    = NewDomainError(ErrorCodeGatewayError, "payment processor error")
	ErrGatewayTimedOut = NewDomainError(ErrorCodeGatewayTimeout, "payment processor timeout")
	ErrGatewayDeclined = NewDomainError(ErrorCodeGatewayDeclined, "payment declined by processor")
)

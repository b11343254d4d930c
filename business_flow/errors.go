// Package businessflow contains the core business logic and use cases for the number store
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Cart-related errors
	ErrCartEmpty                = errors.New("cart is empty")
	ErrCartItemNotFound         = errors.New("cart item not found")
	ErrPhoneNumberRequired      = errors.New("phone number is required")
	ErrInvalidForwardingType    = errors.New("invalid forwarding type")
	ErrPhoneNumberAlreadyInCart = errors.New("phone number is already in the cart")

	// Checkout-related errors
	ErrCheckoutSessionNotFound = errors.New("checkout session not found")
	ErrCheckoutNotCompleted    = errors.New("checkout session is not completed")
	ErrOrderNotFound           = errors.New("order not found")
	ErrCheckoutGatewayFailed   = errors.New("payment gateway request failed")

	// Operator errors
	ErrOperatorAccessRequired = errors.New("operator access required")

	// Number and provisioning errors
	ErrNumberNotFound         = errors.New("purchased number not found")
	ErrNumberAccessDenied     = errors.New("purchased number access denied")
	ErrAlreadyProvisioned     = errors.New("number is already provisioned")
	ErrProvisioningInProgress = errors.New("provisioning is already in progress")
	ErrNumberNotFailed        = errors.New("number is not in a failed state")
	ErrTaskAlreadyQueued      = errors.New("a provisioning task is already open for this number")

	// SMS configuration errors
	ErrNumberNotActive      = errors.New("number is not active")
	ErrSmsNotEnabled        = errors.New("SMS is not enabled for this number")
	ErrSmsMessageEmpty      = errors.New("SMS message is empty")
	ErrSmsRecipientRequired = errors.New("SMS recipient is required")

	// Usage errors
	ErrUpstreamFailure       = errors.New("upstream provider request failed")
	ErrInvalidExportFormat   = errors.New("invalid export format")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")

	ErrCacheNotAvailable = errors.New("cache not available")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsCartEmpty(err error) bool {
	return errors.Is(err, ErrCartEmpty)
}

func IsCartItemNotFound(err error) bool {
	return errors.Is(err, ErrCartItemNotFound)
}

func IsInvalidForwardingType(err error) bool {
	return errors.Is(err, ErrInvalidForwardingType)
}

func IsPhoneNumberAlreadyInCart(err error) bool {
	return errors.Is(err, ErrPhoneNumberAlreadyInCart)
}

func IsCheckoutNotCompleted(err error) bool {
	return errors.Is(err, ErrCheckoutNotCompleted)
}

func IsCheckoutSessionNotFound(err error) bool {
	return errors.Is(err, ErrCheckoutSessionNotFound)
}

func IsCheckoutGatewayFailed(err error) bool {
	return errors.Is(err, ErrCheckoutGatewayFailed)
}

func IsOrderNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

func IsNumberNotFound(err error) bool {
	return errors.Is(err, ErrNumberNotFound)
}

func IsNumberAccessDenied(err error) bool {
	return errors.Is(err, ErrNumberAccessDenied)
}

func IsAlreadyProvisioned(err error) bool {
	return errors.Is(err, ErrAlreadyProvisioned)
}

func IsProvisioningInProgress(err error) bool {
	return errors.Is(err, ErrProvisioningInProgress)
}

func IsNumberNotFailed(err error) bool {
	return errors.Is(err, ErrNumberNotFailed)
}

func IsNumberNotActive(err error) bool {
	return errors.Is(err, ErrNumberNotActive)
}

func IsSmsNotEnabled(err error) bool {
	return errors.Is(err, ErrSmsNotEnabled)
}

func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrUpstreamFailure)
}

func IsOperatorAccessRequired(err error) bool {
	return errors.Is(err, ErrOperatorAccessRequired)
}

func IsSmsMessageEmpty(err error) bool {
	return errors.Is(err, ErrSmsMessageEmpty)
}

func IsInvalidExportFormat(err error) bool {
	return errors.Is(err, ErrInvalidExportFormat)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}

package utils

import (
	"fmt"
)

// ResponseCode is a stable application error code carried on AppError
// and in webhook responses.
type ResponseCode int

const (
	CodeSuccess ResponseCode = 0

	// Parameter errors (1xxx)
	CodeInvalidParam  ResponseCode = 1001
	CodeInvalidAmount ResponseCode = 1002

	// User related (2xxx)
	CodeUserNotFound  ResponseCode = 2001
	CodeUserNotLinked ResponseCode = 2002
	CodeLoginFailed   ResponseCode = 2003

	// Ad related (3xxx)
	CodeAdNotFound    ResponseCode = 3001
	CodeAdNotActive   ResponseCode = 3002
	CodeAdNotOwned    ResponseCode = 3003
	CodeQuantityRange ResponseCode = 3004

	// Proposal related (4xxx)
	CodeProposalNotFound  ResponseCode = 4001
	CodeProposalProcessed ResponseCode = 4002
	CodeSelfProposal      ResponseCode = 4003

	// Subscription and payment related (5xxx)
	CodeNoSubscription  ResponseCode = 5001
	CodePlanNotFound    ResponseCode = 5002
	CodePaymentNotFound ResponseCode = 5003
	CodePaymentRejected ResponseCode = 5004

	// Rating related (6xxx)
	CodeRatingNotFound ResponseCode = 6001
	CodeRatingDone     ResponseCode = 6002

	// System errors (9xxx)
	CodeInternalError ResponseCode = 9001
	CodeServiceError  ResponseCode = 9002
	CodeDatabaseError ResponseCode = 9003
	CodeRedisError    ResponseCode = 9004
	CodeRateLimit     ResponseCode = 9005
	CodeTelegramError ResponseCode = 9006
	CodeGatewayError  ResponseCode = 9007
)

// AppError application error structure
type AppError struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

// Error implement error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code: %d, message: %s, error: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// Unwrap implement errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError create new application error
func NewError(code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithErr create application error with original error
func NewErrorWithErr(code ResponseCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WrapError wrap error
func WrapError(err error, code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predefined errors
var (
	// Parameter errors
	ErrInvalidParam = NewError(CodeInvalidParam, "invalid parameter")

	// User related errors
	ErrUserNotFound  = NewError(CodeUserNotFound, "user not found")
	ErrUserNotLinked = NewError(CodeUserNotLinked, "telegram account not linked to a site account")
	ErrLoginFailed   = NewError(CodeLoginFailed, "invalid email or password")

	// Ad related errors
	ErrAdNotFound  = NewError(CodeAdNotFound, "ad not found")
	ErrAdNotActive = NewError(CodeAdNotActive, "ad is no longer active")
	ErrAdNotOwned  = NewError(CodeAdNotOwned, "ad does not belong to this user")

	// Proposal related errors
	ErrProposalNotFound = NewError(CodeProposalNotFound, "proposal not found")
	ErrAlreadyProcessed = NewError(CodeProposalProcessed, "proposal already processed")
	ErrSelfProposal     = NewError(CodeSelfProposal, "cannot send a proposal to your own ad")

	// Subscription and payment errors
	ErrNoSubscription  = NewError(CodeNoSubscription, "no active subscription")
	ErrPlanNotFound    = NewError(CodePlanNotFound, "plan not found")
	ErrPaymentNotFound = NewError(CodePaymentNotFound, "payment not found")

	// Rating errors
	ErrRatingNotFound = NewError(CodeRatingNotFound, "rating not found")
	ErrRatingDone     = NewError(CodeRatingDone, "rating already submitted")

	// System errors
	ErrInternalError = NewError(CodeInternalError, "internal server error")
	ErrServiceError  = NewError(CodeServiceError, "service error")
	ErrDatabaseError = NewError(CodeDatabaseError, "database error")
	ErrRedisError    = NewError(CodeRedisError, "redis error")
	ErrRateLimit     = NewError(CodeRateLimit, "rate limit exceeded")
)

// IsAppError check if it's an application error
func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

// GetErrorCode get error code
func GetErrorCode(err error) ResponseCode {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternalError
}

// GetErrorMessage get error message
func GetErrorMessage(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

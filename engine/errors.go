package engine

import "errors"

// Code is the stable error code carried across the socket boundary.
type Code string

const (
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeGameNotFound        Code = "GAME_NOT_FOUND"
	CodeBettingClosed       Code = "BETTING_CLOSED"
	CodeWrongPhase          Code = "WRONG_PHASE"
	CodeInvalidSide         Code = "INVALID_SIDE"
	CodeInvalidCard         Code = "INVALID_CARD"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeBelowMinimum        Code = "BELOW_MINIMUM"
	CodeAboveMaximum        Code = "ABOVE_MAXIMUM"
	CodeDuplicateBet        Code = "DUPLICATE_BET"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeAuthRequired        Code = "AUTH_REQUIRED"
	CodeServiceUnavailable  Code = "SERVICE_UNAVAILABLE"
)

// Error is a typed engine failure. Validation failures are returned
// synchronously as these, never thrown across the socket boundary; the
// router converts them into error/bet_error messages.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError extracts a typed engine error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

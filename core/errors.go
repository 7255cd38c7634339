package core

import "errors"

var (
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrNotOwner            = errors.New("not owner")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrNotApproved         = errors.New("not approved")
	ErrListingNotActive    = errors.New("listing not active")
	ErrInvalidPrice        = errors.New("invalid price")

	ErrTokenNotFound     = errors.New("token not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownContract   = errors.New("unknown contract")
)

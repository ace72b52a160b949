package domain

import "errors"

var (
	ErrItemNotFound = errors.New("item not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyCart    = errors.New("empty cart")
)

package domain

import "errors"

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

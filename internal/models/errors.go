package models

import "errors"

// Custom errors
var (
	ErrInvalidRule  = errors.New("invalid rule")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
)

package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrPersistence   = errors.New("persistence failure")
)

package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateJob        = errors.New("scene already has an outstanding job")
	ErrMissingImage        = errors.New("scene has no image artifact")
	ErrUnknownModel        = errors.New("unknown model")
	ErrProviderFailure     = errors.New("provider failure")
)

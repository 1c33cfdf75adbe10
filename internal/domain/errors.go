package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidInput    = errors.New("invalid input")
	ErrAlreadyReviewed = errors.New("property already reviewed by this user")
	ErrNotEligible     = errors.New("only guests with a completed stay can review")
	ErrDraftNotReady   = errors.New("draft is not ready for publish")
	ErrBotCheckFailed  = errors.New("bot verification failed")
)

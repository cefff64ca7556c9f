package domain

import "errors"

var (
	ErrFlagNotFound    = errors.New("moderation flag not found")
	ErrInvalidDecision = errors.New("invalid review decision")
	ErrAlreadyReviewed = errors.New("flag already reviewed")
)

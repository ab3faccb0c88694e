package services

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrDateInPast      = errors.New("date rule starts before today")
	ErrEmptyFlowID     = errors.New("flow id is required")
)

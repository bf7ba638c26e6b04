package apperrors

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrNoCurrentExercise = errors.New("no current exercise")
	ErrExerciseNotFound  = errors.New("exercise not found")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrClientUnavailable = errors.New("exercise client unavailable")
)

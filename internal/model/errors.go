package model

import "errors"

var (
	// ErrValidation means a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyExists means a credential for the email is already stored.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound means the addressed record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials means the email/password pair did not verify.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrRecoveryMismatch means the recovery answer did not match.
	ErrRecoveryMismatch = errors.New("recovery answer mismatch")
	// ErrIndexOutOfRange means a planner position is outside the list.
	ErrIndexOutOfRange = errors.New("index out of range")
)

package model

import "errors"

// Common errors used across the application
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrClientTooOld       = errors.New("client version too old")
	ErrAlreadyLoggedIn    = errors.New("user already has an active session")
	ErrHardwareConflict   = errors.New("hardware fingerprint matches a restricted account")
	ErrMalformedLogin     = errors.New("malformed login request")

	// Registry errors
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")

	// Channel errors
	ErrChannelNotFound     = errors.New("channel not found")
	ErrAlreadyInChannel    = errors.New("already a member of the channel")
	ErrNotInChannel        = errors.New("not a member of the channel")
	ErrInsufficientPrivs   = errors.New("insufficient privileges")
	ErrChannelNameConflict = errors.New("channel name already in use")

	// Match errors
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchFull       = errors.New("match is full")
	ErrMatchTableFull  = errors.New("match table is full")
	ErrBadPassword     = errors.New("incorrect match password")
	ErrAlreadyInMatch  = errors.New("already in a match")
	ErrNotInMatch      = errors.New("not in a match")
	ErrSlotOccupied    = errors.New("slot is occupied")
	ErrSlotUnavailable = errors.New("slot is locked or unavailable")

	// Spectator errors
	ErrNotSpectating = errors.New("not spectating anyone")
)

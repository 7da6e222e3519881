package domain

import "errors"

var (
	ErrAddressInUse       = errors.New("address already in use")
	ErrAddressNotFound    = errors.New("user not found or offline")
	ErrNotRegistered      = errors.New("not registered with an address")
	ErrCallerOffline      = errors.New("caller not found or offline")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidFormat      = errors.New("invalid message format")

	ErrInvalidAddress    = errors.New("invalid address")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrBusy              = errors.New("user is busy")
	ErrSelfCall          = errors.New("cannot call yourself")
	ErrNoAnswer          = errors.New("no answer")
	ErrPeerGone          = errors.New("peer disconnected")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrInvalidTransition = errors.New("invalid call phase transition")
)

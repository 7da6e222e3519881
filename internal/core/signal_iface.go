package core

import "errors"

// Frame is one encoded envelope.
type Frame []byte

// ConnID identifies a live transport connection. Generated by the adapter.
type ConnID string

var (
	ErrBackpressure   = errors.New("backpressure")
	ErrConnectionGone = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

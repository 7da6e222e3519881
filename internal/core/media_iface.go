package core

import (
	"context"
	"encoding/json"
)

// MediaNegotiator is the client-side media stack seen from the signaling layer.
// Every payload it produces or consumes is opaque to the relay.
type MediaNegotiator interface {
	// Start binds the underlying resources to ctx.
	Start(ctx context.Context) error
	// CreateOffer returns the local offer to send with a call request.
	CreateOffer() (json.RawMessage, error)
	// AcceptOffer applies a remote offer and returns the local answer.
	AcceptOffer(offer json.RawMessage) (json.RawMessage, error)
	ApplyAnswer(answer json.RawMessage) error
	AddCandidate(candidate json.RawMessage) error
	// OnCandidate sets a callback for newly gathered local candidates.
	OnCandidate(func(json.RawMessage))
	Close()
}

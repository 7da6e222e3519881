// Package protocol defines the JSON envelopes exchanged over the signal socket.
// Inbound envelopes are decoded once into a closed set of Message variants.
package protocol

import "encoding/json"

type Kind string

// Client to server.
const (
	KindRegister     Kind = "register"
	KindSetPublic    Kind = "set_public"
	KindGetListings  Kind = "get_public_listings"
	KindCallRequest  Kind = "call_request"
	KindCallResponse Kind = "call_response"
	KindIceCandidate Kind = "ice_candidate"
	KindEndCall      Kind = "end_call"
	KindPing         Kind = "ping"
)

// Server to client.
const (
	KindRegistrationSuccess Kind = "registration_success"
	KindRegistrationFailed  Kind = "registration_failed"
	KindPublicStatusUpdated Kind = "public_status_updated"
	KindPublicListings      Kind = "public_listings"
	KindUserStatusChange    Kind = "user_status_change"
	KindIncomingCall        Kind = "incoming_call"
	KindCallAnswered        Kind = "call_answered"
	KindCallFailed          Kind = "call_failed"
	KindCallEnded           Kind = "call_ended"
	KindError               Kind = "error"
	KindPong                Kind = "pong"
)

// Message is an inbound envelope. The set of implementations is closed.
type Message interface {
	Kind() Kind
	message()
}

type Register struct {
	Address string
}

type SetPublic struct {
	Visible bool
}

type GetPublicListings struct{}

type CallRequest struct {
	TargetAddress string
	Offer         json.RawMessage
}

type CallResponse struct {
	CallerAddress string
	Accepted      bool
	// Answer is nil unless Accepted.
	Answer json.RawMessage
}

type IceCandidate struct {
	TargetAddress string
	Candidate     json.RawMessage
}

type EndCall struct {
	TargetAddress string
}

type Ping struct{}

func (Register) Kind() Kind          { return KindRegister }
func (SetPublic) Kind() Kind         { return KindSetPublic }
func (GetPublicListings) Kind() Kind { return KindGetListings }
func (CallRequest) Kind() Kind       { return KindCallRequest }
func (CallResponse) Kind() Kind      { return KindCallResponse }
func (IceCandidate) Kind() Kind      { return KindIceCandidate }
func (EndCall) Kind() Kind           { return KindEndCall }
func (Ping) Kind() Kind              { return KindPing }

func (Register) message()          {}
func (SetPublic) message()         {}
func (GetPublicListings) message() {}
func (CallRequest) message()       {}
func (CallResponse) message()      {}
func (IceCandidate) message()      {}
func (EndCall) message()           {}
func (Ping) message()              {}

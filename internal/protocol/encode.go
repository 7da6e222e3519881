package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Dialtone/internal/domain"
)

type RegistrationSuccess struct {
	Type    Kind   `json:"type"`
	Address string `json:"address"`
}

// Failure covers registration_failed, call_failed and error.
type Failure struct {
	Type   Kind   `json:"type"`
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}

type PublicStatusUpdated struct {
	Type    Kind `json:"type"`
	Visible bool `json:"visible"`
}

type PublicListings struct {
	Type    Kind     `json:"type"`
	Listing []string `json:"listing"`
}

type UserStatusChange struct {
	Type    Kind   `json:"type"`
	Address string `json:"address"`
	Online  bool   `json:"online"`
}

type IncomingCall struct {
	Type        Kind            `json:"type"`
	FromAddress string          `json:"fromAddress"`
	Offer       json.RawMessage `json:"-"`
}

type CallAnswered struct {
	Type      Kind            `json:"type"`
	ByAddress string          `json:"byAddress"`
	Accepted  bool            `json:"accepted"`
	Answer    json.RawMessage `json:"-"`
}

type RelayedCandidate struct {
	Type        Kind            `json:"type"`
	FromAddress string          `json:"fromAddress"`
	Candidate   json.RawMessage `json:"-"`
}

// opaque is implemented by envelopes carrying a negotiation payload that
// must reach the peer exactly as the sender wrote it.
type opaque interface {
	payload() (name string, raw json.RawMessage, omitEmpty bool)
}

func (m IncomingCall) payload() (string, json.RawMessage, bool) { return "offer", m.Offer, false }
func (m CallAnswered) payload() (string, json.RawMessage, bool) { return "answer", m.Answer, true }
func (m RelayedCandidate) payload() (string, json.RawMessage, bool) { return "candidate", m.Candidate, false }

type CallEnded struct {
	Type      Kind   `json:"type"`
	ByAddress string `json:"byAddress"`
}

type Pong struct {
	Type Kind `json:"type"`
}

func NewRegistrationSuccess(addr domain.Address) RegistrationSuccess {
	return RegistrationSuccess{Type: KindRegistrationSuccess, Address: string(addr)}
}

func NewFailure(kind Kind, err error) Failure {
	return Failure{Type: kind, Reason: ReasonOf(err), Code: CodeOf(err)}
}

func NewPublicStatusUpdated(visible bool) PublicStatusUpdated {
	return PublicStatusUpdated{Type: KindPublicStatusUpdated, Visible: visible}
}

func NewPublicListings(addrs []domain.Address) PublicListings {
	listing := make([]string, 0, len(addrs))
	for _, a := range addrs {
		listing = append(listing, string(a))
	}
	return PublicListings{Type: KindPublicListings, Listing: listing}
}

func NewUserStatusChange(addr domain.Address, online bool) UserStatusChange {
	return UserStatusChange{Type: KindUserStatusChange, Address: string(addr), Online: online}
}

func NewIncomingCall(from domain.Address, offer json.RawMessage) IncomingCall {
	return IncomingCall{Type: KindIncomingCall, FromAddress: string(from), Offer: offer}
}

// NewCallAnswered never carries negotiation data for a rejected call.
func NewCallAnswered(by domain.Address, accepted bool, answer json.RawMessage) CallAnswered {
	msg := CallAnswered{Type: KindCallAnswered, ByAddress: string(by), Accepted: accepted}
	if accepted {
		msg.Answer = answer
	}
	return msg
}

func NewRelayedCandidate(from domain.Address, candidate json.RawMessage) RelayedCandidate {
	return RelayedCandidate{Type: KindIceCandidate, FromAddress: string(from), Candidate: candidate}
}

func NewCallEnded(by domain.Address) CallEnded {
	return CallEnded{Type: KindCallEnded, ByAddress: string(by)}
}

func NewPong() Pong { return Pong{Type: KindPong} }

// Encode marshals an outbound envelope. HTML escaping is off, and opaque
// payloads are spliced in verbatim since encoding/json compacts raw values.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	o, ok := v.(opaque)
	if !ok {
		return out, nil
	}
	name, raw, omitEmpty := o.payload()
	if len(raw) == 0 {
		if omitEmpty {
			return out, nil
		}
		raw = json.RawMessage("null")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("encode: invalid %s payload", name)
	}
	out = bytes.TrimSuffix(out, []byte("}"))
	out = append(out, `,"`...)
	out = append(out, name...)
	out = append(out, `":`...)
	out = append(out, raw...)
	return append(out, '}'), nil
}

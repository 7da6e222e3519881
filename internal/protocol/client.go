package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Dialtone/internal/domain"
)

type wireOut struct {
	Type          Kind            `json:"type"`
	Address       *string         `json:"address,omitempty"`
	Visible       *bool           `json:"visible,omitempty"`
	TargetAddress string          `json:"targetAddress,omitempty"`
	CallerAddress string          `json:"callerAddress,omitempty"`
	Accepted      *bool           `json:"accepted,omitempty"`
	Offer         json.RawMessage `json:"offer,omitempty"`
	Answer        json.RawMessage `json:"answer,omitempty"`
	Candidate     json.RawMessage `json:"candidate,omitempty"`
}

// EncodeMessage is the client side of Decode.
func EncodeMessage(m Message) ([]byte, error) {
	w := wireOut{Type: m.Kind()}
	switch m := m.(type) {
	case Register:
		w.Address = &m.Address
	case SetPublic:
		w.Visible = &m.Visible
	case GetPublicListings, Ping:
	case CallRequest:
		w.TargetAddress = m.TargetAddress
		w.Offer = m.Offer
	case CallResponse:
		w.CallerAddress = m.CallerAddress
		w.Accepted = &m.Accepted
		if m.Accepted {
			w.Answer = m.Answer
		}
	case IceCandidate:
		w.TargetAddress = m.TargetAddress
		w.Candidate = m.Candidate
	case EndCall:
		w.TargetAddress = m.TargetAddress
	}
	return Encode(w)
}

// Event is any server envelope as seen by a client. Fields not carried by
// Kind are zero.
type Event struct {
	Kind        Kind            `json:"type"`
	Address     string          `json:"address,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Code        string          `json:"code,omitempty"`
	Visible     bool            `json:"visible,omitempty"`
	Listing     []string        `json:"listing,omitempty"`
	Online      bool            `json:"online,omitempty"`
	FromAddress string          `json:"fromAddress,omitempty"`
	ByAddress   string          `json:"byAddress,omitempty"`
	Accepted    bool            `json:"accepted,omitempty"`
	Offer       json.RawMessage `json:"offer,omitempty"`
	Answer      json.RawMessage `json:"answer,omitempty"`
	Candidate   json.RawMessage `json:"candidate,omitempty"`
}

func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	if ev.Kind == "" {
		return Event{}, fmt.Errorf("%w: missing type", domain.ErrInvalidFormat)
	}
	return ev, nil
}

// Failed reports whether the event is one of the failure envelopes.
func (e Event) Failed() bool {
	return e.Kind == KindRegistrationFailed || e.Kind == KindCallFailed || e.Kind == KindError
}

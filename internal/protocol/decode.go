package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Dialtone/internal/domain"
)

// wireIn is the union of every client field. Pointers tell "missing" apart
// from zero values.
type wireIn struct {
	Type          *string         `json:"type"`
	Address       *string         `json:"address"`
	Visible       *bool           `json:"visible"`
	TargetAddress *string         `json:"targetAddress"`
	CallerAddress *string         `json:"callerAddress"`
	Accepted      *bool           `json:"accepted"`
	Offer         json.RawMessage `json:"offer"`
	Answer        json.RawMessage `json:"answer"`
	Candidate     json.RawMessage `json:"candidate"`
}

// Decode parses one envelope. Errors wrap domain.ErrInvalidFormat or
// domain.ErrUnknownMessageType.
func Decode(data []byte) (Message, error) {
	var w wireIn
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFormat, err)
	}
	if w.Type == nil {
		return nil, fmt.Errorf("%w: missing type", domain.ErrInvalidFormat)
	}

	switch Kind(*w.Type) {
	case KindRegister:
		if w.Address == nil {
			return nil, missing("address")
		}
		return Register{Address: *w.Address}, nil
	case KindSetPublic:
		if w.Visible == nil {
			return nil, missing("visible")
		}
		return SetPublic{Visible: *w.Visible}, nil
	case KindGetListings:
		return GetPublicListings{}, nil
	case KindCallRequest:
		if w.TargetAddress == nil {
			return nil, missing("targetAddress")
		}
		if absent(w.Offer) {
			return nil, missing("offer")
		}
		return CallRequest{TargetAddress: *w.TargetAddress, Offer: w.Offer}, nil
	case KindCallResponse:
		if w.CallerAddress == nil {
			return nil, missing("callerAddress")
		}
		if w.Accepted == nil {
			return nil, missing("accepted")
		}
		msg := CallResponse{CallerAddress: *w.CallerAddress, Accepted: *w.Accepted}
		if msg.Accepted {
			if absent(w.Answer) {
				return nil, missing("answer")
			}
			msg.Answer = w.Answer
		}
		return msg, nil
	case KindIceCandidate:
		if w.TargetAddress == nil {
			return nil, missing("targetAddress")
		}
		if absent(w.Candidate) {
			return nil, missing("candidate")
		}
		return IceCandidate{TargetAddress: *w.TargetAddress, Candidate: w.Candidate}, nil
	case KindEndCall:
		if w.TargetAddress == nil {
			return nil, missing("targetAddress")
		}
		return EndCall{TargetAddress: *w.TargetAddress}, nil
	case KindPing:
		return Ping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMessageType, *w.Type)
	}
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", domain.ErrInvalidFormat, field)
}

// absent treats JSON null like a missing field.
func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

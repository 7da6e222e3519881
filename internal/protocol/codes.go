package protocol

import (
	"errors"

	"github.com/dkeye/Dialtone/internal/domain"
)

var codes = []struct {
	err  error
	code string
}{
	{domain.ErrAddressInUse, "AddressInUse"},
	{domain.ErrAddressNotFound, "AddressNotFound"},
	{domain.ErrNotRegistered, "NotRegistered"},
	{domain.ErrCallerOffline, "CallerOffline"},
	{domain.ErrUnknownMessageType, "UnknownMessageType"},
	{domain.ErrInvalidFormat, "InvalidFormat"},
	{domain.ErrInvalidAddress, "InvalidAddress"},
	{domain.ErrAlreadyRegistered, "AlreadyRegistered"},
	{domain.ErrBusy, "Busy"},
	{domain.ErrSelfCall, "SelfCall"},
	{domain.ErrNoAnswer, "NoAnswer"},
	{domain.ErrPeerGone, "PeerGone"},
	{domain.ErrRateLimited, "RateLimited"},
}

// CodeOf maps an error to its wire code. Unknown errors map to "Internal".
func CodeOf(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "Internal"
}

// ReasonOf is the human-readable reason. Wrapped detail is kept off the wire.
func ReasonOf(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return "internal error"
}

// Package domain contains entities and their invariants, no transport here.
package domain

import (
	"fmt"
	"strings"
)

const MaxAddressLen = 32

// Address is the caller-chosen public identifier a connection registers under.
type Address string

// ParseAddress validates raw input coming off the wire.
func ParseAddress(raw string) (Address, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if len(raw) > MaxAddressLen {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidAddress, MaxAddressLen)
	}
	if strings.TrimSpace(raw) != raw {
		return "", fmt.Errorf("%w: surrounding whitespace", ErrInvalidAddress)
	}
	return Address(raw), nil
}

func (a Address) String() string { return string(a) }

package app

import "github.com/dkeye/Dialtone/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickConnection
)

// Policy decides what happens to a connection whose output buffer is full.
type Policy interface {
	OnBackPressure(cid core.ConnID) BackpressureAction
}

// SimplePolicy disconnects slow consumers; their cleanup frees the address.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.ConnID) BackpressureAction {
	return KickConnection
}

// LenientPolicy drops the frame and keeps the connection.
type LenientPolicy struct{}

func (LenientPolicy) OnBackPressure(core.ConnID) BackpressureAction {
	return DropFrame
}

// PolicyByName maps a config value to a policy; unknown names fall back to SimplePolicy.
func PolicyByName(name string) Policy {
	switch name {
	case "drop":
		return LenientPolicy{}
	default:
		return SimplePolicy{}
	}
}

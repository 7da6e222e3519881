package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/protocol"
)

func (ctl *SignalWSController) handleCallRequest(cid core.ConnID, m protocol.CallRequest) {
	log.Debug().Str("module", "signal").Str("cid", string(cid)).Str("target", m.TargetAddress).Msg("call request")
	ctl.Orch.CallRequest(cid, m.TargetAddress, m.Offer)
}

func (ctl *SignalWSController) handleCallResponse(cid core.ConnID, m protocol.CallResponse) {
	ctl.Orch.CallResponse(cid, m.CallerAddress, m.Accepted, m.Answer)
}

// Candidates are frequent; keep them out of the info log.
func (ctl *SignalWSController) handleCandidate(cid core.ConnID, m protocol.IceCandidate) {
	ctl.Orch.IceCandidate(cid, m.TargetAddress, m.Candidate)
}

func (ctl *SignalWSController) handleEndCall(cid core.ConnID, m protocol.EndCall) {
	ctl.Orch.EndCall(cid, m.TargetAddress)
}

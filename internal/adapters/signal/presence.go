package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/protocol"
)

func (ctl *SignalWSController) handleRegister(cid core.ConnID, m protocol.Register) {
	log.Debug().Str("module", "signal").Str("cid", string(cid)).Str("address", m.Address).Msg("register")
	ctl.Orch.Register(cid, m.Address)
}

func (ctl *SignalWSController) handleSetPublic(cid core.ConnID, m protocol.SetPublic) {
	ctl.Orch.SetPublic(cid, m.Visible)
}

func (ctl *SignalWSController) handleListings(cid core.ConnID) {
	ctl.Orch.ListPublic(cid)
}

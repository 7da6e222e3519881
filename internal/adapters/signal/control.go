package signal

import "github.com/dkeye/Dialtone/internal/core"

func (ctl *SignalWSController) handlePing(cid core.ConnID) {
	ctl.Orch.Ping(cid)
}

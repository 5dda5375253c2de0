package worker

import "time"

// statusInterval is how often the node reports its own shape.
const statusInterval = 5 * time.Second

// statusOperations periodically reports chain height, mempool depth, peer
// count and the node account balance. Observability only, no effect on the
// protocol.
func (w *Worker) statusOperations() {
	w.evHandler("worker: statusOperations: G started")
	defer w.evHandler("worker: statusOperations: G completed")

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runStatusOperation()
			}
		case <-w.shut:
			w.evHandler("worker: statusOperations: received shut signal")
			return
		}
	}
}

// runStatusOperation emits one status line.
func (w *Worker) runStatusOperation() {
	latestBlock := w.state.LatestBlock()

	w.evHandler("worker: runStatusOperation: STATUS: height[%d] tip[%s] mempool[%d] peers[%d] balance[%d]",
		latestBlock.Header.Number,
		latestBlock.Hash(),
		w.state.MempoolCount(),
		len(w.state.KnownPeers()),
		w.state.BalanceOf(w.state.BeneficiaryID()),
	)
}

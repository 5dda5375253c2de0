package worker

import (
	"math/rand"
	"time"

	"github.com/agrimkaushik/powledger/foundation/blockchain/peer"
)

// Each sync round waits the base interval plus a fresh jitter so the nodes
// of a network do not fall into lockstep.
const (
	syncInterval  = 4 * time.Second
	syncJitterMax = 2 * time.Second
)

// syncOperations handles the periodic peer and chain reconciliation.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	timer := time.NewTimer(syncWait())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			if !w.isShutdown() {
				w.Sync()
			}
			timer.Reset(syncWait())
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// syncWait returns the next round's wait with fresh jitter.
func syncWait() time.Duration {
	return syncInterval + time.Duration(rand.Int63n(int64(syncJitterMax)))
}

// =============================================================================

// Sync runs one full reconciliation round against the known peers: discover
// new peers, announce this node, and run the fork choice rule against any
// peer whose tip we could act on. Gossip is allowed to drop messages; this
// round is the durability backstop.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, pr := range w.state.KnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(pr)
		if err != nil {
			w.evHandler("worker: sync: queryPeerStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}

		// Add new peers from this peer's list to this node's list.
		w.addNewPeers(peerStatus.KnownPeers)

		// Make sure this node is in the peer's list.
		if err := w.state.NetRequestJoin(pr); err != nil {
			w.evHandler("worker: sync: join: %s: ERROR: %s", pr.Host, err)
		}

		// Only a taller chain or an equal-height chain with a different
		// tip can win the fork choice, so anything else isn't fetched.
		latestBlock := w.state.LatestBlock()
		if peerStatus.LatestBlockNumber < latestBlock.Header.Number {
			continue
		}
		if peerStatus.LatestBlockNumber == latestBlock.Header.Number && peerStatus.LatestBlockHash == latestBlock.Hash() {
			continue
		}

		w.evHandler("worker: sync: chain candidate: %s: height[%d]", pr.Host, peerStatus.LatestBlockNumber)

		blocks, err := w.state.NetRequestPeerChain(pr)
		if err != nil {
			w.evHandler("worker: sync: requestPeerChain: %s: ERROR: %s", pr.Host, err)
			continue
		}

		if err := w.state.ProcessRemoteChain(blocks); err != nil {
			w.evHandler("worker: sync: processRemoteChain: %s: %s", pr.Host, err)
		}
	}
}

// addNewPeers adds peers from the list that are not already known. The
// node's own host never joins the list.
func (w *Worker) addNewPeers(knownPeers []peer.Peer) {
	w.evHandler("worker: sync: addNewPeers: started")
	defer w.evHandler("worker: sync: addNewPeers: completed")

	for _, pr := range knownPeers {
		if pr.Match(w.state.Host()) {
			continue
		}

		if w.state.AddKnownPeer(pr) {
			w.evHandler("worker: sync: addNewPeers: adding peer-node %s", pr)
		}
	}
}

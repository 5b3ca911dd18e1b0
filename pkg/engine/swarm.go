// =============================================================================
// pkg/engine/swarm.go - Piece and Peer Tracking
// =============================================================================
package engine

import (
	"sort"
	"strings"

	"peerflix/pkg/api"
)

// peerChoking reports whether a connection's status flags say the remote
// peer is choking us. Flags after the last '-' describe the remote side and
// contain 'c' while it chokes.
func peerChoking(flags string) bool {
	i := strings.LastIndex(flags, "-")
	if i < 0 {
		return false
	}
	return strings.Contains(flags[i+1:], "c")
}

// pieceTracker follows hash checks. A piece that leaves the checking state
// complete was verified, otherwise its data was rejected.
type pieceTracker struct {
	checking map[int]bool
}

func (p *pieceTracker) observe(index int, checking, complete bool) (api.EventKind, bool) {
	if p.checking == nil {
		p.checking = make(map[int]bool)
	}
	if checking {
		p.checking[index] = true
		return 0, false
	}
	if !p.checking[index] {
		return 0, false
	}
	delete(p.checking, index)
	if complete {
		return api.EventPieceVerified, true
	}
	return api.EventPieceInvalid, true
}

// swarmTracker diffs successive connection snapshots.
type swarmTracker struct {
	peers map[string]bool // address -> choking
}

// update takes the current address->choking snapshot and returns the events
// it implies. A peer that disappears while another connects in the same
// window counts as a hotswap.
func (s *swarmTracker) update(current map[string]bool) []api.Event {
	var events []api.Event
	added, dropped := 0, 0

	addrs := make([]string, 0, len(current))
	for addr := range current {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		choking := current[addr]
		was, known := s.peers[addr]
		switch {
		case !known:
			added++
			events = append(events, api.Event{Kind: api.EventPeerConnected, Peer: addr})
			if choking {
				events = append(events, api.Event{Kind: api.EventPeerChoked, Peer: addr})
			}
		case choking && !was:
			events = append(events, api.Event{Kind: api.EventPeerChoked, Peer: addr})
		}
	}
	for addr := range s.peers {
		if _, ok := current[addr]; !ok {
			dropped++
		}
	}

	for range min(added, dropped) {
		events = append(events, api.Event{Kind: api.EventHotswap})
	}

	s.peers = current
	return events
}

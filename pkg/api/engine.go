// =============================================================================
// pkg/api/engine.go - Engine Handle API
// =============================================================================
package api

import (
	"errors"
	"time"
)

// ErrNoMetadata is returned by operations that need the torrent's info
// dictionary before a magnet link has resolved it.
var ErrNoMetadata = errors.New("torrent metadata not available yet")

// Engine is the torrent streaming engine as seen by the orchestrator.
// Statistics are pulled on demand; control flows through Subscribe.
type Engine interface {
	// Subscribe registers for the given event kinds. An empty list means all.
	Subscribe(kinds ...EventKind) *Subscription
	// HasMetadata reports whether the engine is ready: the info dictionary is
	// known and the streamed file selected. Once true, EventReady has been or
	// is about to be published.
	HasMetadata() bool
	// Files lists the torrent's files in index order.
	Files() ([]FileEntry, error)
	// SelectAll marks every file for download.
	SelectAll() error
	// Listen binds the HTTP server. A successful bind is announced with an
	// EventListening event carrying the bound address.
	Listen(host string, port int) error
	// Stream describes the file served at "/" (or the whole torrent when all
	// files are streamed).
	Stream(all bool) (name string, length int64, err error)
	Stats() Stats
	Peers() []PeerStats
	// Remove drops the torrent, deletes downloaded data and calls done when
	// finished. It does not block.
	Remove(done func(error))
	Stop() error
}

// Stats provides runtime statistics
type Stats struct {
	TorrentName   string        // Name of the torrent
	TotalSize     int64         // Total size in bytes
	Path          string        // Buffer directory
	Downloaded    int64         // Downloaded bytes
	Uploaded      int64         // Uploaded bytes
	DownloadSpeed float64       // Download speed in bytes/sec
	UploadSpeed   float64       // Upload speed in bytes/sec
	ActivePeers   int           // Peers not choking us
	TotalPeers    int           // Connected peers
	QueuedPeers   int           // Known peers waiting for a connection slot
	Uptime        time.Duration // Engine uptime
}

// PeerStats is a live view of one connected peer.
type PeerStats struct {
	Address       string
	Downloaded    int64
	DownloadSpeed float64
	Choked        bool
}

// FileEntry is one file of the torrent.
type FileEntry struct {
	Index  int
	Name   string
	Length int64
}

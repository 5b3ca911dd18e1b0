// =============================================================================
// pkg/api/options.go - Resolved Configuration
// =============================================================================
package api

import (
	"net"
	"strconv"
)

// Player names one autoplay backend.
type Player string

const (
	PlayerNone    Player = ""
	PlayerVLC     Player = "vlc"
	PlayerOMX     Player = "omx"
	PlayerMPlayer Player = "mplayer"
	PlayerMPV     Player = "mpv"
	PlayerAirPlay Player = "airplay"
)

// Options is the immutable snapshot of the user's choices. It is built once
// by the command and handed to every component by pointer; nothing writes to
// it afterwards.
type Options struct {
	Source string // Magnet link, .torrent path or URL

	// Players
	VLC     bool
	OMX     bool
	Jack    bool // OMX audio through the local jack instead of HDMI
	MPlayer bool
	MPV     bool
	AirPlay bool
	OnTop   bool
	NoQuit  bool // Keep streaming after the player exits

	// Subtitles
	Subtitles    string // Explicit subtitle file
	WebSubtitles string // Language code to search for, empty when disabled

	// Stream
	All      bool   // Stream every file through an .m3u playlist
	Index    int    // File to stream (-1 for auto-select)
	Hostname string // Host to bind and advertise, empty for auto
	Port     int    // HTTP server port

	// Swarm
	Connections int      // Maximum connected peers
	PeerPort    int      // Peer listening port, 0 for default
	Peers       []string // Extra peers as ip:port
	Blocklist   string   // P2P blocklist file
	Path        string   // Buffer directory, empty for a temp dir

	// Lifecycle
	Remove bool // Delete downloaded data on exit
	List   bool // Only list files
	Quiet  bool
}

// SelectedPlayer returns the one backend to autoplay. When several flags are
// given the first in VLC, OMX, MPlayer, MPV, AirPlay order wins.
func (o *Options) SelectedPlayer() Player {
	switch {
	case o.VLC:
		return PlayerVLC
	case o.OMX || o.Jack:
		return PlayerOMX
	case o.MPlayer:
		return PlayerMPlayer
	case o.MPV:
		return PlayerMPV
	case o.AirPlay:
		return PlayerAirPlay
	}
	return PlayerNone
}

// SearchSubtitles reports whether the web subtitle workflow should run.
func (o *Options) SearchSubtitles() bool {
	return o.WebSubtitles != "" && o.Subtitles == ""
}

// QuitWithPlayer reports whether the tool exits when the player does.
func (o *Options) QuitWithPlayer() bool {
	return !o.NoQuit
}

// PlaybackTarget is where the stream can be opened. Computed once the server
// is listening and never changed afterwards.
type PlaybackTarget struct {
	Host     string
	Port     int
	Path     string // "/" or "/.m3u"
	FileName string // Display name
	Length   int64  // Display length in bytes
}

// NewPlaybackTarget builds the target for host and port; all selects the
// playlist path.
func NewPlaybackTarget(host string, port int, all bool, name string, length int64) PlaybackTarget {
	path := "/"
	if all {
		path = "/.m3u"
	}
	return PlaybackTarget{Host: host, Port: port, Path: path, FileName: name, Length: length}
}

// URL returns the address a player should open.
func (t PlaybackTarget) URL() string {
	return "http://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port)) + t.Path
}

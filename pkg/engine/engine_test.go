package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerflix/pkg/api"
)

func TestPeerChoking(t *testing.T) {
	tests := []struct {
		flags string
		want  bool
	}{
		{"ETi-c", true},
		{"E-ic", true},
		{"T-i", false},
		{"", false},
		{"c", false},
	}
	for _, tt := range tests {
		t.Run(tt.flags, func(t *testing.T) {
			assert.Equal(t, tt.want, peerChoking(tt.flags))
		})
	}
}

func TestPieceTracker(t *testing.T) {
	var p pieceTracker

	_, ok := p.observe(3, false, true)
	assert.False(t, ok, "completion without a check is not a verification")

	_, ok = p.observe(3, true, false)
	assert.False(t, ok)
	kind, ok := p.observe(3, false, true)
	require.True(t, ok)
	assert.Equal(t, api.EventPieceVerified, kind)

	p.observe(4, true, false)
	kind, ok = p.observe(4, false, false)
	require.True(t, ok)
	assert.Equal(t, api.EventPieceInvalid, kind)

	_, ok = p.observe(4, false, false)
	assert.False(t, ok, "one result per check")
}

func kinds(events []api.Event) []api.EventKind {
	out := make([]api.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestSwarmTracker(t *testing.T) {
	var s swarmTracker

	events := s.update(map[string]bool{"1.1.1.1:1": false, "2.2.2.2:2": true})
	assert.Equal(t, []api.EventKind{api.EventPeerConnected, api.EventPeerConnected, api.EventPeerChoked}, kinds(events))
	assert.Equal(t, "1.1.1.1:1", events[0].Peer)

	events = s.update(map[string]bool{"1.1.1.1:1": true, "2.2.2.2:2": true})
	assert.Equal(t, []api.EventKind{api.EventPeerChoked}, kinds(events))

	// one dropped, one joined
	events = s.update(map[string]bool{"1.1.1.1:1": true, "3.3.3.3:3": false})
	assert.Equal(t, []api.EventKind{api.EventPeerConnected, api.EventHotswap}, kinds(events))

	// dropped without a replacement
	events = s.update(map[string]bool{"3.3.3.3:3": false})
	assert.Empty(t, events)
}

func TestRateMeter(t *testing.T) {
	var m rateMeter
	start := time.Unix(1000, 0)

	down, up := m.update(0, 0, start)
	assert.Zero(t, down)
	assert.Zero(t, up)

	down, up = m.update(2048, 512, start.Add(2*time.Second))
	assert.InDelta(t, 1024, down, 0.001)
	assert.InDelta(t, 256, up, 0.001)

	// inside the sample window the previous rate is kept
	down, _ = m.update(9999, 512, start.Add(2500*time.Millisecond))
	assert.InDelta(t, 1024, down, 0.001)
}

func TestEngineBeforeOpen(t *testing.T) {
	e := NewTorrentEngine(&api.Options{Index: -1, Path: "/data"}, zerolog.Nop())

	assert.False(t, e.HasMetadata())
	_, err := e.Files()
	assert.ErrorIs(t, err, api.ErrNoMetadata)
	assert.ErrorIs(t, e.SelectAll(), api.ErrNoMetadata)
	_, _, err = e.Stream(false)
	assert.ErrorIs(t, err, api.ErrNoMetadata)
	assert.Nil(t, e.Peers())
	assert.Equal(t, "", e.Stats().TorrentName)

	sub := e.Subscribe(api.EventReady)
	require.NoError(t, e.Stop())
	_, open := <-sub.C
	assert.False(t, open, "stop closes subscriptions")
}

func TestLoadBlocklist(t *testing.T) {
	_, err := loadBlocklist("/nonexistent/blocklist.p2p")
	assert.Error(t, err)
}

func TestRemovalPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "buffer")
	tests := []struct {
		name string
		want string
	}{
		{"Big Buck Bunny", filepath.Join(dir, "Big Buck Bunny")},
		{"movie.mkv", filepath.Join(dir, "movie.mkv")},
		{"..", ""},
		{"../x", ""},
		{"a/../../x", ""},
		{"", ""},
		{".", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, removalPath(dir, tt.name))
		})
	}
}

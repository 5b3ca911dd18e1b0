package dashboard

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerflix/pkg/api"
	"peerflix/pkg/subtitle"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string {
	return ansi.ReplaceAllString(s, "")
}

func peers(n int) []api.PeerStats {
	out := make([]api.PeerStats, n)
	for i := range out {
		out[i] = api.PeerStats{Address: fmt.Sprintf("10.0.0.%d:6881", i+1), Downloaded: 1024, DownloadSpeed: 512}
	}
	return out
}

func baseFrame() Frame {
	return Frame{
		Target:  api.NewPlaybackTarget("192.168.1.4", 8888, false, "Big.Buck.Bunny.1080p.mkv", 3<<30),
		Stats:   api.Stats{Path: "/tmp/peerflix-1", Downloaded: 2 << 20, ActivePeers: 3, TotalPeers: 5, QueuedPeers: 7},
		Elapsed: 42 * time.Second,
		Height:  100,
	}
}

func TestRowBudget(t *testing.T) {
	assert.Equal(t, 16, RowBudget(24, 8))
	assert.Equal(t, 0, RowBudget(5, 8))
	assert.Equal(t, 0, RowBudget(0, 0))
}

func TestPeerRows(t *testing.T) {
	tests := []struct {
		total, budget, rows, more int
	}{
		{0, 10, 0, 0},
		{10, 10, 10, 0},
		{11, 10, 9, 2},
		{5, 0, 0, 5},
		{5, 1, 0, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.budget), func(t *testing.T) {
			rows, more := PeerRows(tt.total, tt.budget)
			assert.Equal(t, tt.rows, rows)
			assert.Equal(t, tt.more, more)
		})
	}
}

func TestPeerRowsProperty(t *testing.T) {
	for height := 0; height < 30; height++ {
		for summary := 0; summary < 15; summary++ {
			for total := 0; total < 30; total++ {
				budget := RowBudget(height, summary)
				rows, more := PeerRows(total, budget)
				require.LessOrEqual(t, rows, max(0, height-summary))
				if more > 0 {
					require.Equal(t, total-rows, more)
				} else {
					require.Equal(t, total, rows)
				}
			}
		}
	}
}

func TestEllipsis(t *testing.T) {
	assert.Equal(t, "", Ellipsis(0))
	assert.Equal(t, "..", Ellipsis(2500*time.Millisecond))
	assert.Equal(t, "...", Ellipsis(7*time.Second))
	assert.Equal(t, "", Ellipsis(8*time.Second))
}

func TestRenderSummary(t *testing.T) {
	f := baseFrame()
	f.Verified, f.Invalid, f.Hotswaps = 12, 1, 3

	out := plain(Render(f))
	assert.Contains(t, out, "open vlc and enter http://192.168.1.4:8888/ as the network address")
	assert.Contains(t, out, "streaming Big.Buck.Bunny.1080p... (3.2 GB)")
	assert.Contains(t, out, "from 3/5 peers")
	assert.Contains(t, out, "path /tmp/peerflix-1")
	assert.Contains(t, out, "downloaded 2.1 MB and uploaded 0 B in 42s with 3 hotswaps")
	assert.Contains(t, out, "verified 12 pieces and received 1 invalid pieces")
	assert.Contains(t, out, "peer queue size is 7")
	assert.NotContains(t, out, "websearch-subtitles")
	assert.NotContains(t, out, "Airplay")
}

func TestRenderSubtitleStatus(t *testing.T) {
	f := baseFrame()
	f.SubtitleLang = "fr"
	f.SubtitleState = subtitle.Searching
	f.Elapsed = 2 * time.Second

	out := plain(Render(f))
	assert.Contains(t, out, "[websearch-subtitles] lang fr status SEARCHING..\n")
	assert.NotContains(t, out, "subtitle path")

	f.SubtitleState = subtitle.Found
	f.SubtitlePath = "/tmp/movie.fr.srt"
	out = plain(Render(f))
	assert.Contains(t, out, "status FOUND!\n")
	assert.Contains(t, out, "subtitle path /tmp/movie.fr.srt")
}

func TestRenderPeerTableOverflow(t *testing.T) {
	f := baseFrame()
	f.Peers = peers(20)
	summary := len(Summary(f))
	f.Height = summary + 5

	out := plain(Render(f))
	assert.Equal(t, 4, strings.Count(out, ":6881"))
	assert.Contains(t, out, "... and 16 more")

	f.Height = summary + 20
	out = plain(Render(f))
	assert.Equal(t, 20, strings.Count(out, ":6881"))
	assert.NotContains(t, out, "more")
}

func TestRenderTinyTerminal(t *testing.T) {
	f := baseFrame()
	f.Peers = peers(3)
	f.Height = 2

	out := plain(Render(f))
	assert.Equal(t, 0, strings.Count(out, ":6881"))
	assert.Contains(t, out, "... and 3 more")
}

func TestPeerLineChoked(t *testing.T) {
	line := plain(PeerLine(api.PeerStats{Address: "1.2.3.4:1", Downloaded: 2048, DownloadSpeed: 1000, Choked: true}))
	assert.True(t, strings.HasPrefix(line, "1.2.3.4:1"))
	assert.Contains(t, line, "2.0 kB")
	assert.Contains(t, line, "1.0 kB/s")
	assert.True(t, strings.HasSuffix(line, "choked"))
}

func TestMetadataWait(t *testing.T) {
	assert.Equal(t, "fetching torrent metadata from 4 peers\n", plain(MetadataWait(4)))
}

func TestRenderAirPlayAndNotice(t *testing.T) {
	f := baseFrame()
	f.AirPlay = true
	f.Notice = "autoplay skipped: vlc: player not found"

	out := plain(Render(f))
	assert.Contains(t, out, "Streaming to AppleTV using Airplay")
	assert.Contains(t, out, "autoplay skipped: vlc: player not found")
}

// =============================================================================
// pkg/dashboard/renderer.go - Terminal Status Dashboard
// =============================================================================
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"peerflix/pkg/api"
	"peerflix/pkg/subtitle"
)

var (
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	grey    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	bold    = lipgloss.NewStyle().Bold(true)
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// ellipsisPeriod is how many frames the searching animation cycles through.
const ellipsisPeriod = 4

// Frame is everything one redraw reads.
type Frame struct {
	Target   api.PlaybackTarget
	Stats    api.Stats
	Peers    []api.PeerStats
	Elapsed  time.Duration
	Verified int
	Invalid  int
	Hotswaps int

	SubtitleLang  string // Empty when no web search was requested
	SubtitleState subtitle.State
	SubtitlePath  string

	AirPlay bool
	Notice  string // One-line diagnostic, e.g. a skipped autoplay
	Height  int    // Terminal rows
}

// Bytes formats a byte count the way every line of the dashboard does.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Rate formats a per-second transfer rate.
func Rate(bps float64) string {
	if bps < 0 {
		bps = 0
	}
	return humanize.Bytes(uint64(bps)) + "/s"
}

// RowBudget is how many rows remain for the peer table under a summary of
// summaryLines on a terminal of height rows. Never negative.
func RowBudget(height, summaryLines int) int {
	return max(0, height-summaryLines)
}

// PeerRows splits total peers into printed rows and an overflow count. When
// everything fits no overflow line is needed; otherwise one row of the
// budget goes to the "... and N more" line.
func PeerRows(total, budget int) (rows, more int) {
	if total <= budget {
		return total, 0
	}
	rows = max(0, budget-1)
	return rows, total - rows
}

// Ellipsis animates a searching status: 0 to 3 dots cycling each second.
func Ellipsis(elapsed time.Duration) string {
	secs := int(elapsed / time.Second)
	return strings.Repeat(".", secs%ellipsisPeriod)
}

// MetadataWait is shown while a magnet link's metadata is being fetched.
func MetadataWait(peers int) string {
	return green.Render("fetching torrent metadata from") + " " +
		bold.Render(fmt.Sprint(peers)) + " " + green.Render("peers") + "\n"
}

// Summary renders every line above the peer table.
func Summary(f Frame) []string {
	var lines []string

	if f.SubtitleLang != "" {
		status := f.SubtitleState.String()
		if f.SubtitleState == subtitle.Searching {
			status += Ellipsis(f.Elapsed)
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s %s",
			yellow.Render("[websearch-subtitles]"), green.Render("lang"), bold.Render(f.SubtitleLang),
			green.Render("status"), bold.Render(status)))
		if f.SubtitlePath != "" {
			lines = append(lines, green.Render("subtitle path")+" "+bold.Render(f.SubtitlePath))
		} else {
			lines = append(lines, "")
		}
	}

	lines = append(lines, fmt.Sprintf("%s %s %s %s %s",
		green.Render("open"), bold.Render("vlc"), green.Render("and enter"),
		bold.Render(f.Target.URL()), green.Render("as the network address")))
	if f.AirPlay {
		lines = append(lines, green.Render("Streaming to")+" "+bold.Render("AppleTV")+" "+green.Render("using Airplay"))
	}
	if f.Notice != "" {
		lines = append(lines, red.Render(f.Notice))
	}
	lines = append(lines, "")

	info := yellow.Render("info")
	lines = append(lines,
		fmt.Sprintf("%s %s %s %s %s %s %s %s",
			info, green.Render("streaming"), bold.Render(truncate(f.Target.FileName, 20)+"... ("+Bytes(f.Target.Length)+")"),
			green.Render("-"), bold.Render(Rate(f.Stats.DownloadSpeed)), green.Render("from"),
			bold.Render(fmt.Sprintf("%d/%d", f.Stats.ActivePeers, f.Stats.TotalPeers)), green.Render("peers")),
		fmt.Sprintf("%s %s %s", info, green.Render("path"), cyan.Render(f.Stats.Path)),
		fmt.Sprintf("%s %s %s %s %s %s %s %s %s %s",
			info, green.Render("downloaded"), bold.Render(Bytes(f.Stats.Downloaded)),
			green.Render("and uploaded"), bold.Render(Bytes(f.Stats.Uploaded)),
			green.Render("in"), bold.Render(fmt.Sprintf("%ds", int(f.Elapsed/time.Second))),
			green.Render("with"), bold.Render(fmt.Sprint(f.Hotswaps)), green.Render("hotswaps")),
		fmt.Sprintf("%s %s %s %s %s %s",
			info, green.Render("verified"), bold.Render(fmt.Sprint(f.Verified)),
			green.Render("pieces and received"), bold.Render(fmt.Sprint(f.Invalid)), green.Render("invalid pieces")),
		fmt.Sprintf("%s %s %s", info, green.Render("peer queue size is"), bold.Render(fmt.Sprint(f.Stats.QueuedPeers))),
		"",
	)
	return lines
}

// PeerLine renders one row of the peer table.
func PeerLine(p api.PeerStats) string {
	tag := ""
	if p.Choked {
		tag = "choked"
	}
	return fmt.Sprintf("%s %s %s %s",
		magenta.Render(fmt.Sprintf("%-25s", p.Address)),
		fmt.Sprintf("%-10s", Bytes(p.Downloaded)),
		cyan.Render(fmt.Sprintf("%-10s", Rate(p.DownloadSpeed))),
		grey.Render(tag))
}

// Render builds a full frame.
func Render(f Frame) string {
	lines := Summary(f)
	rows, more := PeerRows(len(f.Peers), RowBudget(f.Height, len(lines)))

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	for _, p := range f.Peers[:rows] {
		sb.WriteString(PeerLine(p))
		sb.WriteByte('\n')
	}
	if more > 0 {
		fmt.Fprintf(&sb, "... and %d more\n", more)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

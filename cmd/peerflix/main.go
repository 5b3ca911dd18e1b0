// =============================================================================
// cmd/peerflix/main.go - CLI Application
// =============================================================================
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"peerflix/pkg/api"
	"peerflix/pkg/config"
	"peerflix/pkg/engine"
	"peerflix/pkg/logger"
	"peerflix/pkg/orchestrator"
	"peerflix/pkg/player"
	"peerflix/pkg/subtitle"
	"peerflix/pkg/utils"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	connections int
	port        int
	index       int
	list        bool
	subtitles   string
	webSubs     string
	quiet       bool
	vlc         bool
	airplay     bool
	mplayer     bool
	mpv         bool
	omx         bool
	jack        bool
	bufferPath  string
	blocklist   string
	noQuit      bool
	all         bool
	remove      bool
	hostname    string
	peers       []string
	peerPort    int
	notOnTop    bool
	showVersion bool
	showHelp    bool
	verbose     bool
)

const autoplayNotes = `* Autoplay can take several seconds to start since it needs to wait for the first piece
** OMX player is the default Raspbian video player
`

var rootCmd = &cobra.Command{
	Use:   "peerflix magnet-link-or-torrent [options]",
	Short: "Stream a torrent to a media player over HTTP",
	Long: `peerflix streams the video inside a torrent over HTTP while it downloads,
optionally fetching subtitles and starting a media player on the stream.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPeerflix,
}

// exitError ends the process with a specific status code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func init() {
	f := rootCmd.Flags()
	// Registered before cobra's default so -h stays free for --hostname
	f.BoolVar(&showHelp, "help", false, "show help")

	f.IntVarP(&connections, "connections", "c", defaultConnections(), "max connected peers")
	f.IntVarP(&port, "port", "p", 8888, "change the http port")
	f.IntVarP(&index, "index", "i", -1, "changed streamed file (index)")
	f.BoolVarP(&list, "list", "l", false, "list available files with corresponding index")
	f.StringVarP(&subtitles, "subtitles", "t", "", "load subtitles file")
	f.StringVarP(&webSubs, "websearch-subtitles", "w", "", "search subtitles on the web (IETF language code)")
	f.Lookup("websearch-subtitles").NoOptDefVal = "en"
	f.BoolVarP(&quiet, "quiet", "q", false, "be quiet")
	f.BoolVarP(&vlc, "vlc", "v", false, "autoplay in vlc*")
	f.BoolVarP(&airplay, "airplay", "s", false, "autoplay via AirPlay")
	f.BoolVarP(&mplayer, "mplayer", "m", false, "autoplay in mplayer*")
	f.BoolVarP(&mpv, "mpv", "k", false, "autoplay in mpv*")
	f.BoolVarP(&omx, "omx", "o", false, "autoplay in omx**")
	f.BoolVarP(&jack, "jack", "j", false, "autoplay in omx** using the audio jack")
	f.StringVarP(&bufferPath, "path", "f", "", "change buffer file path")
	f.StringVarP(&blocklist, "blocklist", "b", "", "use the specified blocklist")
	f.BoolVarP(&noQuit, "no-quit", "n", false, "do not quit peerflix on player exit")
	f.BoolVarP(&all, "all", "a", false, "select all files in the torrent")
	f.BoolVarP(&remove, "remove", "r", false, "remove files on exit")
	f.StringVarP(&hostname, "hostname", "h", "", "host name or IP to bind the server to")
	f.StringSliceVarP(&peers, "peer", "e", nil, "add peer by ip:port")
	f.IntVarP(&peerPort, "peer-port", "x", 0, "set peer listening port")
	f.BoolVarP(&notOnTop, "not-on-top", "d", false, "do not float video on top")
	f.BoolVar(&showVersion, "version", false, "prints current version")
	f.BoolVar(&verbose, "verbose", false, "log debug details")
}

func defaultConnections() int {
	if runtime.NumCPU() > 1 {
		return 100
	}
	return 30
}

func runPeerflix(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Fprintln(os.Stderr, version)
		return nil
	}

	if err := config.LoadRC(cmd.Flags(), config.DefaultFiles()...); err != nil {
		return &exitError{code: 1, err: err}
	}

	if cmd.Flags().Changed("websearch-subtitles") && len(webSubs) < 2 {
		fmt.Fprintln(os.Stderr, "usage: -w, --websearch-subtitles IETF_CODE")
		return nil
	}

	if len(args) == 0 {
		cmd.SetOut(os.Stderr)
		cmd.Usage()
		fmt.Fprint(os.Stderr, "\n"+autoplayNotes+"\n")
		return &exitError{code: 1}
	}

	opts := buildOptions(args[0])

	// Logs are held back while the dashboard owns the terminal
	var logOut io.Writer = os.Stderr
	var deferred *logger.Deferred
	if !opts.Quiet && !opts.List {
		deferred = logger.NewDeferred()
		logOut = deferred
	}
	log := logger.New(logOut, verbose)
	if deferred != nil {
		defer deferred.Flush(os.Stderr)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng := engine.NewTorrentEngine(opts, log)
	if err := eng.Open(ctx); err != nil {
		return &exitError{code: 1, err: err}
	}
	defer eng.Stop()

	launcher := player.NewLauncher(opts, log)
	fetcher := subtitle.NewWorkflow(opts.WebSubtitles, subtitle.ExecRunner{Log: log}, log)
	model := orchestrator.NewModel(opts, eng, launcher, fetcher, log, os.Stdout)

	err := orchestrator.New(model, os.Stdout).Run(ctx)
	if notice := model.ExitNotice(); notice != "" {
		fmt.Fprintln(os.Stderr, notice)
	}
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	return nil
}

// buildOptions snapshots the parsed flags.
func buildOptions(source string) *api.Options {
	return &api.Options{
		Source:       source,
		VLC:          vlc,
		OMX:          omx,
		Jack:         jack,
		MPlayer:      mplayer,
		MPV:          mpv,
		AirPlay:      airplay,
		OnTop:        !notOnTop,
		NoQuit:       noQuit,
		Subtitles:    subtitles,
		WebSubtitles: webSubs,
		All:          all,
		Index:        index,
		Hostname:     hostname,
		Port:         port,
		Connections:  connections,
		PeerPort:     peerPort,
		Peers:        peers,
		Blocklist:    blocklist,
		Path:         bufferPath,
		Remove:       remove,
		List:         list,
		Quiet:        quiet,
	}
}

// joinOptionalValues rewrites "-w fr" as "--websearch-subtitles=fr" so the
// optional-value flag takes a following language code. A following token
// that is a flag or the torrent itself is left alone.
func joinOptionalValues(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if (arg == "-w" || arg == "--websearch-subtitles") && i+1 < len(args) && isLanguage(args[i+1]) {
			out = append(out, "--websearch-subtitles="+args[i+1])
			i++
			continue
		}
		out = append(out, arg)
	}
	return out
}

func isLanguage(s string) bool {
	switch {
	case s == "", strings.HasPrefix(s, "-"):
		return false
	case strings.HasPrefix(s, "magnet:"), strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return false
	case strings.HasSuffix(strings.ToLower(s), ".torrent"):
		return false
	}
	return !utils.FileExists(s)
}

func main() {
	rootCmd.SetArgs(joinOptionalValues(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", exit.err)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

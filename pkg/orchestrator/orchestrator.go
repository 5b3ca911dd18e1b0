// =============================================================================
// pkg/orchestrator/orchestrator.go - Playback Orchestrator
// =============================================================================
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"peerflix/pkg/api"
	"peerflix/pkg/dashboard"
	"peerflix/pkg/player"
	"peerflix/pkg/subtitle"
	"peerflix/pkg/utils"
)

// TickInterval is the dashboard redraw period.
const TickInterval = 500 * time.Millisecond

// defaultHeight is used until the terminal reports its size.
const defaultHeight = 24

// Phase is the orchestrator's lifecycle state.
type Phase int

const (
	ResolvingMetadata Phase = iota
	Ready
	ServerListening
	Active
	ShuttingDown
)

var phaseNames = [...]string{"resolving-metadata", "ready", "server-listening", "active", "shutting-down"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Launcher starts the configured player.
type Launcher interface {
	Launch(ctx context.Context, url, subtitles string) (player.Process, error)
}

// SubtitleFetcher runs one web subtitle search.
type SubtitleFetcher interface {
	Fetch(ctx context.Context, video string) subtitle.Result
}

// Messages delivered to Update.
type (
	engineEventMsg struct{ ev api.Event }
	magnetPeerMsg  struct{}
	subClosedMsg   struct{}
	tickMsg        time.Time
	listenErrMsg   struct{ err error }
	subtitleMsg    subtitle.Result
	launchedMsg    struct {
		proc player.Process
		err  error
	}
	playerExitedMsg struct{ err error }
	interruptMsg    struct{}
	removedMsg      struct{ err error }
)

// Model drives one streaming run from metadata to exit. All state changes
// happen in Update on the program's event loop.
type Model struct {
	opts      *api.Options
	engine    api.Engine
	launcher  Launcher
	subtitles SubtitleFetcher
	log       zerolog.Logger
	out       io.Writer

	ctx    context.Context
	cancel context.CancelFunc

	// host resolves the advertised address when no hostname is configured
	host func() string
	now  func() time.Time

	phase     Phase
	readyDone bool
	events    *api.Subscription
	magnet    *api.Subscription
	target    api.PlaybackTarget
	started   time.Time
	height    int

	subState      subtitle.Tracker
	subPath       string
	playerPending bool
	notice        string

	verified int
	invalid  int
	hotswaps int

	removing   bool
	exitNotice string
	err        error
}

// NewModel creates the orchestrator and subscribes to engine events. The
// subscription is taken here, before anything runs, so no event between
// construction and Init is lost.
func NewModel(opts *api.Options, engine api.Engine, launcher Launcher, subs SubtitleFetcher, log zerolog.Logger, out io.Writer) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		opts:      opts,
		engine:    engine,
		launcher:  launcher,
		subtitles: subs,
		log:       log.With().Str("component", "orchestrator").Logger(),
		out:       out,
		ctx:       ctx,
		cancel:    cancel,
		host:      utils.NetworkAddress,
		now:       time.Now,
		height:    defaultHeight,
	}
	m.started = m.now()

	m.events = engine.Subscribe(api.EventReady, api.EventListening,
		api.EventPieceVerified, api.EventPieceInvalid, api.EventHotswap)

	if engine.HasMetadata() {
		m.phase = Ready
	} else {
		m.phase = ResolvingMetadata
		if m.showsMetadataWait() {
			m.magnet = engine.Subscribe(api.EventPeerConnected)
		}
	}
	return m
}

func (m *Model) showsMetadataWait() bool {
	return strings.HasPrefix(m.opts.Source, "magnet:") && !m.opts.Quiet && !m.opts.List
}

// Phase returns the current lifecycle state.
func (m *Model) Phase() Phase { return m.phase }

// Err returns the error that ended the run, if any.
func (m *Model) Err() error { return m.err }

// ExitNotice is printed after the dashboard is torn down.
func (m *Model) ExitNotice() string { return m.exitNotice }

// Target returns the playback target, zero before the server listens.
func (m *Model) Target() api.PlaybackTarget { return m.target }

// Init starts listening for engine events
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitEvent(m.events)}
	if m.magnet != nil {
		cmds = append(cmds, waitMagnet(m.magnet))
	}
	if m.phase == Ready {
		cmds = append(cmds, func() tea.Msg { return engineEventMsg{api.Event{Kind: api.EventReady}} })
	}
	return tea.Batch(cmds...)
}

// Update handles one message
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case engineEventMsg:
		cmd := m.handleEvent(msg.ev)
		return m, tea.Batch(cmd, waitEvent(m.events))

	case magnetPeerMsg:
		if m.magnet == nil {
			return m, nil
		}
		return m, waitMagnet(m.magnet)

	case listenErrMsg:
		return m, m.fail(fmt.Errorf("failed to start server: %w", msg.err))

	case subtitleMsg:
		return m, m.handleSubtitles(subtitle.Result(msg))

	case launchedMsg:
		return m, m.handleLaunched(msg)

	case playerExitedMsg:
		m.log.Info().AnErr("exit", msg.err).Msg("player exited")
		if m.opts.QuitWithPlayer() && m.phase != ShuttingDown {
			return m, m.quit()
		}
		return m, nil

	case tickMsg:
		if m.phase != Active {
			return m, nil
		}
		return m, tick()

	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case interruptMsg:
		return m, m.handleInterrupt()

	case removedMsg:
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("failed to remove downloaded data")
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleEvent(ev api.Event) tea.Cmd {
	switch ev.Kind {
	case api.EventReady:
		return m.onReady()
	case api.EventListening:
		return m.onListening(ev)
	case api.EventPieceVerified:
		m.verified++
	case api.EventPieceInvalid:
		m.invalid++
	case api.EventHotswap:
		m.hotswaps++
	}
	return nil
}

// onReady runs once, however many ready signals arrive.
func (m *Model) onReady() tea.Cmd {
	if m.readyDone || m.phase == ShuttingDown {
		return nil
	}
	m.readyDone = true
	m.phase = Ready
	if m.magnet != nil {
		m.magnet.Close()
		m.magnet = nil
	}

	if m.opts.List {
		return m.listFiles()
	}

	if m.opts.All {
		if err := m.engine.SelectAll(); err != nil {
			m.log.Error().Err(err).Msg("select all files")
		}
	}
	return m.listen()
}

func (m *Model) listFiles() tea.Cmd {
	files, err := m.engine.Files()
	if err != nil {
		return m.fail(err)
	}
	for _, f := range files {
		fmt.Fprintf(m.out, "%d : %s\n", f.Index, f.Name)
	}
	m.phase = ShuttingDown
	m.cancel()
	return tea.Quit
}

// listen binds the configured port, falling back to an ephemeral one when
// it is taken.
func (m *Model) listen() tea.Cmd {
	engine, host, port, log := m.engine, m.opts.Hostname, m.opts.Port, m.log
	return func() tea.Msg {
		err := engine.Listen(host, port)
		if isAddrInUse(err) {
			log.Warn().Int("port", port).Msg("port in use, using a random port")
			err = engine.Listen(host, 0)
		}
		if err != nil {
			return listenErrMsg{err}
		}
		return nil
	}
}

func (m *Model) onListening(ev api.Event) tea.Cmd {
	if m.phase != Ready {
		return nil
	}

	name, length, err := m.engine.Stream(m.opts.All)
	if err != nil {
		return m.fail(err)
	}
	host := m.opts.Hostname
	if host == "" {
		host = m.host()
	}
	m.target = api.NewPlaybackTarget(host, utils.PortOf(ev.Addr), m.opts.All, name, length)
	m.phase = ServerListening
	m.log.Info().Str("url", m.target.URL()).Msg("server is listening")

	return m.activate()
}

// activate starts, in order, the subtitle search, the player and the
// dashboard timer.
func (m *Model) activate() tea.Cmd {
	m.phase = Active
	var cmds []tea.Cmd

	if m.opts.SearchSubtitles() {
		m.subState.Advance(subtitle.Searching)
		fetcher, ctx, video := m.subtitles, m.ctx, m.target.FileName
		cmds = append(cmds, func() tea.Msg { return subtitleMsg(fetcher.Fetch(ctx, video)) })
	}

	if m.opts.SelectedPlayer() != api.PlayerNone {
		if m.subState.State() == subtitle.Searching {
			m.playerPending = true
		} else {
			cmds = append(cmds, m.launch(m.opts.Subtitles))
		}
	}

	if m.opts.Quiet {
		fmt.Fprintf(m.out, "server is listening on %s\n", m.target.URL())
	} else {
		cmds = append(cmds, tick())
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleSubtitles(res subtitle.Result) tea.Cmd {
	if err := m.subState.Advance(res.State); err != nil {
		m.log.Error().Err(err).Msg("subtitle state")
		return nil
	}
	switch res.State {
	case subtitle.Found:
		m.subPath = res.Path
	case subtitle.Error:
		return m.fail(fmt.Errorf("subtitles: %w", res.Err))
	}

	if m.playerPending {
		m.playerPending = false
		return m.launch(m.subPath)
	}
	return nil
}

func (m *Model) launch(subs string) tea.Cmd {
	launcher, ctx, url := m.launcher, m.ctx, m.target.URL()
	return func() tea.Msg {
		proc, err := launcher.Launch(ctx, url, subs)
		return launchedMsg{proc: proc, err: err}
	}
}

func (m *Model) handleLaunched(msg launchedMsg) tea.Cmd {
	if msg.err != nil {
		m.notice = "autoplay skipped: " + msg.err.Error()
		m.log.Warn().Err(msg.err).Msg("autoplay skipped")
		return nil
	}
	if msg.proc == nil {
		return nil
	}
	proc := msg.proc
	if !m.opts.QuitWithPlayer() {
		go proc.Wait()
		return nil
	}
	return func() tea.Msg { return playerExitedMsg{proc.Wait()} }
}

// fail ends the run with err.
func (m *Model) fail(err error) tea.Cmd {
	m.log.Error().Err(err).Msg("fatal")
	m.err = err
	return m.quit()
}

func (m *Model) quit() tea.Cmd {
	m.phase = ShuttingDown
	m.cancel()
	return tea.Quit
}

// View renders the current frame
func (m *Model) View() string {
	switch m.phase {
	case ResolvingMetadata:
		if m.showsMetadataWait() {
			return dashboard.MetadataWait(m.engine.Stats().TotalPeers)
		}
	case Active:
		if !m.opts.Quiet {
			return dashboard.Render(m.frame())
		}
	case ShuttingDown:
		if m.removing {
			return "removing downloaded data...\n"
		}
	}
	return ""
}

func (m *Model) frame() dashboard.Frame {
	f := dashboard.Frame{
		Target:   m.target,
		Stats:    m.engine.Stats(),
		Peers:    m.engine.Peers(),
		Elapsed:  m.now().Sub(m.started),
		Verified: m.verified,
		Invalid:  m.invalid,
		Hotswaps: m.hotswaps,
		AirPlay:  m.opts.SelectedPlayer() == api.PlayerAirPlay,
		Notice:   m.notice,
		Height:   m.height,
	}
	if m.opts.SearchSubtitles() {
		f.SubtitleLang = m.opts.WebSubtitles
		f.SubtitleState = m.subState.State()
		f.SubtitlePath = m.subPath
	}
	return f
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitEvent(sub *api.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.C
		if !ok {
			return subClosedMsg{}
		}
		return engineEventMsg{ev}
	}
}

func waitMagnet(sub *api.Subscription) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-sub.C; !ok {
			return subClosedMsg{}
		}
		return magnetPeerMsg{}
	}
}

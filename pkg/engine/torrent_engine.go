// =============================================================================
// pkg/engine/torrent_engine.go - Main Torrent Engine
// =============================================================================
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/iplist"
	"github.com/anacrolix/torrent/metainfo"
	"github.com/anacrolix/torrent/storage"
	"github.com/rs/zerolog"

	"peerflix/pkg/api"
	"peerflix/pkg/stream"
	"peerflix/pkg/utils"
)

const peerPollInterval = time.Second

// TorrentEngine implements api.Engine on top of anacrolix/torrent
type TorrentEngine struct {
	client    *torrent.Client
	torrent   *torrent.Torrent
	server    *stream.Server
	bus       *api.Bus
	opts      *api.Options
	log       zerolog.Logger
	dataDir   string
	ownsDir   bool
	startTime time.Time

	ready     atomic.Bool
	mu        sync.Mutex
	file      *torrent.File
	fileIndex int
	rate      rateMeter

	closed     chan struct{}
	closeOnce  sync.Once
	removeOnce sync.Once
}

// NewTorrentEngine creates a new torrent engine instance
func NewTorrentEngine(opts *api.Options, log zerolog.Logger) *TorrentEngine {
	return &TorrentEngine{
		opts:      opts,
		log:       log.With().Str("component", "engine").Logger(),
		bus:       api.NewBus(),
		server:    stream.NewServer(),
		fileIndex: -1,
		closed:    make(chan struct{}),
	}
}

// Open creates the client, adds the source and starts the event pumps
func (e *TorrentEngine) Open(ctx context.Context) error {
	e.startTime = time.Now()

	e.dataDir = e.opts.Path
	if e.dataDir == "" {
		dir, err := utils.CreateTempDir()
		if err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
		e.dataDir = dir
		e.ownsDir = true
	}

	// Create torrent client configuration
	cfg := torrent.NewDefaultClientConfig()
	cfg.DataDir = e.dataDir
	cfg.DisablePEX = false
	cfg.NoDHT = false
	cfg.DisableTrackers = false

	if e.opts.Connections > 0 {
		cfg.EstablishedConnsPerTorrent = e.opts.Connections
	}
	if e.opts.PeerPort > 0 {
		cfg.ListenPort = e.opts.PeerPort
	}
	if e.opts.Blocklist != "" {
		list, err := loadBlocklist(e.opts.Blocklist)
		if err != nil {
			return err
		}
		cfg.IPBlocklist = list
		e.log.Info().Int("ranges", list.NumRanges()).Msg("blocklist loaded")
	}

	client, err := torrent.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create torrent client: %w", err)
	}
	e.client = client

	t, err := e.addSource(ctx, e.opts.Source)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to add torrent: %w", err)
	}
	e.torrent = t

	for _, p := range e.opts.Peers {
		t.AddPeers([]torrent.PeerInfo{{Addr: peerAddr(p)}})
	}

	go e.watchInfo()
	go e.watchPieces()
	go e.watchPeers()
	return nil
}

// addSource supports magnet links, .torrent files and .torrent URLs
func (e *TorrentEngine) addSource(ctx context.Context, src string) (*torrent.Torrent, error) {
	switch {
	case strings.HasPrefix(src, "magnet:"):
		return e.client.AddMagnet(src)
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		mi, err := fetchMetainfo(ctx, src)
		if err != nil {
			return nil, err
		}
		return e.client.AddTorrent(mi)
	default:
		return e.client.AddTorrentFromFile(src)
	}
}

func fetchMetainfo(ctx context.Context, url string) (*metainfo.MetaInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	return metainfo.Load(resp.Body)
}

func loadBlocklist(path string) (*iplist.IPList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open blocklist: %w", err)
	}
	defer f.Close()
	list, err := iplist.NewFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse blocklist %s: %w", path, err)
	}
	return list, nil
}

// Subscribe registers for engine events
func (e *TorrentEngine) Subscribe(kinds ...api.EventKind) *api.Subscription {
	return e.bus.Subscribe(kinds...)
}

// HasMetadata reports whether the info dictionary is known and the streamed
// file has been selected. It turns true just before EventReady is published.
func (e *TorrentEngine) HasMetadata() bool {
	return e.ready.Load()
}

func (e *TorrentEngine) gotInfo() bool {
	return e.torrent != nil && e.torrent.Info() != nil
}

// Files lists the torrent's files
func (e *TorrentEngine) Files() ([]api.FileEntry, error) {
	if !e.gotInfo() {
		return nil, api.ErrNoMetadata
	}
	files := e.torrent.Files()
	entries := make([]api.FileEntry, len(files))
	for i, f := range files {
		entries[i] = api.FileEntry{Index: i, Name: f.DisplayPath(), Length: f.Length()}
	}
	return entries, nil
}

// SelectAll marks every file for download
func (e *TorrentEngine) SelectAll() error {
	if !e.gotInfo() {
		return api.ErrNoMetadata
	}
	e.torrent.DownloadAll()
	return nil
}

// Listen binds the HTTP server and announces the bound address
func (e *TorrentEngine) Listen(host string, port int) error {
	addr, err := e.server.Listen(host, port)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	e.log.Debug().Stringer("addr", addr).Msg("http server listening")
	e.bus.Publish(api.Event{Kind: api.EventListening, Addr: addr})
	return nil
}

// Stream describes what "/" serves
func (e *TorrentEngine) Stream(all bool) (string, int64, error) {
	if !e.gotInfo() {
		return "", 0, api.ErrNoMetadata
	}
	if all {
		return e.torrent.Name(), e.torrent.Length(), nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return "", 0, fmt.Errorf("no file selected")
	}
	return utils.DisplayName(e.file.DisplayPath()), e.file.Length(), nil
}

// Stats returns current engine statistics
func (e *TorrentEngine) Stats() api.Stats {
	if e.torrent == nil {
		return api.Stats{Path: e.dataDir}
	}

	stats := e.torrent.Stats()
	downloaded := stats.BytesReadData.Int64()
	uploaded := stats.BytesWrittenData.Int64()

	e.mu.Lock()
	down, up := e.rate.update(downloaded, uploaded, time.Now())
	e.mu.Unlock()

	active := 0
	for _, pc := range e.torrent.PeerConns() {
		if !peerChoking(pc.StatusFlags()) {
			active++
		}
	}

	s := api.Stats{
		TorrentName:   e.torrent.Name(),
		Path:          e.dataDir,
		Downloaded:    downloaded,
		Uploaded:      uploaded,
		DownloadSpeed: down,
		UploadSpeed:   up,
		ActivePeers:   active,
		TotalPeers:    stats.ActivePeers,
		QueuedPeers:   stats.PendingPeers,
		Uptime:        time.Since(e.startTime),
	}
	if e.gotInfo() {
		s.TotalSize = e.torrent.Length()
	}
	return s
}

// Peers returns a live view of connected peers
func (e *TorrentEngine) Peers() []api.PeerStats {
	if e.torrent == nil {
		return nil
	}
	conns := e.torrent.PeerConns()
	peers := make([]api.PeerStats, 0, len(conns))
	for _, pc := range conns {
		st := pc.Stats()
		peers = append(peers, api.PeerStats{
			Address:       pc.RemoteAddr.String(),
			Downloaded:    st.BytesReadData.Int64(),
			DownloadSpeed: st.DownloadRate,
			Choked:        peerChoking(pc.StatusFlags()),
		})
	}
	return peers
}

// Remove drops the torrent and deletes its data in the background
func (e *TorrentEngine) Remove(done func(error)) {
	e.removeOnce.Do(func() {
		go func() {
			target := e.removeTarget()
			e.Stop()
			var err error
			if target != "" {
				err = os.RemoveAll(target)
			}
			done(err)
		}()
	})
}

func (e *TorrentEngine) removeTarget() string {
	if e.ownsDir {
		return e.dataDir
	}
	if e.gotInfo() {
		return removalPath(e.dataDir, e.torrent.Name())
	}
	return ""
}

// removalPath resolves the torrent's directory under dataDir. The name comes
// from peers, so anything that does not land strictly inside dataDir yields
// "" and nothing is removed.
func removalPath(dataDir, name string) string {
	safe, err := storage.ToSafeFilePath(name)
	if err != nil {
		return ""
	}
	target := filepath.Join(dataDir, safe)
	rel, err := filepath.Rel(dataDir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return target
}

// Stop gracefully shuts down the engine
func (e *TorrentEngine) Stop() error {
	e.closeOnce.Do(func() {
		close(e.closed)
		e.server.Stop()
		if e.torrent != nil {
			e.torrent.Drop()
		}
		if e.client != nil {
			for _, err := range e.client.Close() {
				e.log.Debug().Err(err).Msg("client close")
			}
		}
		e.bus.Close()
	})
	return nil
}

// watchInfo selects the streamed file once metadata arrives
func (e *TorrentEngine) watchInfo() {
	select {
	case <-e.torrent.GotInfo():
	case <-e.closed:
		return
	}

	file, index, err := utils.SelectFile(e.torrent, e.opts.Index)
	if err != nil {
		e.log.Error().Err(err).Msg("select file")
	} else {
		e.mu.Lock()
		e.file = file
		e.fileIndex = index
		e.mu.Unlock()

		file.SetPriority(torrent.PiecePriorityNormal)
		e.prioritizeHead(file)
		e.log.Info().Str("file", file.DisplayPath()).Int64("length", file.Length()).Msg("selected file")
	}

	e.server.SetFiles(e.entries(), index)
	e.ready.Store(true)
	e.bus.Publish(api.Event{Kind: api.EventReady})
}

// prioritizeHead makes the first pieces of the file urgent so playback can
// start before the rest arrives
func (e *TorrentEngine) prioritizeHead(f *torrent.File) {
	begin, end := f.BeginPieceIndex(), f.EndPieceIndex()
	n := end - begin

	// Prioritize first 10 pieces or 5% of total pieces, whichever is smaller
	head := 10
	if n < 200 {
		head = max(n/20, 3)
	}
	for i := begin; i < begin+head && i < end; i++ {
		e.torrent.Piece(i).SetPriority(torrent.PiecePriorityNow)
	}
}

func (e *TorrentEngine) entries() []stream.Entry {
	files := e.torrent.Files()
	entries := make([]stream.Entry, len(files))
	for i, f := range files {
		entries[i] = stream.Entry{
			Name:   utils.DisplayName(f.DisplayPath()),
			Length: f.Length(),
			Open: func() io.ReadSeekCloser {
				r := f.NewReader()
				r.SetResponsive()
				return r
			},
		}
	}
	return entries
}

// watchPieces turns piece hash checks into verify/invalid events
func (e *TorrentEngine) watchPieces() {
	sub := e.torrent.SubscribePieceStateChanges()
	defer sub.Close()

	var tracker pieceTracker
	for {
		select {
		case change, ok := <-sub.Values:
			if !ok {
				return
			}
			if kind, ok := tracker.observe(change.Index, change.Checking, change.Complete); ok {
				e.bus.Publish(api.Event{Kind: kind, Piece: change.Index})
			}
		case <-e.closed:
			return
		}
	}
}

// watchPeers polls the connection set for connects, choke changes and
// replaced peers
func (e *TorrentEngine) watchPeers() {
	ticker := time.NewTicker(peerPollInterval)
	defer ticker.Stop()

	var swarm swarmTracker
	for {
		select {
		case <-ticker.C:
			conns := e.torrent.PeerConns()
			seen := make(map[string]bool, len(conns))
			for _, pc := range conns {
				seen[pc.RemoteAddr.String()] = peerChoking(pc.StatusFlags())
			}
			for _, ev := range swarm.update(seen) {
				e.bus.Publish(ev)
			}
		case <-e.closed:
			return
		}
	}
}

type peerAddr string

func (a peerAddr) String() string {
	return string(a)
}

// =============================================================================
// pkg/stream/http_server.go - HTTP Streaming Server
// =============================================================================
package stream

import (
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Entry is one servable file.
type Entry struct {
	Name   string
	Length int64
	Open   func() io.ReadSeekCloser
}

// Server handles HTTP streaming with Range request support. "/" serves the
// selected file, "/<index>" any file and "/.m3u" a playlist of all of them.
type Server struct {
	mu       sync.RWMutex
	files    []Entry
	selected int
	modTime  time.Time

	server   *http.Server
	listener net.Listener
}

// NewServer creates a new streaming server
func NewServer() *Server {
	return &Server{selected: -1, modTime: time.Now()}
}

// SetFiles sets the files to be streamed and which one "/" serves
func (s *Server) SetFiles(files []Entry, selected int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
	s.selected = selected
}

// Listen binds host:port and starts serving in the background. Port 0 picks
// an ephemeral port; the bound address is returned.
func (s *Server) Listen(host string, port int) (net.Addr, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	go srv.Serve(ln)
	return ln.Addr(), nil
}

// Addr returns the bound address, nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv != nil {
		return srv.Close()
	}
	return nil
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case path == "":
		s.serveIndex(w, r, -1)
	case path == ".m3u" || path == "playlist.m3u":
		s.servePlaylist(w, r)
	default:
		idx, err := strconv.Atoi(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		s.serveIndex(w, r, idx)
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request, idx int) {
	s.mu.RLock()
	if idx < 0 {
		idx = s.selected
	}
	var entry Entry
	ok := idx >= 0 && idx < len(s.files)
	if ok {
		entry = s.files[idx]
	}
	modTime := s.modTime
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "No file available", http.StatusServiceUnavailable)
		return
	}

	reader := entry.Open()
	if reader == nil {
		http.Error(w, "Could not open file", http.StatusInternalServerError)
		return
	}
	defer reader.Close()

	if ctype := mime.TypeByExtension(filepath.Ext(entry.Name)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	} else {
		w.Header().Set("Content-Type", contentType(entry.Name))
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	http.ServeContent(w, r, entry.Name, modTime, reader)
}

func (s *Server) servePlaylist(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	files := s.files
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/x-mpegurl; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	io.WriteString(w, Playlist(r.Host, files))
}

// Playlist renders an extended M3U listing every file under host.
func Playlist(host string, files []Entry) string {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	for i, f := range files {
		fmt.Fprintf(&sb, "#EXTINF:-1,%s\nhttp://%s/%d\n", f.Name, host, i)
	}
	return sb.String()
}

// contentType covers video containers missing from the system mime table.
func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

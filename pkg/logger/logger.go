// =============================================================================
// pkg/logger/logger.go - Structured Logging
// =============================================================================
package logger

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// New creates a console logger writing to w
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{
		Out:        zerolog.SyncWriter(w),
		TimeFormat: time.TimeOnly,
		NoColor:    true,
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// DeferredLimit is the default number of bytes a Deferred keeps.
const DeferredLimit = 1 << 20

// Deferred holds log output in memory while the dashboard owns the
// terminal. Only the newest lines up to the limit are kept. After Flush,
// writes go straight to the flushed writer.
type Deferred struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	out   io.Writer
	limit int
}

// NewDeferred creates an empty deferred writer
func NewDeferred() *Deferred {
	return NewDeferredLimit(DeferredLimit)
}

// NewDeferredLimit creates a deferred writer that keeps at most limit bytes
func NewDeferredLimit(limit int) *Deferred {
	return &Deferred{limit: limit}
}

func (d *Deferred) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.out != nil {
		return d.out.Write(p)
	}
	n, err := d.buf.Write(p)
	d.trim()
	return n, err
}

// trim drops whole lines from the front until the buffer fits the limit.
func (d *Deferred) trim() {
	excess := d.buf.Len() - d.limit
	if d.limit <= 0 || excess <= 0 {
		return
	}
	held := d.buf.Bytes()
	cut := len(held)
	if i := bytes.IndexByte(held[excess-1:], '\n'); i >= 0 {
		cut = excess + i
	}
	d.buf.Next(cut)
}

// Flush writes everything held so far to w and passes later writes through.
func (d *Deferred) Flush(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out = w
	_, err := d.buf.WriteTo(w)
	return err
}

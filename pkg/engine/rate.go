// =============================================================================
// pkg/engine/rate.go - Transfer Rate Sampling
// =============================================================================
package engine

import "time"

// minSampleInterval is the shortest window a new rate is computed over.
// Calls inside the window return the previous rate.
const minSampleInterval = time.Second

// rateMeter turns cumulative byte counters into per-second rates.
type rateMeter struct {
	lastRead    int64
	lastWritten int64
	lastTime    time.Time
	down        float64
	up          float64
}

func (m *rateMeter) update(read, written int64, now time.Time) (down, up float64) {
	// Initialize if first time
	if m.lastTime.IsZero() {
		m.lastRead, m.lastWritten, m.lastTime = read, written, now
		return 0, 0
	}

	elapsed := now.Sub(m.lastTime)
	if elapsed < minSampleInterval {
		return m.down, m.up
	}

	secs := elapsed.Seconds()
	m.down = max(float64(read-m.lastRead)/secs, 0)
	m.up = max(float64(written-m.lastWritten)/secs, 0)
	m.lastRead, m.lastWritten, m.lastTime = read, written, now
	return m.down, m.up
}

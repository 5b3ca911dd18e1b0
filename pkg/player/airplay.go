// =============================================================================
// pkg/player/airplay.go - AirPlay Receiver Casting
// =============================================================================
package player

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
)

const airplayService = "_airplay._tcp"

// AirPlay browses for receivers over mDNS and tells each one it finds to
// play the stream.
type AirPlay struct {
	client *http.Client
	log    zerolog.Logger
}

// NewAirPlay creates an AirPlay caster
func NewAirPlay(log zerolog.Logger) *AirPlay {
	return &AirPlay{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Cast starts browsing and returns. Discovery runs until ctx is done.
func (a *AirPlay) Cast(ctx context.Context, url string) error {
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return fmt.Errorf("failed to initialize resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go a.serve(ctx, entries, url)

	if err := resolver.Browse(ctx, airplayService, "local.", entries); err != nil {
		return fmt.Errorf("failed to browse: %w", err)
	}
	return nil
}

// serve plays url once on every distinct receiver announced on entries.
func (a *AirPlay) serve(ctx context.Context, entries <-chan *zeroconf.ServiceEntry, url string) {
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	defer wg.Wait()

	for entry := range entries {
		endpoint := deviceEndpoint(entry)
		if endpoint == "" || seen[endpoint] {
			continue
		}
		seen[endpoint] = true
		a.log.Info().Str("device", entry.Instance).Str("endpoint", endpoint).Msg("airplay device found")

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Play(ctx, endpoint, url, 0); err != nil {
				a.log.Error().Err(err).Str("device", entry.Instance).Msg("airplay play failed")
			}
		}()
	}
}

// Play asks the receiver at endpoint (host:port) to play url from position
// (0 to 1).
func (a *AirPlay) Play(ctx context.Context, endpoint, url string, position float64) error {
	body := fmt.Sprintf("Content-Location: %s\nStart-Position: %s\n",
		url, strconv.FormatFloat(position, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+endpoint+"/play", strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/parameters")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("receiver returned %s", resp.Status)
	}
	return nil
}

func deviceEndpoint(e *zeroconf.ServiceEntry) string {
	if e == nil || e.Port == 0 {
		return ""
	}
	host := strings.TrimSuffix(e.HostName, ".")
	switch {
	case len(e.AddrIPv4) > 0:
		host = e.AddrIPv4[0].String()
	case len(e.AddrIPv6) > 0:
		host = e.AddrIPv6[0].String()
	}
	if host == "" {
		return ""
	}
	return net.JoinHostPort(host, strconv.Itoa(e.Port))
}

// =============================================================================
// pkg/player/launcher.go - Player Launcher
// =============================================================================
package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	"peerflix/pkg/api"
)

// Process is a running player.
type Process interface {
	Wait() error
}

// Starter spawns a child process.
type Starter interface {
	Start(name string, args []string) (Process, error)
}

// ExecStarter starts real processes detached from our process group.
type ExecStarter struct{}

// Start runs name with args without waiting for it
func (ExecStarter) Start(name string, args []string) (Process, error) {
	cmd := exec.Command(name, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Caster plays a URL on network receivers.
type Caster interface {
	Cast(ctx context.Context, url string) error
}

// Launcher starts the one player backend selected in the options.
type Launcher struct {
	opts    *api.Options
	starter Starter
	lookups []Lookup
	caster  Caster
	log     zerolog.Logger
}

// NewLauncher creates a launcher using real processes and AirPlay discovery
func NewLauncher(opts *api.Options, log zerolog.Logger) *Launcher {
	log = log.With().Str("component", "player").Logger()
	return &Launcher{
		opts:    opts,
		starter: ExecStarter{},
		lookups: desktopLookups(os.Getenv("HOME")),
		caster:  NewAirPlay(log),
		log:     log,
	}
}

// NewLauncherWith creates a launcher with custom collaborators
func NewLauncherWith(opts *api.Options, starter Starter, lookups []Lookup, caster Caster, log zerolog.Logger) *Launcher {
	return &Launcher{opts: opts, starter: starter, lookups: lookups, caster: caster, log: log}
}

// Launch starts the selected player on url with an optional subtitle file.
// The returned Process is nil when nothing local was spawned.
func (l *Launcher) Launch(ctx context.Context, url, subtitles string) (Process, error) {
	onTop := l.opts.OnTop

	var name string
	var args []string
	switch l.opts.SelectedPlayer() {
	case api.PlayerNone:
		return nil, nil
	case api.PlayerAirPlay:
		if err := l.caster.Cast(ctx, url); err != nil {
			return nil, fmt.Errorf("airplay: %w", err)
		}
		return nil, nil
	case api.PlayerVLC:
		path, ok := FirstResolved(l.lookups)
		if !ok {
			return nil, fmt.Errorf("vlc: %w", ErrNotFound)
		}
		name, args = path, VLCArgs(url, onTop, subtitles)
	case api.PlayerOMX:
		name, args = OMXCommand, OMXArgs(url, l.opts.Jack, subtitles)
	case api.PlayerMPlayer:
		name, args = MPlayerCommand, MPlayerArgs(url, onTop, subtitles)
	case api.PlayerMPV:
		name, args = MPVCommand, MPVArgs(url, onTop, subtitles)
	}

	l.log.Info().Str("player", name).Strs("args", args).Msg("launching player")
	proc, err := l.starter.Start(name, args)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	return proc, nil
}

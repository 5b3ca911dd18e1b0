// =============================================================================
// pkg/subtitle/workflow.go - Web Subtitle Download
// =============================================================================
package subtitle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"peerflix/pkg/utils"
)

// ErrToolFailed wraps any failure of the external download tool.
var ErrToolFailed = errors.New("subtitle tool failed")

// Extension of the files the download tool writes.
const Extension = ".srt"

// ExpectedName is the file the tool writes for video in lang:
// <video basename>.<lang>.srt
func ExpectedName(video, lang string) string {
	base := filepath.Base(video)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "." + lang + Extension
}

// DefaultDestDir is where found subtitles are moved: /tmp when it exists,
// the system temp directory otherwise.
func DefaultDestDir() string {
	if utils.FileExists("/tmp") {
		return "/tmp"
	}
	return os.TempDir()
}

// Runner downloads subtitles for video in lang into dir.
type Runner interface {
	Run(ctx context.Context, lang, dir, video string) error
}

// ExecRunner runs subliminal as a child process.
type ExecRunner struct {
	Command string // Executable, "subliminal" when empty
	Log     zerolog.Logger
}

// Run executes `subliminal download -l <lang> -d <dir> -- <video>`. The child
// is killed when ctx is cancelled.
func (r ExecRunner) Run(ctx context.Context, lang, dir, video string) error {
	command := r.Command
	if command == "" {
		command = "subliminal"
	}
	args := []string{"download", "-l", lang, "-d", dir, "--", video}
	r.Log.Debug().Str("cmd", command).Strs("args", args).Msg("starting subtitle download")

	out, err := exec.CommandContext(ctx, command, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%w: %v: %s", ErrToolFailed, err, msg)
		}
		return fmt.Errorf("%w: %v", ErrToolFailed, err)
	}
	return nil
}

// Result is the outcome of one search.
type Result struct {
	State State  // Found, NotFound or Error
	Path  string // Final subtitle location when Found
	Err   error  // Cause when Error
}

// Workflow downloads subtitles into a scratch directory and relocates the
// expected file into DestDir.
type Workflow struct {
	Lang    string
	DestDir string
	runner  Runner
	log     zerolog.Logger
}

// NewWorkflow creates a workflow for lang
func NewWorkflow(lang string, runner Runner, log zerolog.Logger) *Workflow {
	return &Workflow{
		Lang:    lang,
		DestDir: DefaultDestDir(),
		runner:  runner,
		log:     log.With().Str("component", "subtitle").Logger(),
	}
}

// Fetch searches subtitles for video. It blocks until the tool exits.
func (w *Workflow) Fetch(ctx context.Context, video string) Result {
	dir, err := os.MkdirTemp("", "peerflix-subs-*")
	if err != nil {
		return Result{State: Error, Err: fmt.Errorf("create download dir: %w", err)}
	}
	defer os.RemoveAll(dir)

	if err := w.runner.Run(ctx, w.Lang, dir, video); err != nil {
		w.log.Error().Err(err).Str("video", video).Msg("subtitle download failed")
		return Result{State: Error, Err: err}
	}

	name := ExpectedName(video, w.Lang)
	src := filepath.Join(dir, name)
	if !utils.FileExists(src) {
		w.log.Info().Str("lang", w.Lang).Str("video", video).Msg("no subtitles found")
		return Result{State: NotFound}
	}

	dest := filepath.Join(w.DestDir, name)
	if err := utils.MoveFile(src, dest); err != nil {
		return Result{State: Error, Err: fmt.Errorf("move subtitles: %w", err)}
	}
	w.log.Info().Str("path", dest).Msg("subtitles found")
	return Result{State: Found, Path: dest}
}

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinOptionalValues(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "fr")
	if err := os.WriteFile(existing, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"short with lang", []string{"-w", "fr", "movie.torrent"}, []string{"--websearch-subtitles=fr", "movie.torrent"}},
		{"long with lang", []string{"movie.torrent", "--websearch-subtitles", "pt-BR", "-v"}, []string{"movie.torrent", "--websearch-subtitles=pt-BR", "-v"}},
		{"bare before flag", []string{"-w", "-v", "movie.torrent"}, []string{"-w", "-v", "movie.torrent"}},
		{"bare before torrent", []string{"-w", "movie.torrent"}, []string{"-w", "movie.torrent"}},
		{"bare before magnet", []string{"-w", "magnet:?xt=urn:btih:abc"}, []string{"-w", "magnet:?xt=urn:btih:abc"}},
		{"bare before url", []string{"-w", "https://x/y"}, []string{"-w", "https://x/y"}},
		{"bare before existing file", []string{"-w", existing}, []string{"-w", existing}},
		{"bare at end", []string{"movie.torrent", "-w"}, []string{"movie.torrent", "-w"}},
		{"already joined", []string{"-w=de"}, []string{"-w=de"}},
		{"after terminator", []string{"--", "-w", "fr"}, []string{"--", "-w", "fr"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinOptionalValues(tt.args))
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("no such file")
	err := error(&exitError{code: 1, err: cause})

	var exit *exitError
	assert.True(t, errors.As(err, &exit))
	assert.Equal(t, 1, exit.code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "exit status 1", (&exitError{code: 1}).Error())
}

func TestBuildOptions(t *testing.T) {
	vlc, notOnTop, webSubs, port = true, true, "fr", 9000
	t.Cleanup(func() { vlc, notOnTop, webSubs, port = false, false, "", 8888 })

	opts := buildOptions("movie.torrent")
	assert.Equal(t, "movie.torrent", opts.Source)
	assert.True(t, opts.VLC)
	assert.False(t, opts.OnTop)
	assert.Equal(t, "fr", opts.WebSubtitles)
	assert.Equal(t, 9000, opts.Port)
}

func TestHelpFlagLeavesHostnameShorthand(t *testing.T) {
	f := rootCmd.Flags()
	assert.Equal(t, "hostname", f.ShorthandLookup("h").Name)
	assert.Equal(t, "", f.Lookup("help").Shorthand)
	assert.Equal(t, "en", f.Lookup("websearch-subtitles").NoOptDefVal)
}

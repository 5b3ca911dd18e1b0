package player

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerflix/pkg/api"
)

const testURL = "http://10.0.0.2:8888/"

func TestCommandTemplates(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"vlc", VLCArgs(testURL, true, ""), []string{testURL, "-q", "--video-on-top", "--play-and-exit"}},
		{"vlc subs", VLCArgs(testURL, false, "/tmp/m.en.srt"), []string{testURL, "-q", "--play-and-exit", "--sub-file=/tmp/m.en.srt"}},
		{"omx hdmi", OMXArgs(testURL, false, ""), []string{"-r", "-o", "hdmi", testURL}},
		{"omx jack subs", OMXArgs(testURL, true, "/tmp/s.srt"), []string{"-r", "-o", "local", "--subtitles", "/tmp/s.srt", testURL}},
		{"mplayer", MPlayerArgs(testURL, true, ""), []string{"-ontop", "-really-quiet", "-noidx", "-loop", "0", testURL}},
		{"mplayer subs", MPlayerArgs(testURL, false, "/tmp/s.srt"), []string{"-really-quiet", "-noidx", "-loop", "0", "-sub", "/tmp/s.srt", testURL}},
		{"mpv", MPVArgs(testURL, true, ""), []string{"--ontop", "--really-quiet", "--loop=no", testURL}},
		{"mpv subs", MPVArgs(testURL, false, "/tmp/s.srt"), []string{"--really-quiet", "--loop=no", "--sub-file=/tmp/s.srt", testURL}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestOnTopAndSubtitleFlags(t *testing.T) {
	builders := map[string]func(string, bool, string) []string{
		"vlc":     VLCArgs,
		"mplayer": MPlayerArgs,
		"mpv":     MPVArgs,
	}
	onTopFlag := map[string]string{"vlc": "--video-on-top", "mplayer": "-ontop", "mpv": "--ontop"}
	const subs = "/tmp/x y.srt"

	for name, build := range builders {
		for _, onTop := range []bool{false, true} {
			for _, path := range []string{"", subs} {
				args := build(testURL, onTop, path)
				assert.Equal(t, onTop, slices.Contains(args, onTopFlag[name]), "%s onTop=%v", name, onTop)
				assert.Equal(t, path != "", hasSuffixArg(args, subs), "%s subs=%q", name, path)
				assert.Equal(t, path != "", hasSubtitleFlag(args), "%s subs=%q", name, path)
			}
		}
	}
}

func hasSuffixArg(args []string, s string) bool {
	return slices.ContainsFunc(args, func(a string) bool { return strings.HasSuffix(a, s) })
}

func hasSubtitleFlag(args []string) bool {
	return slices.ContainsFunc(args, func(a string) bool {
		return a == "-sub" || a == "--subtitles" || strings.HasPrefix(a, "--sub-file=")
	})
}

func TestFirstResolved(t *testing.T) {
	var calls []string
	lookup := func(name string, ok bool) Lookup {
		return func() (string, bool) {
			calls = append(calls, name)
			return name, ok
		}
	}

	path, ok := FirstResolved([]Lookup{lookup("a", false), lookup("b", true), lookup("c", true)})
	assert.True(t, ok)
	assert.Equal(t, "b", path)
	assert.Equal(t, []string{"a", "b"}, calls, "stops at the first hit")

	_, ok = FirstResolved([]Lookup{lookup("x", false)})
	assert.False(t, ok)
	_, ok = FirstResolved(nil)
	assert.False(t, ok)
}

func TestRegistryKeys(t *testing.T) {
	assert.Equal(t, []string{`Software\Wow6432Node\VideoLAN\VLC`, `Software\VideoLAN\VLC`}, RegistryKeys("amd64"))
	assert.Equal(t, []string{`Software\VideoLAN\VLC`, `Software\Wow6432Node\VideoLAN\VLC`}, RegistryKeys("386"))
}

func TestCandidatePaths(t *testing.T) {
	assert.Equal(t, []string{
		"vlc",
		"/Applications/VLC.app/Contents/MacOS/VLC",
		"/Users/me/Applications/VLC.app/Contents/MacOS/VLC",
	}, CandidatePaths("/Users/me"))
	assert.Len(t, CandidatePaths(""), 2)
}

type fakeProcess struct{}

func (fakeProcess) Wait() error { return nil }

type fakeStarter struct {
	name string
	args []string
	err  error
}

func (f *fakeStarter) Start(name string, args []string) (Process, error) {
	f.name, f.args = name, args
	if f.err != nil {
		return nil, f.err
	}
	return fakeProcess{}, nil
}

type fakeCaster struct{ url string }

func (f *fakeCaster) Cast(_ context.Context, url string) error {
	f.url = url
	return nil
}

func found(path string) []Lookup {
	return []Lookup{func() (string, bool) { return path, true }}
}

func TestLaunchSelectsBackend(t *testing.T) {
	tests := []struct {
		name     string
		opts     api.Options
		wantName string
		wantArgs []string
	}{
		{"vlc", api.Options{VLC: true, OnTop: true}, "/opt/vlc", VLCArgs(testURL, true, "/tmp/s.srt")},
		{"jack", api.Options{Jack: true}, OMXCommand, OMXArgs(testURL, true, "/tmp/s.srt")},
		{"mplayer", api.Options{MPlayer: true}, MPlayerCommand, MPlayerArgs(testURL, false, "/tmp/s.srt")},
		{"mpv", api.Options{MPV: true, OnTop: true}, MPVCommand, MPVArgs(testURL, true, "/tmp/s.srt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			starter := &fakeStarter{}
			l := NewLauncherWith(&tt.opts, starter, found("/opt/vlc"), &fakeCaster{}, zerolog.Nop())

			proc, err := l.Launch(context.Background(), testURL, "/tmp/s.srt")
			require.NoError(t, err)
			assert.NotNil(t, proc)
			assert.Equal(t, tt.wantName, starter.name)
			assert.Equal(t, tt.wantArgs, starter.args)
		})
	}
}

func TestLaunchVLCNotFound(t *testing.T) {
	starter := &fakeStarter{}
	l := NewLauncherWith(&api.Options{VLC: true}, starter, nil, &fakeCaster{}, zerolog.Nop())

	proc, err := l.Launch(context.Background(), testURL, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, proc)
	assert.Empty(t, starter.name, "nothing spawned")
}

func TestLaunchStartFailure(t *testing.T) {
	starter := &fakeStarter{err: errors.New("exec: not found")}
	l := NewLauncherWith(&api.Options{MPV: true}, starter, nil, &fakeCaster{}, zerolog.Nop())

	_, err := l.Launch(context.Background(), testURL, "")
	assert.Error(t, err)
}

func TestLaunchAirPlayAndNone(t *testing.T) {
	caster := &fakeCaster{}
	starter := &fakeStarter{}
	l := NewLauncherWith(&api.Options{AirPlay: true}, starter, nil, caster, zerolog.Nop())

	proc, err := l.Launch(context.Background(), testURL, "")
	require.NoError(t, err)
	assert.Nil(t, proc)
	assert.Equal(t, testURL, caster.url)

	l = NewLauncherWith(&api.Options{}, starter, nil, caster, zerolog.Nop())
	proc, err = l.Launch(context.Background(), testURL, "")
	assert.NoError(t, err)
	assert.Nil(t, proc)
	assert.Empty(t, starter.name)
}

func TestAirPlayPlay(t *testing.T) {
	var gotBody, gotType, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotType, gotPath = string(b), r.Header.Get("Content-Type"), r.URL.Path
	}))
	defer srv.Close()

	a := NewAirPlay(zerolog.Nop())
	endpoint := strings.TrimPrefix(srv.URL, "http://")
	require.NoError(t, a.Play(context.Background(), endpoint, testURL, 0))

	assert.Equal(t, "/play", gotPath)
	assert.Equal(t, "text/parameters", gotType)
	assert.Equal(t, "Content-Location: "+testURL+"\nStart-Position: 0\n", gotBody)
}

func TestAirPlayServeDeduplicates(t *testing.T) {
	hits := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
	}))
	defer srv.Close()

	addr := srv.Listener.Addr().(*net.TCPAddr)
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "Living Room"},
		AddrIPv4:      []net.IP{addr.IP},
		Port:          addr.Port,
	}

	entries := make(chan *zeroconf.ServiceEntry, 3)
	entries <- entry
	entries <- entry
	entries <- &zeroconf.ServiceEntry{}
	close(entries)

	NewAirPlay(zerolog.Nop()).serve(context.Background(), entries, testURL)
	assert.Len(t, hits, 1)
}

func TestDeviceEndpoint(t *testing.T) {
	assert.Equal(t, "", deviceEndpoint(nil))
	assert.Equal(t, "appletv.local:7000", deviceEndpoint(&zeroconf.ServiceEntry{HostName: "appletv.local.", Port: 7000}))
	assert.Equal(t, "[fe80::1]:7000", deviceEndpoint(&zeroconf.ServiceEntry{AddrIPv6: []net.IP{net.ParseIP("fe80::1")}, Port: 7000}))
}

// =============================================================================
// pkg/player/commands.go - Player Command Lines
// =============================================================================
package player

// Executables spawned without a discovery step.
const (
	OMXCommand     = "omxplayer"
	MPlayerCommand = "mplayer"
	MPVCommand     = "mpv"
)

// VLCArgs builds the VLC argument vector. The URL comes first.
func VLCArgs(url string, onTop bool, subtitles string) []string {
	args := []string{url, "-q"}
	if onTop {
		args = append(args, "--video-on-top")
	}
	args = append(args, "--play-and-exit")
	if subtitles != "" {
		args = append(args, "--sub-file="+subtitles)
	}
	return args
}

// OMXArgs builds the omxplayer argument vector. jack routes audio to the
// local jack instead of HDMI.
func OMXArgs(url string, jack bool, subtitles string) []string {
	output := "hdmi"
	if jack {
		output = "local"
	}
	args := []string{"-r", "-o", output}
	if subtitles != "" {
		args = append(args, "--subtitles", subtitles)
	}
	return append(args, url)
}

// MPlayerArgs builds the mplayer argument vector.
func MPlayerArgs(url string, onTop bool, subtitles string) []string {
	var args []string
	if onTop {
		args = append(args, "-ontop")
	}
	args = append(args, "-really-quiet", "-noidx", "-loop", "0")
	if subtitles != "" {
		args = append(args, "-sub", subtitles)
	}
	return append(args, url)
}

// MPVArgs builds the mpv argument vector.
func MPVArgs(url string, onTop bool, subtitles string) []string {
	var args []string
	if onTop {
		args = append(args, "--ontop")
	}
	args = append(args, "--really-quiet", "--loop=no")
	if subtitles != "" {
		args = append(args, "--sub-file="+subtitles)
	}
	return append(args, url)
}

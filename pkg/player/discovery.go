// =============================================================================
// pkg/player/discovery.go - Desktop Player Discovery
// =============================================================================
package player

import (
	"errors"
	"os/exec"
)

// ErrNotFound is returned when no desktop player install could be resolved.
var ErrNotFound = errors.New("player not found")

// Lookup is one strategy for locating an executable.
type Lookup func() (string, bool)

// FirstResolved tries lookups in order and returns the first hit.
func FirstResolved(lookups []Lookup) (string, bool) {
	for _, lookup := range lookups {
		if path, ok := lookup(); ok {
			return path, true
		}
	}
	return "", false
}

// Registry keys under HKLM holding the VLC install directory.
const (
	vlcKey      = `Software\VideoLAN\VLC`
	vlcKeyWow64 = `Software\Wow6432Node\VideoLAN\VLC`
)

// RegistryKeys returns the VLC keys in lookup order for a GOARCH value.
// 64-bit systems try the WOW64 key first.
func RegistryKeys(arch string) []string {
	switch arch {
	case "amd64", "arm64":
		return []string{vlcKeyWow64, vlcKey}
	default:
		return []string{vlcKey, vlcKeyWow64}
	}
}

const macVLC = "/Applications/VLC.app/Contents/MacOS/VLC"

// CandidatePaths returns where VLC is tried outside Windows: PATH, the system
// app bundle, then the user's app bundle.
func CandidatePaths(home string) []string {
	paths := []string{"vlc", macVLC}
	if home != "" {
		paths = append(paths, home+macVLC)
	}
	return paths
}

// pathLookup resolves name through PATH or, for absolute paths, checks it is
// executable.
func pathLookup(name string) Lookup {
	return func() (string, bool) {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", false
		}
		return path, true
	}
}

//go:build !windows

// =============================================================================
// pkg/player/registry_other.go - VLC Lookup on Unix
// =============================================================================
package player

// desktopLookups tries the conventional VLC locations in order.
func desktopLookups(home string) []Lookup {
	paths := CandidatePaths(home)
	lookups := make([]Lookup, len(paths))
	for i, p := range paths {
		lookups[i] = pathLookup(p)
	}
	return lookups
}

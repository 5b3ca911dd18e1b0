//go:build windows

// =============================================================================
// pkg/player/registry_windows.go - VLC Lookup on Windows
// =============================================================================
package player

import (
	"path/filepath"
	"runtime"

	"golang.org/x/sys/windows/registry"
)

// desktopLookups reads the VLC install directory from the registry.
func desktopLookups(string) []Lookup {
	keys := RegistryKeys(runtime.GOARCH)
	lookups := make([]Lookup, len(keys))
	for i, key := range keys {
		lookups[i] = registryLookup(key)
	}
	return lookups
}

func registryLookup(path string) Lookup {
	return func() (string, bool) {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
		if err != nil {
			return "", false
		}
		defer k.Close()

		dir, _, err := k.GetStringValue("InstallDir")
		if err != nil || dir == "" {
			return "", false
		}
		return filepath.Join(dir, "vlc"), true
	}
}

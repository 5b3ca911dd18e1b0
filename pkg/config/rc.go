// =============================================================================
// pkg/config/rc.go - rc File and Environment Defaults
// =============================================================================
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides, e.g. PEERFLIX_PORT=9000.
const EnvPrefix = "PEERFLIX_"

// RCName is the rc file looked up in the home and working directories.
const RCName = ".peerflixrc"

// DefaultFiles returns the rc files in increasing precedence.
func DefaultFiles() []string {
	var files []string
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, RCName))
	}
	return append(files, RCName)
}

// LoadRC applies defaults from rc files (KEY=value lines) and then from
// PEERFLIX_* environment variables to every flag not given on the command
// line. Later sources win; missing files are skipped.
func LoadRC(flags *pflag.FlagSet, files ...string) error {
	values := make(map[string]string)
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		rc, err := godotenv.Read(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range rc {
			values[flagName(k)] = v
		}
	}

	flags.VisitAll(func(f *pflag.Flag) {
		env := EnvPrefix + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(env); ok {
			values[f.Name] = v
		}
	})

	// "quit=false" is the rc spelling of --no-quit
	if v, ok := values["quit"]; ok {
		delete(values, "quit")
		if strings.EqualFold(v, "false") {
			values["no-quit"] = "true"
		}
	}

	for name, v := range values {
		f := flags.Lookup(name)
		if f == nil || f.Changed {
			continue
		}
		if err := flags.Set(name, v); err != nil {
			return fmt.Errorf("invalid value %q for %s: %w", v, name, err)
		}
	}
	return nil
}

func flagName(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", "-"))
}

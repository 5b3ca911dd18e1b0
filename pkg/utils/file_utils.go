// =============================================================================
// pkg/utils/file_utils.go - File Utilities
// =============================================================================
package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/anacrolix/torrent"
)

// VideoExtensions contains common video file extensions
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".3gp":  true,
	".ts":   true,
	".m2ts": true,
}

// IsVideoFile checks if a file is a video file based on extension
func IsVideoFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return VideoExtensions[ext]
}

// Sized is the part of a torrent file the selection helpers look at.
type Sized interface {
	DisplayPath() string
	Length() int64
}

// LargestFile returns the index of the largest video file, falling back to
// the largest file of any kind. It returns -1 for an empty list.
func LargestFile[F Sized](files []F) int {
	best, bestVideo := -1, -1
	for i, f := range files {
		if best < 0 || f.Length() > files[best].Length() {
			best = i
		}
		if IsVideoFile(f.DisplayPath()) && (bestVideo < 0 || f.Length() > files[bestVideo].Length()) {
			bestVideo = i
		}
	}
	if bestVideo >= 0 {
		return bestVideo
	}
	return best
}

// SelectFile picks the file to stream: index when it is in range, otherwise
// the largest video file.
func SelectFile(t *torrent.Torrent, index int) (*torrent.File, int, error) {
	files := t.Files()
	if len(files) == 0 {
		return nil, -1, fmt.Errorf("torrent has no files")
	}
	if index >= 0 {
		if index >= len(files) {
			return nil, -1, fmt.Errorf("file index %d out of range (0-%d)", index, len(files)-1)
		}
		return files[index], index, nil
	}
	i := LargestFile(files)
	return files[i], i, nil
}

// DisplayName strips directories and the braces some release names carry.
func DisplayName(path string) string {
	name := path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.NewReplacer("{", "", "}", "").Replace(name)
}

// CreateTempDir creates a temporary directory for downloads
func CreateTempDir() (string, error) {
	return os.MkdirTemp("", "peerflix-*")
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MoveFile renames src to dst, copying across filesystems when a rename is
// not possible.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}

// ABOUTME: Sound library lookup for remote play requests
// ABOUTME: Resolves bare file names inside the sounds directory and lists playable files
package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/towerofbabel/soundboard-go/pkg/audio/decode"
)

// ErrInvalidSound is returned for names that are empty, contain a path or
// have no registered decoder
var ErrInvalidSound = errors.New("invalid sound name")

// ResolveSound maps a sound name to a file inside dir. Names are bare
// file names; anything that could escape dir is rejected.
func ResolveSound(dir, name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidSound, name)
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q must not contain a path", ErrInvalidSound, name)
	}
	if !decode.Supported(name) {
		return "", fmt.Errorf("%w: %q has no decoder (supported: %s)",
			ErrInvalidSound, name, strings.Join(decode.Extensions(), ", "))
	}
	return filepath.Join(dir, name), nil
}

// ListSounds returns the playable file names in dir, sorted
func ListSounds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sounds directory: %w", err)
	}

	sounds := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !decode.Supported(entry.Name()) {
			continue
		}
		sounds = append(sounds, entry.Name())
	}
	sort.Strings(sounds)
	return sounds, nil
}

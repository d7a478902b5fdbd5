// ABOUTME: Decoder interface, registry and file loader
// ABOUTME: Maps file extensions to decoders and wraps every failure in DecodeError
package decode

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/towerofbabel/soundboard-go/pkg/audio"
)

// Decoder decodes a complete encoded stream into a sample buffer
type Decoder interface {
	Decode(r io.ReadSeeker) (*audio.SampleBuffer, error)
}

// DecoderFunc adapts a function to the Decoder interface
type DecoderFunc func(r io.ReadSeeker) (*audio.SampleBuffer, error)

// Decode calls f(r)
func (f DecoderFunc) Decode(r io.ReadSeeker) (*audio.SampleBuffer, error) {
	return f(r)
}

// Reason classifies why a file could not be loaded
type Reason string

const (
	ReasonNotFound    Reason = "not found"
	ReasonUnreadable  Reason = "unreadable"
	ReasonUnsupported Reason = "unsupported format"
	ReasonCorrupt     Reason = "corrupt"
)

// ErrDecode is matched by every *DecodeError
var ErrDecode = errors.New("decode error")

// DecodeError reports a file that could not be turned into a SampleBuffer
type DecodeError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to load %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("failed to load %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports ErrDecode for any DecodeError
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Decoder{}
)

func init() {
	Register(".wav", DecoderFunc(decodeWAV))
	Register(".mp3", DecoderFunc(decodeMP3))
	Register(".flac", DecoderFunc(decodeFLAC))
	Register(".opus", DecoderFunc(decodeOpus))
	Register(".ogg", DecoderFunc(decodeOpus))
}

// Register installs dec for files ending in ext (for example ".wav").
// A later registration for the same extension replaces the earlier one.
func Register(ext string, dec Decoder) {
	ext = normalizeExt(ext)

	registryMu.Lock()
	defer registryMu.Unlock()
	registry[ext] = dec
}

// Extensions returns the registered file extensions in sorted order
func Extensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether path has a registered extension
func Supported(path string) bool {
	return lookup(path) != nil
}

func lookup(path string) Decoder {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[normalizeExt(filepath.Ext(path))]
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Load reads and decodes the file at path
func Load(path string) (*audio.SampleBuffer, error) {
	dec := lookup(path)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &DecodeError{Path: path, Reason: ReasonNotFound, Err: err}
		}
		return nil, &DecodeError{Path: path, Reason: ReasonUnreadable, Err: err}
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.IsDir() {
		return nil, &DecodeError{Path: path, Reason: ReasonUnreadable, Err: fmt.Errorf("is a directory")}
	}

	if dec == nil {
		return nil, &DecodeError{
			Path:   path,
			Reason: ReasonUnsupported,
			Err:    fmt.Errorf("extension %q (supported: %s)", filepath.Ext(path), strings.Join(Extensions(), ", ")),
		}
	}

	buf, err := dec.Decode(f)
	if err != nil {
		reason := ReasonCorrupt
		if errors.Is(err, errUnsupported) {
			reason = ReasonUnsupported
		}
		return nil, &DecodeError{Path: path, Reason: reason, Err: err}
	}

	if err := buf.Validate(); err != nil {
		return nil, &DecodeError{Path: path, Reason: ReasonCorrupt, Err: err}
	}

	return buf, nil
}

// errUnsupported marks well-formed files using an encoding we do not decode
var errUnsupported = errors.New("unsupported encoding")

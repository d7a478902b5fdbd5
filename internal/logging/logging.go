// ABOUTME: zerolog setup for the soundboard binaries
// ABOUTME: Writes console or JSON logs to stdout and, optionally, a log file
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configure Setup
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
	File   string // empty: stdout only
	Stdout io.Writer
}

// Setup configures the global zerolog logger and returns it along with a
// closer for the log file
func Setup(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if opts.Format != "json" {
		stdout = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.Kitchen}
	}

	writers := []io.Writer{stdout}
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("error opening log file: %w", err)
		}
		// The file always gets JSON lines
		writers = append(writers, f)
		closer = f
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Logger = logger
	zerolog.SetGlobalLevel(level)

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ABOUTME: Entry point for the soundboard
// ABOUTME: Parses CLI flags, then plays a file, serves remote control or runs the board TUI
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/towerofbabel/soundboard-go/internal/config"
	"github.com/towerofbabel/soundboard-go/internal/control"
	"github.com/towerofbabel/soundboard-go/internal/logging"
	"github.com/towerofbabel/soundboard-go/internal/metrics"
	"github.com/towerofbabel/soundboard-go/internal/ui"
	"github.com/towerofbabel/soundboard-go/internal/version"
	"github.com/towerofbabel/soundboard-go/pkg/audio"
	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

var (
	configPath  = flag.String("config", "soundboard.yaml", "Config file path")
	play        = flag.String("play", "", "Sound file to play")
	devices     = flag.String("devices", "", "Comma-separated device ids, indices or names (default: config default_devices)")
	volume      = flag.Int("volume", 100, "Playback volume 0-100")
	backendName = flag.String("backend", "", "Output backend: "+strings.Join(output.Backends(), ", "))
	start       = flag.Duration("start", 0, "Start offset into the sound")
	end         = flag.Duration("end", 0, "End offset into the sound (0: play to the end)")
	exclusive   = flag.Bool("exclusive", false, "Stop other sessions before playing")
	listDevices = flag.Bool("list-devices", false, "List output devices and exit")
	testTone    = flag.Bool("test-tone", false, "Play a one second 440Hz tone on the devices")
	serve       = flag.Bool("serve", false, "Run the remote control server")
	tui         = flag.Bool("tui", false, "Run the interactive board")
	logFile     = flag.String("log-file", "", "Log file path (default: config logging.file)")
	logLevel    = flag.String("log-level", "", "Log level: trace, debug, info, warn, error")
	saveConfig  = flag.Bool("save-config", false, "Write the effective configuration to -config and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "soundboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if *saveConfig {
		if err := cfg.Save(*configPath); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", *configPath)
		return nil
	}

	// TUI mode logs only to the file
	var stdout io.Writer = os.Stdout
	if *tui {
		stdout = io.Discard
	}
	logger, logCloser, err := logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Stdout: stdout,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	logger.Info().
		Str("version", version.Version).
		Str("backend", cfg.Audio.Backend).
		Msg("Starting soundboard")

	backend, err := output.New(cfg.Audio.Backend, output.Options{
		BufferDuration: cfg.Audio.BufferDuration(),
		WAVDir:         cfg.Audio.WAVDir,
		WAVDevices:     cfg.Audio.WAVDevices,
		Logger:         &logger,
	})
	if err != nil {
		return err
	}
	defer backend.Close()

	if *listDevices {
		return printDevices(backend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observers := []soundboard.Observer{}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		observers = append(observers, m)
	}

	var hub *control.Hub
	if cfg.Control.Enabled {
		hub = control.NewHub(logger)
		observers = append(observers, hub)
	}

	board := &engineBoard{soundsDir: cfg.Playback.SoundsDir, devices: splitDevices(*devices), multiPlay: cfg.Playback.MultiPlay}
	var tuiProgram *tea.Program
	if *tui {
		sounds, err := control.ListSounds(cfg.Playback.SoundsDir)
		if err != nil {
			return err
		}
		tuiProgram = ui.Run(ui.NewModel(board, sounds, board.devices, cfg.Playback.Volume))
		observers = append(observers, ui.NewObserver(tuiProgram))
	}

	engine, err := soundboard.New(soundboard.Config{
		Backend:           backend,
		BlockFrames:       cfg.Audio.BlockFrames,
		DefaultDevices:    cfg.Playback.DefaultDevices,
		Resample:          cfg.Audio.Resample,
		MaxStreamChannels: cfg.Audio.MaxStreamChannels,
		Logger:            &logger,
		Observer:          soundboard.Observers(observers...),
	})
	if err != nil {
		return err
	}
	defer engine.Close()
	board.engine = engine

	switch {
	case *testTone:
		tone := audio.Tone(audio.DefaultToneFrequency, time.Second, 48000, 2, 0.5)
		session, err := engine.PlayBuffer(tone, board.devices, cfg.Playback.Gain())
		if err != nil {
			return err
		}
		return waitSession(ctx, engine, session, logger)

	case *play != "":
		session, err := engine.PlayWith(soundboard.PlayRequest{
			Path:      *play,
			Devices:   board.devices,
			Gain:      cfg.Playback.Gain(),
			Start:     *start,
			End:       *end,
			Exclusive: *exclusive || !cfg.Playback.MultiPlay,
		})
		if err != nil {
			return err
		}
		return waitSession(ctx, engine, session, logger)
	}

	if hub == nil && tuiProgram == nil {
		flag.Usage()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	if hub != nil {
		server, err := control.NewServer(engine, hub, control.Config{
			Address:       cfg.Control.Address,
			Port:          cfg.Control.Port,
			Name:          controlName(cfg),
			SoundsDir:     cfg.Playback.SoundsDir,
			DefaultVolume: cfg.Playback.Volume,
			MultiPlay:     cfg.Playback.MultiPlay,
			EnableMDNS:    cfg.Control.MDNS,
			MetricsPath:   metricsPath(cfg),
			Gatherer:      prometheus.DefaultGatherer,
			Metrics:       m,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return server.Start(gctx)
		})
	}

	if tuiProgram != nil {
		g.Go(func() error {
			go func() {
				<-gctx.Done()
				tuiProgram.Quit()
			}()
			if _, err := tuiProgram.Run(); err != nil {
				return fmt.Errorf("failed to run TUI: %w", err)
			}
			// Quitting the board ends the server too
			stop()
			return nil
		})
	}

	return g.Wait()
}

// applyFlags overrides config values with flags set on the command line
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Audio.Backend = *backendName
		case "volume":
			cfg.Playback.Volume = *volume
		case "log-file":
			cfg.Logging.File = *logFile
		case "log-level":
			cfg.Logging.Level = *logLevel
		case "serve":
			cfg.Control.Enabled = *serve
		}
	})
}

// waitSession blocks until session ends, stopping playback on interrupt
func waitSession(ctx context.Context, engine *soundboard.Engine, session *soundboard.Session, logger zerolog.Logger) error {
	select {
	case <-session.Done():
	case <-ctx.Done():
		logger.Info().Msg("Interrupted, stopping playback")
		engine.Stop()
	}

	state := session.Wait()
	for _, r := range session.Results() {
		event := logger.Info()
		if r.Err != nil {
			event = logger.Warn().Err(r.Err)
		}
		event.
			Str("device", r.DeviceID).
			Int("frames", r.FramesWritten).
			Bool("cancelled", r.Cancelled).
			Msg("Device finished")
	}

	logger.Info().
		Str("state", state.String()).
		Dur("duration", session.Duration()).
		Msg("Playback finished")

	if state == soundboard.StateFailed {
		return errors.New("playback failed on every device")
	}
	return nil
}

func printDevices(backend output.Backend) error {
	list, err := backend.Devices()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "INDEX\tID\tNAME\tCHANNELS\tRATE\tDEFAULT\n")
	for _, d := range list {
		def := ""
		if d.IsDefault {
			def = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", d.Index, d.ID, d.Name, d.MaxOutputChannels, d.DefaultSampleRate, def)
	}
	return w.Flush()
}

func splitDevices(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func controlName(cfg *config.Config) string {
	if cfg.Control.Name != "" {
		return cfg.Control.Name
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-soundboard", hostname)
}

func metricsPath(cfg *config.Config) string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	return cfg.Metrics.Path
}

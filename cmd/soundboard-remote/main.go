// ABOUTME: Entry point for the soundboard remote control
// ABOUTME: Finds a soundboard over mDNS or by address and sends one command
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/internal/client"
	"github.com/towerofbabel/soundboard-go/internal/discovery"
	"github.com/towerofbabel/soundboard-go/internal/logging"
	"github.com/towerofbabel/soundboard-go/internal/protocol"
)

var (
	serverAddr = flag.String("server", "", "Soundboard address host:port (skip mDNS)")
	name       = flag.String("name", "", "Remote friendly name (default: hostname-remote)")
	devices    = flag.String("devices", "", "Comma-separated devices (default: server default)")
	volume     = flag.Int("volume", -1, "Volume 0-100 (default: server volume)")
	startMs    = flag.Int("start-ms", 0, "Start offset in milliseconds")
	endMs      = flag.Int("end-ms", 0, "End offset in milliseconds")
	exclusive  = flag.Bool("exclusive", false, "Stop other sounds first")
	follow     = flag.Bool("follow", false, "After the command, print session events until interrupted")
	timeout    = flag.Duration("timeout", 10*time.Second, "Discovery and request timeout")
	logLevel   = flag.String("log-level", "warn", "Log level")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <play SOUND | stop [SESSION] | devices | sounds | watch>\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger, closer, err := logging.Setup(logging.Options{Level: *logLevel, Format: "console", Stdout: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "soundboard-remote: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "soundboard-remote: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger zerolog.Logger, args []string) error {
	addr, path, err := resolveServer(ctx, logger)
	if err != nil {
		return err
	}

	c := client.NewClient(client.Config{
		ServerAddr: addr,
		Path:       path,
		Name:       remoteName(),
		Logger:     &logger,
	})

	connectCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	if err := c.Connect(connectCtx); err != nil {
		return err
	}
	defer c.Close()

	reqCtx, cancelReq := context.WithTimeout(ctx, *timeout)
	defer cancelReq()

	watch := *follow
	switch args[0] {
	case "play":
		if len(args) < 2 {
			return fmt.Errorf("play needs a sound name")
		}
		req := protocol.Play{
			Sound:     args[1],
			Devices:   splitList(*devices),
			StartMs:   *startMs,
			EndMs:     *endMs,
			Exclusive: *exclusive,
			RequestID: fmt.Sprint(time.Now().UnixNano()),
		}
		if *volume >= 0 {
			req.Volume = volume
		}
		if err := c.Play(req); err != nil {
			return err
		}
		if !watch {
			return awaitPlay(reqCtx, c, req.RequestID)
		}

	case "stop":
		session := ""
		if len(args) > 1 {
			session = args[1]
		}
		if err := c.Stop(session); err != nil {
			return err
		}

	case "devices":
		list, err := c.ListDevices(reqCtx)
		if err != nil {
			return err
		}
		printDevices(list)

	case "sounds":
		sounds, err := c.ListSounds(reqCtx)
		if err != nil {
			return err
		}
		for _, s := range sounds {
			fmt.Println(s)
		}

	case "watch":
		watch = true

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	if watch {
		return printEvents(ctx, c)
	}
	return nil
}

// resolveServer returns the -server address or the first soundboard found over mDNS
func resolveServer(ctx context.Context, logger zerolog.Logger) (string, string, error) {
	if *serverAddr != "" {
		return *serverAddr, discovery.DefaultPath, nil
	}

	disc := discovery.NewManager(discovery.Config{Logger: &logger})
	disc.Browse()
	defer disc.Stop()

	select {
	case server := <-disc.Servers():
		logger.Info().Str("name", server.Name).Str("addr", server.Addr()).Msg("Discovered soundboard")
		return server.Addr(), server.Path, nil
	case <-time.After(*timeout):
		return "", "", fmt.Errorf("no soundboard found after %s", *timeout)
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// awaitPlay waits for the server to accept or reject request id
func awaitPlay(ctx context.Context, c *client.Client, id string) error {
	for {
		select {
		case st := <-c.States:
			if st.RequestID == id {
				fmt.Printf("%s %s on %s\n", st.SessionID, st.State, strings.Join(st.Devices, ", "))
				return nil
			}
		case perr := <-c.Errors:
			return fmt.Errorf("%s: %s", perr.Kind, perr.Message)
		case denied := <-c.Denied:
			if denied.RequestID == id || denied.RequestID == "" {
				return fmt.Errorf("rejected: %s", denied.Message)
			}
		case <-c.Done():
			return client.ErrNotConnected
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printEvents(ctx context.Context, c *client.Client) error {
	for {
		select {
		case st := <-c.States:
			fmt.Printf("%s  %-8s %-10s -> %-10s %s\n",
				time.Now().Format("15:04:05"), short(st.SessionID), st.Previous, st.State, st.Sound)
		case perr := <-c.Errors:
			fmt.Printf("%s  %-8s error on %s: %s (%s)\n",
				time.Now().Format("15:04:05"), short(perr.SessionID), perr.Device, perr.Message, perr.Kind)
		case denied := <-c.Denied:
			fmt.Printf("%s  rejected %s: %s\n", time.Now().Format("15:04:05"), denied.Request, denied.Message)
		case <-c.Done():
			return client.ErrNotConnected
		case <-ctx.Done():
			return nil
		}
	}
}

func printDevices(list protocol.Devices) {
	fmt.Printf("Backend: %s\n", list.Backend)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "INDEX\tID\tNAME\tCHANNELS\tRATE\tDEFAULT\n")
	for _, d := range list.Devices {
		def := ""
		if d.IsDefault {
			def = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\n", d.Index, d.ID, d.Name, d.MaxOutputChannels, d.DefaultSampleRate, def)
	}
	w.Flush()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func remoteName() string {
	if *name != "" {
		return *name
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-remote", hostname)
}

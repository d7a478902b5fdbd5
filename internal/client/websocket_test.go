// ABOUTME: Tests for the control WebSocket client
// ABOUTME: Connects to a real control server backed by the memory output backend
package client

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/internal/control"
	"github.com/towerofbabel/soundboard-go/internal/protocol"
	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{ServerAddr: "localhost:8928"})

	if c.config.Path != "/soundboard" {
		t.Errorf("expected default path /soundboard, got %s", c.config.Path)
	}
	if c.config.ClientID == "" {
		t.Error("expected a generated client id")
	}
	if c.IsConnected() {
		t.Error("expected new client to be disconnected")
	}
	if err := c.Play(protocol.Play{Sound: "a.wav"}); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

// startServer runs a control server over httptest with one sound in its library
func startServer(t *testing.T) (addr string, backend *output.Memory) {
	t.Helper()

	dir := t.TempDir()
	// A file that exists but cannot be decoded still shows up in listings
	if err := os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	hub := control.NewHub(logger)
	backend = output.NewMemory()
	engine, err := soundboard.New(soundboard.Config{Backend: backend, Logger: &logger, Observer: hub})
	if err != nil {
		t.Fatal(err)
	}

	server, err := control.NewServer(engine, hub, control.Config{
		SoundsDir:     dir,
		DefaultVolume: 100,
		MultiPlay:     true,
		Logger:        logger,
	})
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		engine.Close()
		ts.Close()
	})
	return strings.TrimPrefix(ts.URL, "http://"), backend
}

func connect(t *testing.T, addr string) *Client {
	t.Helper()

	logger := zerolog.Nop()
	c := NewClient(Config{ServerAddr: addr, Name: "test-remote", Logger: &logger})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestConnectAndList(t *testing.T) {
	addr, _ := startServer(t)
	c := connect(t, addr)

	if c.Server().ServerID == "" || c.Server().Version != protocol.Version {
		t.Errorf("unexpected server hello: %+v", c.Server())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	devices, err := c.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if devices.Backend != "memory" || len(devices.Devices) != 2 {
		t.Errorf("unexpected devices: %+v", devices)
	}

	sounds, err := c.ListSounds(ctx)
	if err != nil {
		t.Fatalf("ListSounds failed: %v", err)
	}
	if len(sounds) != 1 || sounds[0] != "broken.wav" {
		t.Errorf("expected [broken.wav], got %v", sounds)
	}
}

func TestPlayEvents(t *testing.T) {
	addr, _ := startServer(t)
	c := connect(t, addr)

	tests := []struct {
		name string
		play protocol.Play
		want func(t *testing.T, c *Client)
	}{
		{
			name: "undecodable file reports playback error",
			play: protocol.Play{Sound: "broken.wav", Devices: []string{"mem-0"}},
			want: func(t *testing.T, c *Client) {
				select {
				case perr := <-c.Errors:
					if perr.Kind != "decode" {
						t.Errorf("expected decode error, got %+v", perr)
					}
				case <-time.After(5 * time.Second):
					t.Fatal("no playback error received")
				}
			},
		},
		{
			name: "invalid name is denied",
			play: protocol.Play{Sound: "../x.wav", RequestID: "r1"},
			want: func(t *testing.T, c *Client) {
				select {
				case denied := <-c.Denied:
					if denied.RequestID != "r1" || denied.Request != protocol.TypePlay {
						t.Errorf("unexpected denial: %+v", denied)
					}
				case <-time.After(5 * time.Second):
					t.Fatal("no denial received")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Play(tt.play); err != nil {
				t.Fatalf("Play failed: %v", err)
			}
			tt.want(t, c)
		})
	}
}

func TestCloseEndsConnection(t *testing.T) {
	addr, _ := startServer(t)
	c := connect(t, addr)

	c.Close()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Close")
	}
	if err := c.Stop(""); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

// ABOUTME: Tests for the remote control server
// ABOUTME: Drives the websocket endpoint against a real engine on the memory backend
package control

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/towerofbabel/soundboard-go/internal/metrics"
	"github.com/towerofbabel/soundboard-go/internal/protocol"
	"github.com/towerofbabel/soundboard-go/internal/version"
	"github.com/towerofbabel/soundboard-go/pkg/audio/output"
	"github.com/towerofbabel/soundboard-go/pkg/soundboard"
)

type testEnv struct {
	server  *Server
	http    *httptest.Server
	backend *output.Memory
	engine  *soundboard.Engine
}

// writeBeep writes a mono 16-bit wav of constant value 8192 (0.25)
func writeBeep(t *testing.T, dir, name string, frames int) {
	t.Helper()

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to create wav: %v", err)
	}
	defer f.Close()

	data := make([]int, frames)
	for i := range data {
		data[i] = 8192
	}

	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("failed to write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close wav: %v", err)
	}
}

func newTestEnv(t *testing.T, multiPlay bool, devices ...output.MemoryDevice) *testEnv {
	t.Helper()

	dir := t.TempDir()
	writeBeep(t, dir, "beep.wav", 4410)
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not a sound"), 0o644); err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := NewHub(logger)

	backend := output.NewMemory(devices...)
	engine, err := soundboard.New(soundboard.Config{
		Backend:        backend,
		DefaultDevices: []string{"default"},
		Logger:         &logger,
		Observer:       soundboard.Observers(m, hub),
	})
	if err != nil {
		t.Fatalf("soundboard.New failed: %v", err)
	}

	server, err := NewServer(engine, hub, Config{
		Name:          "Test Board",
		SoundsDir:     dir,
		DefaultVolume: 100,
		MultiPlay:     multiPlay,
		MetricsPath:   "/metrics",
		Gatherer:      reg,
		Metrics:       m,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		engine.Close()
		ts.Close()
	})

	return &testEnv{server: server, http: ts, backend: backend, engine: engine}
}

func (e *testEnv) dial(t *testing.T, clientID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.http.URL, "http") + Path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	send(t, conn, protocol.TypeClientHello, protocol.ClientHello{ClientID: clientID, Name: "tester", Version: protocol.Version})
	env := read(t, conn)
	if env.Type != protocol.TypeServerHello {
		t.Fatalf("expected server/hello, got %s", env.Type)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	if err := conn.WriteJSON(protocol.Message{Type: msgType, Payload: payload}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env protocol.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return env
}

// readUntil reads messages until match returns true for one of them
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, match func(protocol.Envelope) bool) protocol.Envelope {
	t.Helper()
	for i := 0; i < 50; i++ {
		env := read(t, conn)
		if env.Type == msgType && (match == nil || match(env)) {
			return env
		}
	}
	t.Fatalf("no %s message matched", msgType)
	return protocol.Envelope{}
}

func stateIs(t *testing.T, want string) func(protocol.Envelope) bool {
	return func(env protocol.Envelope) bool {
		var st protocol.SessionState
		if err := env.Decode(&st); err != nil {
			t.Fatal(err)
		}
		return st.State == want
	}
}

func TestHandshake(t *testing.T) {
	env := newTestEnv(t, true)
	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + Path

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	send(t, conn, protocol.TypeClientHello, protocol.ClientHello{ClientID: "abc", Name: "desk"})
	hello := read(t, conn)
	if hello.Type != protocol.TypeServerHello {
		t.Fatalf("expected server/hello, got %s", hello.Type)
	}

	var sh protocol.ServerHello
	if err := hello.Decode(&sh); err != nil {
		t.Fatal(err)
	}
	if sh.Name != "Test Board" || sh.Version != protocol.Version || sh.ServerID == "" {
		t.Errorf("unexpected server hello: %+v", sh)
	}
	if sh.Product != version.Product || sh.Software != version.Version {
		t.Errorf("expected %s, got %s %s", version.String(), sh.Product, sh.Software)
	}
}

func TestHandshakeRejections(t *testing.T) {
	tests := []struct {
		name  string
		first protocol.Message
	}{
		{name: "missing client id", first: protocol.Message{Type: protocol.TypeClientHello, Payload: protocol.ClientHello{Name: "x"}}},
		{name: "wrong first message", first: protocol.Message{Type: protocol.TypeListSounds}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			url := "ws" + strings.TrimPrefix(env.http.URL, "http") + Path

			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()

			if err := conn.WriteJSON(tt.first); err != nil {
				t.Fatal(err)
			}
			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			if _, _, err := conn.ReadMessage(); err == nil {
				t.Error("expected connection to be closed")
			}
		})
	}
}

func TestDuplicateClientRejected(t *testing.T) {
	env := newTestEnv(t, true)
	env.dial(t, "same")

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + Path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	send(t, conn, protocol.TypeClientHello, protocol.ClientHello{ClientID: "same", Name: "dup"})
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected duplicate connection to be closed")
	}
}

func TestRemotePlay(t *testing.T) {
	env := newTestEnv(t, true)
	conn := env.dial(t, "player")

	volume := 50
	send(t, conn, protocol.TypePlay, protocol.Play{
		Sound:     "beep.wav",
		Devices:   []string{"mem-0", "mem-1"},
		Volume:    &volume,
		RequestID: "req-1",
	})

	ack := readUntil(t, conn, protocol.TypeSessionState, func(e protocol.Envelope) bool {
		var st protocol.SessionState
		e.Decode(&st)
		return st.RequestID == "req-1"
	})
	var st protocol.SessionState
	if err := ack.Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Sound != "beep.wav" || len(st.Devices) != 2 {
		t.Errorf("unexpected ack: %+v", st)
	}

	session, ok := env.engine.Session(st.SessionID)
	if ok {
		session.Wait()
	}

	for _, id := range []string{"mem-0", "mem-1"} {
		recs := env.backend.Recordings(id)
		if len(recs) != 1 {
			t.Fatalf("%s: expected 1 recording, got %d", id, len(recs))
		}
		if recs[0].Frames() != 4410 {
			t.Errorf("%s: expected 4410 frames, got %d", id, recs[0].Frames())
		}
		if got := recs[0].Samples[0]; math.Abs(float64(got)-0.125) > 1e-3 {
			t.Errorf("%s: expected sample 0.125, got %v", id, got)
		}
	}
}

func TestRemotePlayBroadcastsCompletion(t *testing.T) {
	env := newTestEnv(t, true)
	player := env.dial(t, "player")
	watcher := env.dial(t, "watcher")

	send(t, player, protocol.TypePlay, protocol.Play{Sound: "beep.wav"})

	for _, conn := range []*websocket.Conn{player, watcher} {
		readUntil(t, conn, protocol.TypeSessionState, stateIs(t, "completed"))
	}
}

func TestPlayRejections(t *testing.T) {
	loud := 150

	tests := []struct {
		name     string
		play     protocol.Play
		wantType string
		contains string
	}{
		{name: "path traversal", play: protocol.Play{Sound: "../beep.wav"}, wantType: protocol.TypeError, contains: "must not contain a path"},
		{name: "unsupported extension", play: protocol.Play{Sound: "readme.txt"}, wantType: protocol.TypeError, contains: "no decoder"},
		{name: "empty name", play: protocol.Play{}, wantType: protocol.TypeError, contains: "invalid sound"},
		{name: "volume out of range", play: protocol.Play{Sound: "beep.wav", Volume: &loud}, wantType: protocol.TypeError, contains: "volume"},
		{name: "missing file", play: protocol.Play{Sound: "nope.wav"}, wantType: protocol.TypePlaybackError, contains: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			conn := env.dial(t, "c")

			send(t, conn, protocol.TypePlay, tt.play)
			got := readUntil(t, conn, tt.wantType, nil)
			if !strings.Contains(string(got.Payload), tt.contains) {
				t.Errorf("expected payload containing %q, got %s", tt.contains, got.Payload)
			}
			if n := len(env.engine.Sessions()); n != 0 {
				t.Errorf("expected no live sessions, got %d", n)
			}
		})
	}
}

func TestStopAll(t *testing.T) {
	env := newTestEnv(t, true, output.MemoryDevice{
		Device:     output.Device{Name: "Slow", IsDefault: true},
		BlockDelay: 200 * time.Millisecond,
	})
	conn := env.dial(t, "c")

	send(t, conn, protocol.TypePlay, protocol.Play{Sound: "beep.wav"})
	readUntil(t, conn, protocol.TypeSessionState, stateIs(t, "streaming"))

	send(t, conn, protocol.TypeStop, protocol.Stop{})
	readUntil(t, conn, protocol.TypeSessionState, stateIs(t, "cancelled"))
}

func TestStopUnknownSession(t *testing.T) {
	env := newTestEnv(t, true)
	conn := env.dial(t, "c")

	send(t, conn, protocol.TypeStop, protocol.Stop{SessionID: "nope"})
	got := readUntil(t, conn, protocol.TypeError, nil)
	if !strings.Contains(string(got.Payload), "no live session") {
		t.Errorf("unexpected error payload: %s", got.Payload)
	}
}

func TestExclusiveWhenMultiPlayDisabled(t *testing.T) {
	env := newTestEnv(t, false, output.MemoryDevice{
		Device:     output.Device{Name: "Slow", IsDefault: true},
		BlockDelay: 200 * time.Millisecond,
	})
	conn := env.dial(t, "c")

	send(t, conn, protocol.TypePlay, protocol.Play{Sound: "beep.wav", RequestID: "first"})
	readUntil(t, conn, protocol.TypeSessionState, stateIs(t, "streaming"))

	send(t, conn, protocol.TypePlay, protocol.Play{Sound: "beep.wav", RequestID: "second"})
	readUntil(t, conn, protocol.TypeSessionState, stateIs(t, "cancelled"))

	if n := len(env.engine.Sessions()); n > 1 {
		t.Errorf("expected at most one live session, got %d", n)
	}
}

func TestListDevicesAndSounds(t *testing.T) {
	env := newTestEnv(t, true)
	conn := env.dial(t, "c")

	send(t, conn, protocol.TypeListDevices, nil)
	var devices protocol.Devices
	if err := readUntil(t, conn, protocol.TypeDevices, nil).Decode(&devices); err != nil {
		t.Fatal(err)
	}
	if devices.Backend != "memory" || len(devices.Devices) != 2 {
		t.Errorf("unexpected devices: %+v", devices)
	}
	if devices.Devices[0].ID != "mem-0" || !devices.Devices[0].IsDefault {
		t.Errorf("unexpected first device: %+v", devices.Devices[0])
	}

	send(t, conn, protocol.TypeListSounds, nil)
	var sounds protocol.Sounds
	if err := readUntil(t, conn, protocol.TypeSounds, nil).Decode(&sounds); err != nil {
		t.Fatal(err)
	}
	if len(sounds.Sounds) != 1 || sounds.Sounds[0] != "beep.wav" {
		t.Errorf("expected [beep.wav], got %v", sounds.Sounds)
	}
}

func TestUnknownMessageType(t *testing.T) {
	env := newTestEnv(t, true)
	conn := env.dial(t, "c")

	send(t, conn, "sound/rewind", nil)
	got := readUntil(t, conn, protocol.TypeError, nil)
	if !strings.Contains(string(got.Payload), "unknown message type") {
		t.Errorf("unexpected error payload: %s", got.Payload)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, true)
	env.dial(t, "c")

	resp, err := http.Get(env.http.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var health map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health["status"] != "ok" || health["backend"] != "memory" {
		t.Errorf("unexpected health: %v", health)
	}
	if health["clients"] != float64(1) {
		t.Errorf("expected 1 client, got %v", health["clients"])
	}

	resp, err = http.Get(env.http.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "soundboard_control_clients 1") {
		t.Errorf("expected control client gauge in metrics output:\n%s", body)
	}
}

func TestResolveSound(t *testing.T) {
	tests := []struct {
		name    string
		sound   string
		want    string
		wantErr bool
	}{
		{name: "bare wav", sound: "airhorn.wav", want: filepath.Join("sounds", "airhorn.wav")},
		{name: "uppercase extension", sound: "Clap.MP3", want: filepath.Join("sounds", "Clap.MP3")},
		{name: "parent", sound: "..", wantErr: true},
		{name: "nested", sound: "sub/a.wav", wantErr: true},
		{name: "windows separator", sound: `sub\a.wav`, wantErr: true},
		{name: "absolute", sound: "/etc/a.wav", wantErr: true},
		{name: "no extension", sound: "airhorn", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSound("sounds", tt.sound)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestListSoundsMissingDir(t *testing.T) {
	sounds, err := ListSounds(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sounds) != 0 {
		t.Errorf("expected no sounds, got %v", sounds)
	}
}

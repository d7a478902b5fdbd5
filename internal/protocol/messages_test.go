// ABOUTME: Tests for control protocol messages
// ABOUTME: Verifies envelope decoding and optional payload fields
package protocol

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(t *testing.T, p Play)
	}{
		{
			name: "full play request",
			raw:  `{"type":"sound/play","payload":{"sound":"airhorn.wav","devices":["0","Cable"],"volume":40,"start_ms":250,"exclusive":true}}`,
			check: func(t *testing.T, p Play) {
				if p.Sound != "airhorn.wav" || len(p.Devices) != 2 || !p.Exclusive || p.StartMs != 250 {
					t.Errorf("unexpected payload: %+v", p)
				}
				if p.Volume == nil || *p.Volume != 40 {
					t.Errorf("expected volume 40, got %v", p.Volume)
				}
			},
		},
		{
			name: "volume omitted",
			raw:  `{"type":"sound/play","payload":{"sound":"a.mp3"}}`,
			check: func(t *testing.T, p Play) {
				if p.Volume != nil {
					t.Errorf("expected nil volume, got %d", *p.Volume)
				}
			},
		},
		{
			name:  "null payload",
			raw:   `{"type":"sound/play","payload":null}`,
			check: func(t *testing.T, p Play) {},
		},
		{
			name:    "payload of wrong shape",
			raw:     `{"type":"sound/play","payload":[1,2]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env Envelope
			if err := json.Unmarshal([]byte(tt.raw), &env); err != nil {
				t.Fatalf("failed to unmarshal envelope: %v", err)
			}
			if env.Type != TypePlay {
				t.Errorf("expected type %s, got %s", TypePlay, env.Type)
			}

			var p Play
			err := env.Decode(&p)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestMessageOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Message{Type: TypeStop, Payload: Stop{}})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"type":"sound/stop","payload":{}}` {
		t.Errorf("unexpected encoding: %s", data)
	}
}

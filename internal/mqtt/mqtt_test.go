package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/nexus-sensor/internal/ook"
)

func sampleReading() ook.Reading {
	return ook.Reading{
		Fields: ook.Fields{
			ID:                0xAA,
			BatteryOK:         true,
			Channel:           1,
			TemperatureTenths: 123,
			Humidity:          91,
		},
		Time: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	payload, err := FormatPayload(sampleReading())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"time":"2026-02-02 22:18:12 UTC","model":"Nexus-TH","id":170,"channel":2,"battery_ok":1,"temperature_C":12.3,"humidity":91}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadTemperatures(t *testing.T) {
	tests := []struct {
		tenths int16
		want   string
	}{
		{0, "0.0"},
		{5, "0.5"},
		{-5, "-0.5"},
		{-123, "-12.3"},
		{200, "20.0"},
		{2048, "204.8"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := sampleReading()
			r.TemperatureTenths = tt.tenths

			var parsed map[string]json.RawMessage
			payload, err := FormatPayload(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if got := string(parsed["temperature_C"]); got != tt.want {
				t.Errorf("temperature_C: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewPayloadFields(t *testing.T) {
	r := sampleReading()
	r.BatteryOK = false
	r.Channel = 0
	r.Time = time.Date(2026, 2, 2, 23, 18, 12, 0, time.FixedZone("CET", 3600))

	p := NewPayload(r)
	if p.BatteryOK != 0 {
		t.Errorf("battery_ok: got %d, want 0", p.BatteryOK)
	}
	if p.Channel != 1 {
		t.Errorf("channel should be one-based: got %d", p.Channel)
	}
	if p.Time != "2026-02-02 22:18:12 UTC" {
		t.Errorf("time should be converted to UTC: got %s", p.Time)
	}
	if p.Model != Model {
		t.Errorf("model: got %s", p.Model)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	tests := []struct {
		name  string
		event SystemEvent
		want  string
	}{
		{
			name:  "shutdown",
			event: SystemEvent{Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC), Event: "SHUTDOWN", Reason: "SIGTERM"},
			want:  `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`,
		},
		{
			name:  "will",
			event: SystemEvent{Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC), Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT"},
			want:  `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`,
		},
		{
			name:  "reconnected omits reason",
			event: SystemEvent{Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC), Event: "RECONNECTED"},
			want:  `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`,
		},
		{
			name:  "timezone converted",
			event: SystemEvent{Timestamp: time.Date(2026, 2, 10, 15, 30, 0, 0, time.FixedZone("CET", 3600)), Event: "RECONNECTED"},
			want:  `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := FormatSystemPayload(tt.event)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(payload) != tt.want {
				t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, tt.want)
			}
		})
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("raw payload should pass through, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(sampleReading()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Readings) != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 reading and payload, got %d/%d", len(f.Readings), len(f.Payloads))
	}
	if f.Readings[0].ID != 0xAA {
		t.Errorf("unexpected id: %d", f.Readings[0].ID)
	}
	if len(f.SystemEvents) != 1 || !f.SystemEvents[0].Retained {
		t.Errorf("expected retained STARTUP event, got %+v", f.SystemEvents)
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated error")

	if err := f.Publish(sampleReading()); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Readings) != 0 || len(f.SystemEvents) != 0 {
		t.Error("nothing should be recorded on error")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(sampleReading())
	f.Close()
	f.Connected = true
	f.PublishError = errors.New("error")

	f.Reset()

	if len(f.Readings) != 0 || len(f.Payloads) != 0 {
		t.Error("readings should be cleared")
	}
	if f.Closed || f.Connected || f.PublishError != nil {
		t.Error("flags should be reset")
	}

	if err := f.Publish(sampleReading()); err != nil {
		t.Fatalf("publisher should be reusable after reset: %v", err)
	}
}

func TestPublishersImplementInterfaces(t *testing.T) {
	var _ Publisher = NewFakePublisher()
	var _ ConnectionStatus = NewFakePublisher()
	var _ Publisher = (*RealPublisher)(nil)
	var _ ConnectionStatus = (*RealPublisher)(nil)
}

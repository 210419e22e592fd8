// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/sweeney/nexus-sensor/internal/ook"
)

// DefaultTopic is the MQTT topic for readings, as used by rtl_433.
const DefaultTopic = "rtl_433/Nexus-TH"

// DefaultSystemTopic is the MQTT topic for system lifecycle events.
const DefaultSystemTopic = "nexus-sensor/system"

// Model is the rtl_433 model name of the decoded sensor.
const Model = "Nexus-TH"

// TimeFormat is the rtl_433 timestamp layout.
const TimeFormat = "2006-01-02 15:04:05 UTC"

// Publisher publishes readings to MQTT.
type Publisher interface {
	// Publish sends a confirmed reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(r ook.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "MQTT_DISCONNECT"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the rtl_433 JSON shape for a Nexus-TH reading.
type Payload struct {
	Time         string      `json:"time"`
	Model        string      `json:"model"`
	ID           int         `json:"id"`
	Channel      int         `json:"channel"`
	BatteryOK    int         `json:"battery_ok"`
	TemperatureC json.Number `json:"temperature_C"`
	Humidity     int         `json:"humidity"`
}

// NewPayload converts a reading. The channel is published one-based.
func NewPayload(r ook.Reading) Payload {
	battery := 0
	if r.BatteryOK {
		battery = 1
	}
	return Payload{
		Time:         r.Time.UTC().Format(TimeFormat),
		Model:        Model,
		ID:           int(r.ID),
		Channel:      int(r.Channel) + 1,
		BatteryOK:    battery,
		TemperatureC: json.Number(strconv.FormatFloat(r.Temperature(), 'f', 1, 64)),
		Humidity:     int(r.Humidity),
	}
}

// FormatPayload creates the JSON payload for a reading.
func FormatPayload(r ook.Reading) ([]byte, error) {
	return json.Marshal(NewPayload(r))
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

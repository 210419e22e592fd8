package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/nexus-sensor/internal/ook"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	LastReading   *ReadingJSON `json:"last_reading,omitempty"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Decoder       DecoderJSON  `json:"decoder"`
	Readings      ReadingsJSON `json:"readings"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// ReadingJSON is a decoded reading as shown on the status page.
type ReadingJSON struct {
	Time         string  `json:"time"`
	ID           int     `json:"id"`
	Channel      int     `json:"channel"`
	BatteryOK    bool    `json:"battery_ok"`
	TemperatureC float64 `json:"temperature_C"`
	Humidity     int     `json:"humidity"`
}

// NewReadingJSON converts a reading. The channel is shown one-based.
func NewReadingJSON(r ook.Reading) ReadingJSON {
	return ReadingJSON{
		Time:         r.Time.UTC().Format(time.RFC3339),
		ID:           int(r.ID),
		Channel:      int(r.Channel) + 1,
		BatteryOK:    r.BatteryOK,
		TemperatureC: r.Temperature(),
		Humidity:     int(r.Humidity),
	}
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

// DecoderJSON is the JSON representation of the decoder counters.
type DecoderJSON struct {
	Samples     uint64 `json:"samples"`
	Intervals   uint64 `json:"intervals"`
	Noise       uint64 `json:"noise"`
	Abandoned   uint64 `json:"abandoned"`
	Frames      uint64 `json:"frames"`
	Rejected    uint64 `json:"rejected"`
	Readings    uint64 `json:"readings"`
	Dropped     uint64 `json:"dropped"`
	StuckResets uint64 `json:"stuck_resets"`
	ReadErrors  uint64 `json:"read_errors"`
}

// ReadingsJSON is the JSON representation of the daemon reading counters.
type ReadingsJSON struct {
	Published     uint64 `json:"published"`
	Filtered      uint64 `json:"filtered"`
	PublishErrors uint64 `json:"publish_errors"`
	StoreErrors   uint64 `json:"store_errors"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Source      string `json:"source"`
	Channel     int    `json:"channel"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	DBPath      string `json:"db_path,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	d := snap.Decoder
	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Topic:     snap.Config.Topic,
		},
		Decoder: DecoderJSON{
			Samples:     d.Samples,
			Intervals:   d.Intervals,
			Noise:       d.Noise,
			Abandoned:   d.Abandoned,
			Frames:      d.Frames,
			Rejected:    d.Rejected,
			Readings:    d.Readings,
			Dropped:     d.Dropped,
			StuckResets: d.StuckResets,
			ReadErrors:  d.ReadErrors,
		},
		Readings: ReadingsJSON{
			Published:     snap.Counts.Published,
			Filtered:      snap.Counts.Filtered,
			PublishErrors: snap.Counts.PublishErr,
			StoreErrors:   snap.Counts.StoreErr,
		},
		Config: ConfigJSON{
			Source:      snap.Config.Source,
			Channel:     snap.Config.Channel,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			DBPath:      snap.Config.DBPath,
		},
	}

	if snap.LastReading != nil {
		r := NewReadingJSON(*snap.LastReading)
		inner.LastReading = &r
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

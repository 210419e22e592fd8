// Package status provides a thread-safe status tracker for the nexus-sensor daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/nexus-sensor/internal/ook"
)

// NetworkInfo contains network state.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Source      string // receiver line, e.g. "gpiochip0/27", "serial:/dev/ttyUSB0:DCD", "simulated"
	Channel     int    // one-based channel filter, 0 = any
	HeartbeatMs int64
	Broker      string
	Topic       string
	HTTPAddr    string
	DBPath      string
}

// Counts are the daemon-level reading counters.
type Counts struct {
	Published  uint64 // passed the channel filter
	Filtered   uint64 // dropped by the channel filter
	PublishErr uint64
	StoreErr   uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Decoder       ook.Stats
	LastReading   *ook.Reading
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// UpdateDecoder stores the latest decoder counters.
func (t *Tracker) UpdateDecoder(stats ook.Stats) {
	t.mu.Lock()
	t.snap.Decoder = stats
	t.mu.Unlock()
}

// RecordReading stores r as the last reading. published is false when the
// channel filter dropped it.
func (t *Tracker) RecordReading(r ook.Reading, published bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !published {
		t.snap.Counts.Filtered++
		return
	}
	t.snap.LastReading = &r
	t.snap.Counts.Published++
}

// PublishFailed counts a reading that could not be handed to MQTT.
func (t *Tracker) PublishFailed() {
	t.mu.Lock()
	t.snap.Counts.PublishErr++
	t.mu.Unlock()
}

// StoreFailed counts a reading that could not be written to history.
func (t *Tracker) StoreFailed() {
	t.mu.Lock()
	t.snap.Counts.StoreErr++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.LastReading != nil {
		r := *s.LastReading
		s.LastReading = &r
	}
	s.Now = t.now()
	return s
}

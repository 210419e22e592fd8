package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sweeney/nexus-sensor/internal/mqtt"
	"github.com/sweeney/nexus-sensor/internal/ook"
	"github.com/sweeney/nexus-sensor/internal/status"
)

const historyTimeout = 2 * time.Second

// recorder is the part of the history store the loop writes to.
type recorder interface {
	Record(ctx context.Context, r ook.Reading) error
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// daemon is the state shared by the run loop's handlers.
type daemon struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // may be nil
	tracker    *status.Tracker
	history    recorder // may be nil
	stats      func() ook.Stats
	channel    int // one-based filter, 0 = any
	retention  time.Duration
	now        func() time.Time

	lastRejected uint64
}

// errCaptureStopped is returned when the capture loop ends on its own.
var errCaptureStopped = errors.New("capture stopped")

func (d *daemon) runLoop(readings <-chan ook.Reading, captureDone <-chan error, heartbeat, refresh <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Info("shutting down", "signal", s)
			d.shutdown(signalName(s))
			return nil

		case err := <-captureDone:
			if err != nil {
				return fmt.Errorf("capture: %w", err)
			}
			return errCaptureStopped

		case r, ok := <-readings:
			if !ok {
				readings = nil
				continue
			}
			d.handleReading(r)

		case <-refresh:
			d.refresh()

		case <-heartbeat:
			d.refresh()
			d.heartbeat()
		}
	}
}

func (d *daemon) handleReading(r ook.Reading) {
	p := mqtt.NewPayload(r)
	if d.channel != 0 && p.Channel != d.channel {
		log.Debug("reading: filtered", "id", p.ID, "channel", p.Channel, "want", d.channel)
		d.tracker.RecordReading(r, false)
		return
	}

	log.Info("reading", "id", p.ID, "channel", p.Channel, "temperature_C", p.TemperatureC,
		"humidity", p.Humidity, "battery_ok", p.BatteryOK)

	if err := d.publisher.Publish(r); err != nil {
		// Don't crash on publish failure
		log.Error("publish error", "err", err)
		d.tracker.PublishFailed()
	}

	if d.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		err := d.history.Record(ctx, r)
		cancel()
		if err != nil {
			log.Error("history error", "err", err)
			d.tracker.StoreFailed()
		}
	}

	d.tracker.RecordReading(r, true)
}

// refresh copies decoder counters and connection state to the tracker.
func (d *daemon) refresh() {
	stats := d.stats()
	d.tracker.UpdateDecoder(stats)
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}

	if stats.Rejected > d.lastRejected {
		if stats.LastVerdict == ook.VerdictRejected {
			log.Debug("decoder: rejected frame", "bits", stats.LastFrame.String(), "total", stats.Rejected)
		}
		d.lastRejected = stats.Rejected
	}
}

func (d *daemon) heartbeat() {
	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		d.tracker.SetNetwork(net)
	}

	snap := d.tracker.Snapshot()
	log.Info("heartbeat", "uptime", snap.Uptime().Truncate(time.Second),
		"frames", snap.Decoder.Frames, "readings", snap.Decoder.Readings,
		"rejected", snap.Decoder.Rejected, "dropped", snap.Decoder.Dropped)

	event := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Error("heartbeat publish error", "err", err)
	}

	if d.history != nil && d.retention > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		n, err := d.history.Prune(ctx, d.now().Add(-d.retention))
		cancel()
		if err != nil {
			log.Error("history prune error", "err", err)
		} else if n > 0 {
			log.Info("history pruned", "deleted", n)
		}
	}
}

func (d *daemon) shutdown(reason string) {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	d.tracker.UpdateDecoder(d.stats())
	snap := d.tracker.Snapshot()

	event := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}
	if err := d.publisher.PublishSystem(event); err != nil {
		log.Error("failed to publish shutdown event", "err", err)
	} else {
		log.Info("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

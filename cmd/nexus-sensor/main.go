// Command nexus-sensor decodes Nexus-TH temperature/humidity transmissions
// from a 433 MHz receiver line and publishes them to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sweeney/nexus-sensor/internal/config"
	"github.com/sweeney/nexus-sensor/internal/gpio"
	"github.com/sweeney/nexus-sensor/internal/mqtt"
	"github.com/sweeney/nexus-sensor/internal/ook"
	"github.com/sweeney/nexus-sensor/internal/status"
	"github.com/sweeney/nexus-sensor/internal/store"
	"github.com/sweeney/nexus-sensor/internal/web"
)

// refreshInterval is how often decoder counters are copied to the tracker.
const refreshInterval = time.Second

type options struct {
	printLevel    bool
	simulate      bool
	simulateEvery time.Duration
}

// validate rejects flag combinations that cannot be honoured.
func (o options) validate() error {
	if o.printLevel && o.simulate {
		return errors.New("--print-level reads the receiver line and cannot be combined with --simulate")
	}
	if o.simulate && o.simulateEvery <= 0 {
		return fmt.Errorf("--simulate-every %v: must be positive", o.simulateEvery)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config", "err", err)
	}

	var opts options
	flag.BoolVar(&opts.printLevel, "print-level", false, "Print the receiver line level and exit")
	flag.BoolVar(&opts.simulate, "simulate", false, "Decode a synthetic transmitter instead of the receiver line")
	flag.DurationVar(&opts.simulateEvery, "simulate-every", 30*time.Second, "Burst interval of the synthetic transmitter")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "err", err)
	}
	if err := opts.validate(); err != nil {
		log.Fatal("invalid flags", "err", err)
	}
	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	if err := run(cfg, opts); err != nil {
		log.Fatal("fatal", "err", err)
	}
}

// openReader opens the configured receiver line.
func openReader(cfg *config.Config) (gpio.Reader, error) {
	if cfg.SerialPort != "" {
		pin, err := gpio.ParseModemPin(cfg.SerialPin)
		if err != nil {
			return nil, err
		}
		return gpio.NewSerialReader(gpio.SerialOptions{
			Port:      cfg.SerialPort,
			Pin:       pin,
			ActiveLow: cfg.ActiveLow,
			PowerDTR:  cfg.SerialDTR,
		})
	}

	bias, err := gpio.ParseBias(cfg.GPIOBias)
	if err != nil {
		return nil, err
	}
	return gpio.NewRealReader(gpio.Options{
		Chip:      cfg.GPIOChip,
		Line:      cfg.GPIOLine,
		Bias:      bias,
		ActiveLow: cfg.ActiveLow,
	})
}

// simulatedFields is what --simulate transmits.
var simulatedFields = ook.Fields{
	ID:                0xAA,
	BatteryOK:         true,
	Channel:           0,
	TemperatureTenths: 215,
	Unknown:           0xF,
	Humidity:          48,
}

func run(cfg *config.Config, opts options) error {
	var (
		sampler ook.Sampler
		epoch   time.Time
		source  = cfg.Source()
	)
	if err := opts.validate(); err != nil {
		return err
	}
	if opts.simulate {
		fields := simulatedFields
		if cfg.Channel > 0 {
			fields.Channel = uint8(cfg.Channel - 1)
		}
		tx := ook.NewTransmitter(fields, ook.NexusTiming, ook.DefaultRepeats, opts.simulateEvery)
		sampler, epoch, source = tx, tx.Epoch(), "simulated"
	} else {
		reader, err := openReader(cfg)
		if err != nil {
			return fmt.Errorf("open receiver %s: %w", source, err)
		}
		defer reader.Close()

		if opts.printLevel {
			high, err := reader.Read()
			if err != nil {
				return fmt.Errorf("read receiver: %w", err)
			}
			fmt.Println(ook.LevelOf(high))
			return nil
		}

		ls := ook.NewLineSampler(reader)
		sampler, epoch = ls, ls.Epoch()
	}

	dec, err := ook.NewDecoder(ook.Config{SilenceTimeout: silenceTimeout(cfg.Silence), Epoch: epoch})
	if err != nil {
		return fmt.Errorf("init decoder: %w", err)
	}
	capture := ook.NewCapture(sampler, dec, ook.DefaultBuffer)

	var history *store.Store
	if cfg.DBPath != "" {
		history, err = store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer history.Close()
		log.Info("history enabled", "path", cfg.DBPath, "retention", cfg.Retention)
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:      cfg.MQTTBroker,
		Username:    cfg.MQTTUser,
		Password:    cfg.MQTTPass,
		Topic:       cfg.MQTTTopic,
		SystemTopic: cfg.MQTTSystemTopic,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Source:      source,
		Channel:     cfg.Channel,
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTTBroker,
		Topic:       cfg.MQTTTopic,
		HTTPAddr:    cfg.HTTPAddr,
		DBPath:      cfg.DBPath,
	})
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Error("failed to publish startup event", "err", err)
	} else {
		log.Info("published startup event")
	}

	if cfg.HTTPAddr != "" {
		var h web.History
		if history != nil {
			h = history
		}
		srv := web.New(cfg.HTTPAddr, tracker, h)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", cfg.HTTPAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	captureDone := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		captureDone <- capture.Run(ctx)
		close(stopped)
	}()

	log.Info("started", "source", source, "channel", cfg.Channel, "broker", cfg.MQTTBroker, "heartbeat", cfg.Heartbeat)

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		t := time.NewTicker(cfg.Heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}
	refresh := time.NewTicker(refreshInterval)
	defer refresh.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	d := &daemon{
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		stats:      capture.Stats,
		channel:    cfg.Channel,
		retention:  cfg.Retention,
		now:        time.Now,
	}
	if history != nil {
		d.history = history
	}
	err = d.runLoop(capture.Readings(), captureDone, heartbeat, refresh.C, sigCh)

	// The receiver must not be closed under a running capture.
	cancel()
	<-stopped
	return err
}

// silenceTimeout maps the config's "0 disables" to the decoder's "< 0 disables".
func silenceTimeout(d time.Duration) time.Duration {
	if d == 0 {
		return -1
	}
	return d
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

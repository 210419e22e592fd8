// Package config loads daemon settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/sweeney/nexus-sensor/internal/gpio"
	"github.com/sweeney/nexus-sensor/internal/mqtt"
)

// ErrInvalidChannel is returned by Validate for a channel filter outside 0-3.
var ErrInvalidChannel = errors.New("channel must be 0 (any) or 1-3")

// MaxChannel is the highest channel selectable on a Nexus-TH sensor.
const MaxChannel = 3

// Config holds daemon settings.
type Config struct {
	// MQTT
	MQTTBroker      string
	MQTTUser        string
	MQTTPass        string
	MQTTTopic       string
	MQTTSystemTopic string

	// Channel filter, one-based as printed on the sensor. 0 accepts all.
	Channel int

	// Receiver line. SerialPort, when set, takes precedence over GPIO.
	GPIOChip   string
	GPIOLine   int
	GPIOBias   string
	ActiveLow  bool
	SerialPort string
	SerialPin  string
	SerialDTR  bool

	// Decoder
	Silence time.Duration

	// Daemon
	HTTPAddr  string
	DBPath    string
	Retention time.Duration
	Heartbeat time.Duration
	LogLevel  string
}

// Load reads settings. Process environment wins over the .env files,
// which win over defaults. Missing files are ignored; with no files given
// ".env" in the working directory is tried.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	dotenv := map[string]string{}
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := dotenv[k]; !ok {
				dotenv[k] = v
			}
		}
	}

	e := env{dotenv: dotenv}
	return &Config{
		MQTTBroker:      e.getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTUser:        e.getEnv("MQTT_USER", ""),
		MQTTPass:        e.getEnv("MQTT_PASS", ""),
		MQTTTopic:       e.getEnv("MQTT_TOPIC", mqtt.DefaultTopic),
		MQTTSystemTopic: e.getEnv("MQTT_SYSTEM_TOPIC", mqtt.DefaultSystemTopic),

		Channel: e.getEnvInt("SENSOR_CHANNEL", 0),

		GPIOChip:   e.getEnv("GPIO_CHIP", gpio.DefaultChip),
		GPIOLine:   e.getEnvInt("GPIO_LINE", gpio.DefaultLine),
		GPIOBias:   e.getEnv("GPIO_BIAS", "as-is"),
		ActiveLow:  e.getEnvBool("GPIO_ACTIVE_LOW", false),
		SerialPort: e.getEnv("SERIAL_PORT", ""),
		SerialPin:  e.getEnv("SERIAL_PIN", "DCD"),
		SerialDTR:  e.getEnvBool("SERIAL_DTR", false),

		Silence: e.getEnvDuration("SILENCE_TIMEOUT", 5*time.Second),

		HTTPAddr:  e.getEnv("HTTP_ADDR", ":8080"),
		DBPath:    e.getEnv("DB_PATH", ""),
		Retention: e.getEnvDuration("DB_RETENTION", 30*24*time.Hour),
		Heartbeat: e.getEnvDuration("HEARTBEAT", 15*time.Minute),
		LogLevel:  e.getEnv("LOG_LEVEL", "info"),
	}, nil
}

// RegisterFlags binds command-line flags to c, using the loaded values as
// defaults.
func (c *Config) RegisterFlags(flags *flag.FlagSet) {
	flags.StringVar(&c.MQTTBroker, "broker", c.MQTTBroker, "MQTT broker address")
	flags.StringVar(&c.MQTTUser, "user", c.MQTTUser, "MQTT username")
	flags.StringVar(&c.MQTTPass, "pass", c.MQTTPass, "MQTT password")
	flags.StringVar(&c.MQTTTopic, "topic", c.MQTTTopic, "MQTT topic for readings")
	flags.StringVar(&c.MQTTSystemTopic, "system-topic", c.MQTTSystemTopic, "MQTT topic for lifecycle events")
	flags.IntVar(&c.Channel, "channel", c.Channel, "Only publish this sensor channel (1-3, 0 for any)")
	flags.StringVar(&c.GPIOChip, "chip", c.GPIOChip, "GPIO chip")
	flags.IntVar(&c.GPIOLine, "line", c.GPIOLine, "GPIO line offset of the receiver data pin")
	flags.StringVar(&c.GPIOBias, "bias", c.GPIOBias, "GPIO bias: as-is, disabled, pull-up, pull-down")
	flags.BoolVar(&c.ActiveLow, "active-low", c.ActiveLow, "Receiver signals carrier by pulling the line low")
	flags.StringVar(&c.SerialPort, "serial", c.SerialPort, "Read the receiver from a serial port status pin instead of GPIO")
	flags.StringVar(&c.SerialPin, "serial-pin", c.SerialPin, "Serial status pin: DCD, CTS, DSR, RI")
	flags.BoolVar(&c.SerialDTR, "serial-dtr", c.SerialDTR, "Raise DTR to power the receiver")
	flags.DurationVar(&c.Silence, "silence", c.Silence, "Forget an unconfirmed frame after this much quiet (0 to disable)")
	flags.StringVar(&c.HTTPAddr, "http", c.HTTPAddr, "HTTP status address (empty to disable)")
	flags.StringVar(&c.DBPath, "db", c.DBPath, "SQLite reading history path (empty to disable)")
	flags.DurationVar(&c.Retention, "retention", c.Retention, "Delete history older than this (0 keeps everything)")
	flags.DurationVar(&c.Heartbeat, "heartbeat", c.Heartbeat, "Heartbeat interval (0 to disable)")
	flags.StringVar(&c.LogLevel, "level", c.LogLevel, "Log level: debug, info, warn, error")
}

// Validate checks values that cannot be checked while parsing.
func (c *Config) Validate() error {
	if c.Channel < 0 || c.Channel > MaxChannel {
		return fmt.Errorf("channel %d: %w", c.Channel, ErrInvalidChannel)
	}
	if c.MQTTBroker == "" {
		return errors.New("mqtt broker required")
	}
	if c.GPIOLine < 0 {
		return fmt.Errorf("gpio line %d: must not be negative", c.GPIOLine)
	}
	if _, err := gpio.ParseBias(c.GPIOBias); err != nil {
		return err
	}
	if _, err := gpio.ParseModemPin(c.SerialPin); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	for name, d := range map[string]time.Duration{
		"heartbeat": c.Heartbeat,
		"silence":   c.Silence,
		"retention": c.Retention,
	} {
		if d < 0 {
			return fmt.Errorf("%s %v: must not be negative", name, d)
		}
	}
	return nil
}

// Source describes the receiver line for logs and the status page.
func (c *Config) Source() string {
	if c.SerialPort != "" {
		return fmt.Sprintf("serial:%s:%s", c.SerialPort, c.SerialPin)
	}
	return fmt.Sprintf("%s/%d", c.GPIOChip, c.GPIOLine)
}

// env looks up keys in the process environment, then in .env values.
type env struct {
	dotenv map[string]string
}

func (e env) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return e.dotenv[key]
}

func (e env) getEnv(key, def string) string {
	if v := e.lookup(key); v != "" {
		return v
	}
	return def
}

func (e env) getEnvInt(key string, def int) int {
	v := e.lookup(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("config: not an integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func (e env) getEnvBool(key string, def bool) bool {
	v := e.lookup(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("config: not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func (e env) getEnvDuration(key string, def time.Duration) time.Duration {
	v := e.lookup(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn("config: not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/nexus-sensor/internal/ook"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	// DefaultBacklog is the number of messages held while disconnected.
	DefaultBacklog = 100
)

// Options configures the broker connection.
type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	Topic       string
	SystemTopic string
	Backlog     int
}

func (o Options) withDefaults() Options {
	if o.ClientID == "" {
		o.ClientID = ClientID("nexus-sensor")
	}
	if o.Topic == "" {
		o.Topic = DefaultTopic
	}
	if o.SystemTopic == "" {
		o.SystemTopic = DefaultSystemTopic
	}
	if o.Backlog <= 0 {
		o.Backlog = DefaultBacklog
	}
	return o
}

// ClientID returns prefix with a random suffix, so two daemons on the same
// broker do not kick each other off.
func ClientID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are queued and sent on reconnect.
type RealPublisher struct {
	client paho.Client
	opts   Options
	now    func() time.Time

	mu        sync.Mutex
	backlog   *backlog
	connected bool // at least one successful connect
	draining  bool // onConnect is replaying the backlog
}

// NewRealPublisher creates a publisher connected to the given broker.
// If the broker is unreachable the publisher is still returned and keeps
// retrying in the background.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	opts = opts.withDefaults()
	if opts.Broker == "" {
		return nil, errors.New("mqtt: broker address required")
	}

	p := &RealPublisher{
		opts:    opts,
		now:     time.Now,
		backlog: newBacklog(opts.Backlog),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetWill(opts.SystemTopic, string(will), 1, true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(co)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn("mqtt: broker not reachable yet, buffering", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newRealPublisher(client paho.Client, opts Options, now func() time.Time) *RealPublisher {
	opts = opts.withDefaults()
	return &RealPublisher{
		client:  client,
		opts:    opts,
		now:     now,
		backlog: newBacklog(opts.Backlog),
	}
}

// Publish sends a reading to the MQTT broker.
func (p *RealPublisher) Publish(r ook.Reading) error {
	payload, err := FormatPayload(r)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: p.opts.Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{
		topic:    p.opts.SystemTopic,
		payload:  payload,
		qos:      1,
		retained: event.Retained,
	})
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	// Queue behind a replay in progress so messages keep their order.
	if p.draining || !p.client.IsConnectionOpen() {
		p.backlog.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.write(msg)
}

func (p *RealPublisher) write(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

// onConnect flushes the backlog, then announces the reconnect. Messages
// sent during the replay are queued and replayed after it.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.draining = true
	p.mu.Unlock()

	replayed := 0
	for {
		p.mu.Lock()
		pending := p.backlog.drain()
		if len(pending) == 0 {
			p.draining = false
			p.mu.Unlock()
			break
		}
		p.mu.Unlock()

		for _, msg := range pending {
			if err := p.write(msg); err != nil {
				log.Error("mqtt: replay failed", "err", err)
			}
		}
		replayed += len(pending)
	}
	log.Info("mqtt: connected", "broker", p.opts.Broker, "replayed", replayed)

	if !reconnect {
		return
	}
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
	if err != nil {
		log.Error("mqtt: format reconnect event", "err", err)
		return
	}
	if err := p.write(bufferedMsg{topic: p.opts.SystemTopic, payload: payload, qos: 1}); err != nil {
		log.Error("mqtt: publish reconnect event", "err", err)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	log.Warn("mqtt: connection lost", "broker", p.opts.Broker, "err", err)
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Queued returns the number of messages waiting for the broker.
func (p *RealPublisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlog.len()
}

// Dropped returns the number of queued messages lost to backlog overflow.
func (p *RealPublisher) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlog.dropped
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

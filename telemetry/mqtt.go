package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fractaltile/asynctiled/config"
)

// Sentinel errors an MQTTEmitter returns, distinguishable with errors.Is
// from the underlying paho client errors they may wrap.
var (
	ErrConnectTimeout = errors.New("telemetry: mqtt connect timed out")
	ErrNotConnected   = errors.New("telemetry: mqtt not connected")
	ErrPublishTimeout = errors.New("telemetry: mqtt publish timed out")
)

// MQTTEmitter publishes generation-complete events to an MQTT broker.
type MQTTEmitter struct {
	cfg    *config.MQTTConfig
	client mqtt.Client

	mu        sync.RWMutex
	published uint64
	errors    uint64
	connected bool
}

// NewMQTTEmitter constructs an MQTTEmitter for cfg. Call Connect before the
// first EmitGenerationComplete.
func NewMQTTEmitter(cfg *config.MQTTConfig) *MQTTEmitter {
	return &MQTTEmitter{cfg: cfg}
}

// Connect establishes the broker connection.
func (e *MQTTEmitter) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		e.mu.Lock()
		e.connected = true
		e.mu.Unlock()
		slog.Info("mqtt connection established", "broker", e.cfg.Broker, "client_id", e.cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		e.mu.Lock()
		e.connected = false
		e.mu.Unlock()
		slog.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", e.cfg.Broker)
	}

	e.client = mqtt.NewClient(opts)
	token := e.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("%w: %s", ErrConnectTimeout, e.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("telemetry: mqtt connect to %s: %w", e.cfg.Broker, err)
	}

	e.mu.Lock()
	e.connected = true
	e.mu.Unlock()
	return nil
}

// EmitGenerationComplete implements Emitter by publishing event as JSON to
// the configured topic at QoS 0.
func (e *MQTTEmitter) EmitGenerationComplete(event Event) error {
	if !e.isConnected() {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return ErrNotConnected
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("telemetry: marshal event: %w", err)
	}

	token := e.client.Publish(e.cfg.Topic, 0, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPublishTimeout, e.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		e.mu.Lock()
		e.errors++
		e.mu.Unlock()
		return fmt.Errorf("telemetry: publish to %s: %w", e.cfg.Topic, err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()
	return nil
}

// Disconnect closes the broker connection.
func (e *MQTTEmitter) Disconnect() {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
	}
	e.mu.Lock()
	e.connected = false
	e.mu.Unlock()
}

// Stats reports how many events this emitter has published and failed to
// publish.
func (e *MQTTEmitter) Stats() (published, errors uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.published, e.errors
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

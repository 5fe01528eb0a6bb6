// Package publish pushes accepted observations and offline events to an
// MQTT broker. The publisher is optional; when no broker is configured the
// engine simply runs without sinks.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/jlmoray/stationwatch/internal/registry"
	"github.com/jlmoray/stationwatch/internal/wx"
)

const publishTimeout = 5 * time.Second

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker      string
	Port        int
	ClientID    string
	TopicPrefix string
}

// Publisher is an MQTT observation sink. It also executes offline trigger
// events by publishing them to a per-device events topic.
type Publisher struct {
	client mqtt.Client
	cfg    MQTTConfig
	logger zerolog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPublisher builds the MQTT client. Connect must be called before
// anything is published.
func NewPublisher(cfg MQTTConfig, logger zerolog.Logger) *Publisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "stationwatch"
	}

	p := &Publisher{
		cfg:    cfg,
		logger: logger.With().Str("component", "mqtt").Logger(),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		p.logger.Info().Str("broker", cfg.Broker).Int("port", cfg.Port).Msg("mqtt connected")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		p.logger.Warn().Err(err).Msg("mqtt connection lost")
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the initial broker connection, respecting ctx and
// Disconnect. With ConnectRetry enabled paho keeps retrying internally.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// PublishObservation sends an accepted observation to the device's
// observations topic.
func (p *Publisher) PublishObservation(deviceKey string, obs *wx.Observation) error {
	topic := fmt.Sprintf("%s/%s/observations", p.cfg.TopicPrefix, deviceKey)
	return p.publish(topic, false, obs)
}

// Execute publishes an offline event. Trigger delivery is best effort, so
// failures are logged rather than propagated to the cycle.
func (p *Publisher) Execute(event registry.OfflineEvent) {
	topic := fmt.Sprintf("%s/%s/events", p.cfg.TopicPrefix, event.DeviceKey)
	if err := p.publish(topic, false, event); err != nil {
		p.logger.Warn().Err(err).Str("device", event.DeviceKey).Msg("offline event not delivered")
	}
}

func (p *Publisher) publish(topic string, retained bool, payload any) error {
	if !p.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	token := p.client.Publish(topic, 1, retained, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}

	p.logger.Debug().Str("topic", topic).Msg("published")
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher. Idempotent; Connect fails afterwards.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
	p.logger.Info().Msg("mqtt disconnected")
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

// Package mqttstatus announces the bridge on the MQTT broker configured in
// the settings.
package mqttstatus

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/settings"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Target is the part of the settings the MQTT connection depends on.
type Target struct {
	Host        string
	Port        uint16
	Username    string
	Password    string
	StatusTopic string
}

// TargetOf extracts the connection target of current.
func TargetOf(current *settings.Settings) Target {
	return Target{
		Host:        current.MQTTServer(),
		Port:        current.MQTTPort(),
		Username:    current.MQTTUsername,
		Password:    current.MQTTPassword,
		StatusTopic: current.MQTTClientStatusTopic,
	}
}

// Enabled reports whether a broker is configured.
func (t Target) Enabled() bool {
	return t.Host != ""
}

// Broker returns the broker URL.
func (t Target) Broker() string {
	return fmt.Sprintf("tcp://%s:%d", t.Host, t.Port)
}

// Options builds paho client options for t. With a status topic the broker
// publishes StatusDisconnected as last will.
func Options(t Target, clientID string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.Broker())
	opts.SetClientID(clientID)
	opts.SetUsername(t.Username)
	opts.SetPassword(t.Password)
	opts.SetKeepAlive(10 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	if t.StatusTopic != "" {
		opts.SetWill(t.StatusTopic, StatusDisconnected, 1, true)
	}
	return opts
}

// Publisher keeps one broker connection matching the latest settings.
type Publisher struct {
	mu        sync.Mutex
	clientID  string
	logger    zerolog.Logger
	target    Target
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
}

// New returns a publisher that is not connected yet.
func New(clientID string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		clientID:  clientID,
		logger:    logger,
		newClient: mqtt.NewClient,
	}
}

// Apply reconnects when the broker target of current differs from the one
// in use. It never blocks on the network.
func (p *Publisher) Apply(current settings.Settings) {
	target := TargetOf(&current)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && target == p.target {
		return
	}
	p.disconnectLocked()
	p.target = target
	if !target.Enabled() {
		return
	}

	opts := Options(target, p.clientID)
	logger := p.logger.With().Str("broker", target.Broker()).Logger()
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info().Msg("mqtt connected")
		if target.StatusTopic == "" {
			return
		}
		token := client.Publish(target.StatusTopic, 1, true, StatusConnected)
		go waitToken(logger, token, "publish client status")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	})
	p.client = p.newClient(opts)
	go waitToken(logger, p.client.Connect(), "mqtt connect")
}

// Close announces StatusDisconnected and closes the connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnectLocked()
}

func (p *Publisher) disconnectLocked() {
	if p.client == nil {
		return
	}
	if p.client.IsConnected() && p.target.StatusTopic != "" {
		token := p.client.Publish(p.target.StatusTopic, 1, true, StatusDisconnected)
		if !token.WaitTimeout(2*time.Second) || token.Error() != nil {
			p.logger.Warn().Err(token.Error()).Msg("failed to publish disconnected status")
		}
	}
	p.client.Disconnect(250)
	p.client = nil
}

func waitToken(logger zerolog.Logger, token mqtt.Token, action string) {
	if !token.WaitTimeout(30 * time.Second) {
		logger.Warn().Str("action", action).Msg("mqtt operation timed out")
		return
	}
	if err := token.Error(); err != nil {
		logger.Error().Err(err).Str("action", action).Msg("mqtt operation failed")
	}
}

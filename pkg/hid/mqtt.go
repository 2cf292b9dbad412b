package hid

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned by MQTT.Flush while the broker is unreachable.
var ErrNotConnected = pkgerrors.New("mqtt broker not connected")

// publisher is the part of mqtt.Client used by MQTT.
type publisher interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTOptions configures the telemetry mirror.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	// MinInterval rate-limits publishing. A change inside the window is
	// published by the first flush after it.
	MinInterval time.Duration
}

// MQTTMessage is the payload published on every state change.
type MQTTMessage struct {
	State
	Ts int64 `json:"ts"`
}

// MQTT mirrors the joystick state to an MQTT topic. It never waits on the
// broker: publishing is fire-and-forget at QoS 0.
type MQTT struct {
	batch

	client      publisher
	topic       string
	minInterval time.Duration
	lastPublish time.Time
	now         func() time.Time
}

var _ Transport = &MQTT{}

// DialMQTT connects to the broker. The connection is retried in the
// background, so a broker that is down at boot does not stop the device.
func DialMQTT(opts MQTTOptions) (*MQTT, error) {
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logrus.WithError(err).Warn("mqtt connection lost")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logrus.WithField("broker", opts.Broker).Info("mqtt connected")
		})

	client := mqtt.NewClient(co)
	token := client.Connect()
	// With connect retry enabled the token only completes once connected;
	// do not hold up boot for it.
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return nil, pkgerrors.Wrapf(token.Error(), "failed to connect to mqtt broker %s", opts.Broker)
	}

	return newMQTT(client, opts), nil
}

func newMQTT(client publisher, opts MQTTOptions) *MQTT {
	return &MQTT{
		client:      client,
		topic:       opts.Topic,
		minInterval: opts.MinInterval,
		now:         time.Now,
	}
}

func (m *MQTT) Flush() error {
	if !m.dirty() {
		return nil
	}

	now := m.now()
	if !m.lastPublish.IsZero() && now.Sub(m.lastPublish) < m.minInterval {
		return nil
	}

	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(MQTTMessage{State: m.pending, Ts: now.UnixMilli()})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal mqtt message")
	}

	m.client.Publish(m.topic, 0, true, payload)
	m.lastPublish = now
	m.markSent()

	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}

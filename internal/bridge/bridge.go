// internal/bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/tamzrod/regbridge/internal/codec"
	"github.com/tamzrod/regbridge/internal/config"
	"github.com/tamzrod/regbridge/internal/device"
)

// connectTimeout bounds the initial broker handshake.
const connectTimeout = 10 * time.Second

// Bridge publishes device state changes to an MQTT broker. It is the
// reference consumer of the device API: one retained topic per channel
// plus an availability topic per device.
type Bridge struct {
	client mqtt.Client
	prefix string
	log    *zap.Logger
}

// New connects to the broker. Fails fast if the broker is unreachable.
func New(cfg *config.MQTTConfig, log *zap.Logger) (*Bridge, error) {
	if log == nil {
		log = zap.NewNop()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if tok := client.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("bridge: connect %s: %w", cfg.Broker, tok.Error())
	}

	return &Bridge{
		client: client,
		prefix: cfg.TopicPrefix,
		log:    log.Named("bridge"),
	}, nil
}

// Run consumes events until ctx is cancelled or the channel closes.
func (b *Bridge) Run(ctx context.Context, events <-chan device.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.publish(ev)
		}
	}
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}

func (b *Bridge) publish(ev device.Event) {
	topic := topicFor(b.prefix, ev)
	payload, err := payloadFor(ev)
	if err != nil {
		b.log.Error("encode payload", zap.String("topic", topic), zap.Error(err))
		return
	}

	if tok := b.client.Publish(topic, 0, true, payload); tok.Wait() && tok.Error() != nil {
		b.log.Warn("publish failed", zap.String("topic", topic), zap.Error(tok.Error()))
	}
}

// topicFor renders <prefix>/<mac>/<channel>, with the availability flag
// on its own topic. Colons are stripped from the MAC for topic hygiene.
func topicFor(prefix string, ev device.Event) string {
	mac := strings.ReplaceAll(ev.Device, ":", "")
	if ev.Channel == "" {
		return fmt.Sprintf("%s/%s/availability", prefix, mac)
	}
	return fmt.Sprintf("%s/%s/%s", prefix, mac, ev.Channel)
}

func payloadFor(ev device.Event) ([]byte, error) {
	if ev.Channel == "" {
		if ev.Available {
			return []byte("online"), nil
		}
		return []byte("offline"), nil
	}

	return json.Marshal(struct {
		Value codec.Value `json:"value"`
		At    time.Time   `json:"at"`
	}{ev.Value, ev.At})
}

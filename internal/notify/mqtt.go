package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	// DefaultResetTopic is the topic PZEM-style energy meters subscribe to
	// for counter reset commands.
	DefaultResetTopic = "pzem/energy/reset"

	// DefaultResetPayload is the command body the meters expect.
	DefaultResetPayload = "RESET"

	connectTimeout = 5 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTTPublisher publishes reset commands over MQTT. It connects per publish:
// the daily rollup fires at most once per day, so keeping a broker session
// alive between runs buys nothing.
type MQTTPublisher struct {
	brokerURL string
	clientID  string
	topic     string
	payload   string
}

// MQTTOptions configures the broker connection and reset message.
type MQTTOptions struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Payload   string
}

// NewMQTTPublisher creates a publisher for the given broker. Empty topic and
// payload fall back to the PZEM defaults.
func NewMQTTPublisher(opts MQTTOptions) *MQTTPublisher {
	if opts.Topic == "" {
		opts.Topic = DefaultResetTopic
	}
	if opts.Payload == "" {
		opts.Payload = DefaultResetPayload
	}
	if opts.ClientID == "" {
		opts.ClientID = "gridwatch-notifier"
	}
	return &MQTTPublisher{
		brokerURL: opts.BrokerURL,
		clientID:  opts.ClientID,
		topic:     opts.Topic,
		payload:   opts.Payload,
	}
}

// PublishReset connects to the broker, publishes the reset command at QoS 0
// without retain, and disconnects. QoS 0 is deliberate: a meter that misses
// one reset self-corrects on the next day's publish, and the rollup must not
// block on broker acknowledgement.
func (p *MQTTPublisher) PublishReset(ctx context.Context) error {
	clientOpts := mqtt.NewClientOptions().
		AddBroker(p.brokerURL).
		SetClientID(p.clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(false)

	client := mqtt.NewClient(clientOpts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to broker %s: timeout", p.brokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker %s: %w", p.brokerURL, err)
	}
	defer client.Disconnect(250)

	if err := ctx.Err(); err != nil {
		return err
	}

	pubToken := client.Publish(p.topic, 0, false, p.payload)
	if !pubToken.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", p.topic)
	}
	if err := pubToken.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	slog.Info("[Notify] Reset command published", "topic", p.topic, "broker", p.brokerURL)
	return nil
}

// Package mqtt announces created sessions on an MQTT topic so that other
// tools (a chat bot, a course page generator) can pick up guest links.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/collabsched/core/metrics"
	"github.com/kilianp07/collabsched/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Message is the JSON body published for a created session.
type Message struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	SessionID string    `json:"session_id"`
	GuestURL  string    `json:"guest_url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes created sessions to the broker.
type Notifier struct {
	cli        pahoClient
	topic      string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewNotifier connects to the broker. cfg should already have defaults
// applied.
func NewNotifier(cfg Config) (*Notifier, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) { log.Warnf("reconnecting to MQTT broker") }

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	return &Notifier{
		cli:        c,
		topic:      cfg.Topic,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// Notify publishes ev if it describes a created session. Other outcomes
// are ignored.
func (n *Notifier) Notify(ev metrics.UploadEvent) error {
	if ev.Status != metrics.StatusCreated {
		return nil
	}
	payload, err := json.Marshal(Message{
		RunID:     ev.RunID,
		Name:      ev.Name,
		SessionID: ev.SessionID,
		GuestURL:  ev.GuestURL,
		Timestamp: ev.Time,
	})
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		token := n.cli.Publish(n.topic, n.qos, n.retain, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			n.log.Debugf("announced %s on %s", ev.Name, n.topic)
			return nil
		}
		n.log.Warnf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < n.maxRetries {
			time.Sleep(n.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", ev.Name, publishErr)
}

// Run publishes events until the channel is closed or ctx is done.
// Failures are logged and do not stop the loop.
func (n *Notifier) Run(ctx context.Context, events <-chan metrics.UploadEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := n.Notify(ev); err != nil {
				n.log.Errorf("notify: %v", err)
			}
		}
	}
}

// Disconnect gracefully closes the MQTT connection.
func (n *Notifier) Disconnect() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}

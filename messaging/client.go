// Package messaging publishes floor events to a pluggable backend. Events
// are written to the store outbox first and drained from there, so a broker
// outage never loses or blocks a floor action.
package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"atelier/config"
)

type publisher interface {
	Publish(topic string, payload []byte) error
	Connected() bool
	Close() error
}

type Client struct {
	mu      sync.Mutex
	cfg     *config.MessagingConfig
	backend publisher
}

func NewClient(cfg *config.MessagingConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect brings up the configured backend. Backend "none" is a valid
// deployment: events stay in the outbox until pruned.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.cfg.Backend {
	case "kafka":
		c.backend = newKafkaPublisher(c.cfg.Kafka.Brokers)
		return nil
	case "mqtt":
		pub, err := newMQTTPublisher(&c.cfg.MQTT)
		if err != nil {
			return err
		}
		c.backend = pub
		return nil
	case "none", "":
		c.backend = nil
		return nil
	default:
		return fmt.Errorf("messaging: unknown backend %q", c.cfg.Backend)
	}
}

func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	backend := c.backend
	c.mu.Unlock()
	if backend == nil {
		return fmt.Errorf("messaging: no backend connected")
	}
	return backend.Publish(topic, payload)
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend != nil && c.backend.Connected()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend == nil {
		return nil
	}
	err := c.backend.Close()
	c.backend = nil
	return err
}

// Reconfigure reconnects with new settings.
func (c *Client) Reconfigure(cfg *config.MessagingConfig) error {
	c.Close()
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return c.Connect()
}

// --- kafka backend ---

type kafkaPublisher struct {
	writer *kafka.Writer
}

func newKafkaPublisher(brokers []string) *kafkaPublisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

func (p *kafkaPublisher) Publish(topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
}

func (p *kafkaPublisher) Connected() bool { return true }

func (p *kafkaPublisher) Close() error { return p.writer.Close() }

// --- mqtt backend ---

type mqttPublisher struct {
	client mqtt.Client
}

func newMQTTPublisher(cfg *config.MQTTConfig) (*mqttPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("messaging: mqtt connect still pending, continuing in background")
	} else if token.Error() != nil {
		return nil, fmt.Errorf("messaging: mqtt connect: %w", token.Error())
	}
	return &mqttPublisher{client: client}, nil
}

func (p *mqttPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("messaging: mqtt publish timeout")
	}
	return token.Error()
}

func (p *mqttPublisher) Connected() bool { return p.client.IsConnected() }

func (p *mqttPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}

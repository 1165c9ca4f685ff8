package nats

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	ClientID      string
}

type Client struct {
	conn *nats.Conn
}

func NewClient(cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("Connected to NATS at %s", conn.ConnectedUrl())
	return &Client{conn: conn}, nil
}

func (c *Client) Publish(subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (c *Client) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	log.Printf("Subscribed to subject: %s", subject)
	return sub, nil
}

// Drain flushes pending publishes and closes the connection.
func (c *Client) Drain() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Drain()
}

func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func DecodeEvent(msg *nats.Msg, v interface{}) error {
	return json.Unmarshal(msg.Data, v)
}

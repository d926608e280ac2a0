// Package bus is an optional, best-effort NATS side-channel Director uses
// to mirror log and monitor lines onto subjects an external supervisor can
// subscribe to, so it doesn't have to tail the log file (spec.md names a
// "live renderer" observing "a dedicated streaming log" as an external
// collaborator; this is an additional, equally thin way to observe it).
//
// Grounded on pkg/messaging/nats.go's Client wrapper (Connect + reconnect
// handlers + json-marshaling Publish); trimmed to the two subjects this
// domain needs and made nil-safe throughout, the same nil-safety
// internal/matching.Engine relies on for an optional msgClient.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectLog     = "sorsim.log"
	SubjectMonitor = "sorsim.monitor"
)

// Client wraps a NATS connection. A nil *Client is valid and every method
// on it is a no-op, so callers don't need to branch on "is bus configured".
type Client struct {
	conn *nats.Conn
}

// Dial connects to url. An empty url means "no bus configured" and returns
// (nil, nil) rather than an error, so Director can always call Dial and
// treat the result uniformly.
func Dial(url, name string) (*Client, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(10),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("bus: connect %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Publish marshals data as JSON and publishes it to subject. No-op on a
// nil Client or nil underlying connection.
func (c *Client) Publish(subject string, data interface{}) error {
	if c == nil || c.conn == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("bus: marshal: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// Close drains and closes the connection. No-op on a nil Client.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	c.conn.Close()
}

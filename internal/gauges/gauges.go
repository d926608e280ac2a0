// Package gauges is an optional, best-effort Redis side-channel Director
// uses to publish the live waiting-room and specialist-queue gauges to a
// hash on each monitor tick, so an external dashboard can read current
// occupancy without tailing the log file (spec.md's "live renderer"
// collaborator; this is a second, structured way to observe the same
// numbers the monitor line already carries).
//
// Grounded on internal/bus.Client's nil-safe optional-side-channel shape,
// wired to go-redis the way gridweaver/internal/config's RedisAddr slot
// and the VitalConnect3 backend both configure a Redis address without this
// pack actually exercising the client anywhere.
package gauges

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sorsim/edsim/internal/wire"
)

const hashKey = "sorsim:gauges"

// Client wraps a Redis connection. A nil *Client is valid and every method
// on it is a no-op, mirroring internal/bus.Client's nil-safety.
type Client struct {
	rdb *redis.Client
}

// Dial connects to addr. An empty addr means "no gauge publishing
// configured" and returns (nil, nil) rather than an error.
func Dial(addr string) (*Client, error) {
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("gauges: ping %s: %w", addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Publish writes the current occupancy and per-specialist queue depths to
// a Redis hash, overwriting the prior snapshot. No-op on a nil Client.
func (c *Client) Publish(ctx context.Context, m *wire.MetricsBlock, specialistQueueDepths [6]int) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	fields := map[string]interface{}{
		"insideWaitingRoom": m.WaitingRoomInside,
		"waitingRoomCap":    m.WaitingRoomCapacity,
		"wSem":              m.WaitingRoomSemValue,
	}
	for i, depth := range specialistQueueDepths {
		fields[fmt.Sprintf("specQueue%d", i)] = depth
	}
	return c.rdb.HSet(ctx, hashKey, fields).Err()
}

// Close closes the underlying connection. No-op on a nil Client.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

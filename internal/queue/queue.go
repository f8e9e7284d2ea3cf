package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/models"
)

// Redis keys
const (
	KeyWatchQueue    = "mychain:watch_queue"
	KeyWatched       = "mychain:watched"
	KeyInFlight      = "mychain:watch_inflight"
	KeySnapshots     = "mychain:snapshots"
	KeyWalletAddress = "mychain:wallet_address"
	KeyWalletKind    = "mychain:wallet_kind"
)

// Client wraps Redis operations for the address watch queue, the snapshot
// store and the persisted wallet session
type Client struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewClient creates a new Redis queue client
func NewClient(redisURL string, logger zerolog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_addr", opt.Addr).Msg("Connected to Redis successfully")

	return &Client{
		client: client,
		logger: logger.With().Str("component", "queue").Logger(),
	}, nil
}

// Watch adds an address to the watched set and schedules it at due
func (c *Client) Watch(ctx context.Context, addr string, due time.Time) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, KeyWatched, addr)
		pipe.ZAdd(ctx, KeyWatchQueue, redis.Z{Score: score(due), Member: addr})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch address: %w", err)
	}

	c.logger.Debug().Str("address", addr).Time("due", due).Msg("Watching address")
	return nil
}

// Unwatch stops polling an address and drops its snapshot. A poll already
// running for it finishes but is not rescheduled.
func (c *Client) Unwatch(ctx context.Context, addr string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, KeyWatched, addr)
		pipe.ZRem(ctx, KeyWatchQueue, addr)
		pipe.HDel(ctx, KeySnapshots, addr)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to unwatch address: %w", err)
	}

	c.logger.Debug().Str("address", addr).Msg("Unwatched address")
	return nil
}

// IsWatched reports whether addr is in the watched set
func (c *Client) IsWatched(ctx context.Context, addr string) (bool, error) {
	ok, err := c.client.SIsMember(ctx, KeyWatched, addr).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check watched address: %w", err)
	}
	return ok, nil
}

// Watched lists every watched address
func (c *Client) Watched(ctx context.Context) ([]string, error) {
	addrs, err := c.client.SMembers(ctx, KeyWatched).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list watched addresses: %w", err)
	}
	return addrs, nil
}

// PopDue claims the address with the lowest due time if it is due at now.
// It returns "" when nothing is due.
func (c *Client) PopDue(ctx context.Context, now time.Time) (string, error) {
	result, err := c.client.ZRangeArgs(ctx, redis.ZRangeArgs{
		Key:     KeyWatchQueue,
		Start:   "-inf",
		Stop:    strconv.FormatFloat(score(now), 'f', -1, 64),
		ByScore: true,
		Count:   1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read due addresses: %w", err)
	}
	if len(result) == 0 {
		return "", nil
	}

	addr := result[0]
	removed, err := c.client.ZRem(ctx, KeyWatchQueue, addr).Result()
	if err != nil {
		return "", fmt.Errorf("failed to claim address: %w", err)
	}
	if removed == 0 {
		// another worker claimed it first
		return "", nil
	}

	c.logger.Debug().Str("address", addr).Msg("Popped due address from queue")
	return addr, nil
}

// Reschedule pushes a polled address back with the given due time, unless it
// was unwatched in the meantime
func (c *Client) Reschedule(ctx context.Context, addr string, due time.Time) error {
	watched, err := c.IsWatched(ctx, addr)
	if err != nil {
		return err
	}
	if !watched {
		c.logger.Debug().Str("address", addr).Msg("Address no longer watched, not rescheduling")
		return nil
	}

	if err := c.client.ZAdd(ctx, KeyWatchQueue, redis.Z{Score: score(due), Member: addr}).Err(); err != nil {
		return fmt.Errorf("failed to reschedule address: %w", err)
	}
	return nil
}

// SetInFlight marks an address as being polled by a worker
func (c *Client) SetInFlight(ctx context.Context, addr, worker string) error {
	value := fmt.Sprintf("%s,%d", worker, time.Now().Unix())
	if err := c.client.HSet(ctx, KeyInFlight, addr, value).Err(); err != nil {
		return fmt.Errorf("failed to set address in-flight: %w", err)
	}
	return nil
}

// RemoveInFlight removes an address from the in-flight tracking
func (c *Client) RemoveInFlight(ctx context.Context, addr string) error {
	if err := c.client.HDel(ctx, KeyInFlight, addr).Err(); err != nil {
		return fmt.Errorf("failed to remove address from in-flight: %w", err)
	}
	return nil
}

// GetQueueLength returns the number of scheduled addresses
func (c *Client) GetQueueLength(ctx context.Context) (int64, error) {
	length, err := c.client.ZCard(ctx, KeyWatchQueue).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return length, nil
}

// GetInFlight returns the addresses currently being polled
func (c *Client) GetInFlight(ctx context.Context) (map[string]string, error) {
	result, err := c.client.HGetAll(ctx, KeyInFlight).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight addresses: %w", err)
	}
	return result, nil
}

// RequeueStuck moves addresses that have been in-flight longer than timeout
// back to the queue, due immediately
func (c *Client) RequeueStuck(ctx context.Context, timeout time.Duration) (int, error) {
	inFlight, err := c.GetInFlight(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	cutoff := now.Add(-timeout).Unix()
	requeued := 0

	for addr, value := range inFlight {
		worker, startedAt, err := parseInFlight(value)
		if err != nil {
			c.logger.Warn().Err(err).Str("address", addr).Str("value", value).Msg("Invalid in-flight value")
			continue
		}
		if startedAt >= cutoff {
			continue
		}

		if err := c.Reschedule(ctx, addr, now); err != nil {
			c.logger.Error().Err(err).Str("address", addr).Msg("Failed to requeue stuck address")
			continue
		}
		if err := c.RemoveInFlight(ctx, addr); err != nil {
			c.logger.Error().Err(err).Str("address", addr).Msg("Failed to remove requeued address from in-flight")
		}

		requeued++
		c.logger.Info().
			Str("address", addr).
			Str("worker", worker).
			Int64("stuck_seconds", now.Unix()-startedAt).
			Msg("Requeued stuck address")
	}

	return requeued, nil
}

// saveSnapshotScript writes the snapshot only while the address is still watched
var saveSnapshotScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
	redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// SaveSnapshot stores the latest snapshot of an address, replacing the previous one.
// Snapshots of addresses unwatched while their refresh was running are dropped.
func (c *Client) SaveSnapshot(ctx context.Context, snap models.PortfolioSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	stored, err := saveSnapshotScript.Run(ctx, c.client, []string{KeyWatched, KeySnapshots}, snap.Address, data).Int()
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	if stored == 0 {
		c.logger.Debug().Str("address", snap.Address).Msg("Dropped snapshot of unwatched address")
	}
	return nil
}

// Snapshot returns the latest snapshot of an address, or nil when there is none
func (c *Client) Snapshot(ctx context.Context, addr string) (*models.PortfolioSnapshot, error) {
	data, err := c.client.HGet(ctx, KeySnapshots, addr).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap models.PortfolioSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// SaveSession persists the connected wallet
func (c *Client) SaveSession(ctx context.Context, session models.Session) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, KeyWalletAddress, session.Address, 0)
		pipe.Set(ctx, KeyWalletKind, session.WalletKind, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Session restores the persisted wallet, or nil when no wallet was connected
func (c *Client) Session(ctx context.Context) (*models.Session, error) {
	values, err := c.client.MGet(ctx, KeyWalletAddress, KeyWalletKind).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	addr, _ := values[0].(string)
	if addr == "" {
		return nil, nil
	}
	kind, _ := values[1].(string)
	return &models.Session{Address: addr, WalletKind: kind}, nil
}

// ClearSession forgets the connected wallet
func (c *Client) ClearSession(ctx context.Context) error {
	if err := c.client.Del(ctx, KeyWalletAddress, KeyWalletKind).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// score is the sorted set score of a due time, in unix seconds
func score(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}

// parseInFlight splits the in-flight value format "worker,timestamp"
func parseInFlight(value string) (string, int64, error) {
	worker, ts, ok := strings.Cut(value, ",")
	if !ok {
		return "", 0, fmt.Errorf("missing timestamp")
	}
	startedAt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid timestamp: %w", err)
	}
	return worker, startedAt, nil
}

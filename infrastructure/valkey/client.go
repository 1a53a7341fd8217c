package valkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"
)

// DefaultConnectTimeout bounds the initial ping.
const DefaultConnectTimeout = 5 * time.Second

type Config struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string
	ConnectTimeout time.Duration
}

// Client wraps valkey-go with the key namespace of this deployment. It backs the
// expiring KV store and the cross-instance websocket fan-out.
type Client struct {
	inner     valkeylib.Client
	keyPrefix string
}

// NewClient connects and pings the server. The caller owns Close.
func NewClient(cfg Config) (*Client, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
		Password:    cfg.Password,
	}

	inner, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := inner.Do(ctx, inner.B().Ping().Build()).Error(); err != nil {
		inner.Close()
		return nil, fmt.Errorf("failed to ping valkey at %s: %w", cfg.Address, err)
	}

	return &Client{inner: inner, keyPrefix: normalizePrefix(cfg.KeyPrefix)}, nil
}

func normalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return prefix
}

func (c *Client) Inner() valkeylib.Client {
	return c.inner
}

func (c *Client) Close() {
	if c.inner != nil {
		c.inner.Close()
	}
}

// Key joins parts under the configured prefix, e.g. Key("kv", "job") -> "azsocial:kv:job".
func (c *Client) Key(parts ...string) string {
	if len(parts) == 0 {
		return strings.TrimSuffix(c.keyPrefix, ":")
	}
	return c.keyPrefix + strings.Join(parts, ":")
}

func (c *Client) Ping(ctx context.Context) error {
	return c.inner.Do(ctx, c.inner.B().Ping().Build()).Error()
}

// Publish sends payload on a pub/sub channel.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	cmd := c.inner.B().Publish().Channel(channel).Message(string(payload)).Build()
	return c.inner.Do(ctx, cmd).Error()
}

// Subscribe blocks delivering every message on channel to fn until ctx is done.
func (c *Client) Subscribe(ctx context.Context, channel string, fn func(payload []byte)) error {
	return c.inner.Receive(ctx, c.inner.B().Subscribe().Channel(channel).Build(), func(msg valkeylib.PubSubMessage) {
		fn([]byte(msg.Message))
	})
}

// IsNil reports whether err is a Valkey nil reply.
func IsNil(err error) bool {
	return valkeylib.IsValkeyNil(err)
}

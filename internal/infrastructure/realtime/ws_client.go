package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bimakw/nadfun-gateway/internal/domain/entities"
	"github.com/bimakw/nadfun-gateway/internal/infrastructure/ethereum"
)

// State is the connection state of the feed client
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// ErrMaxReconnectAttempts is returned by Run once the reconnect budget is spent
var ErrMaxReconnectAttempts = errors.New("max reconnect attempts reached")

// Conn is the subset of a websocket connection used by the client.
// *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens websocket connections
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GorillaDialer dials with gorilla/websocket
type GorillaDialer struct {
	HandshakeTimeout time.Duration
}

// Dial opens a websocket connection to url
func (d GorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Callbacks receive feed events. Nil callbacks are skipped.
// They run on the reader goroutine and must not block.
type Callbacks struct {
	OnStateChange func(State)
	OnBlock       func(entities.BlockHeader)
	OnLog         func(entities.FeedLog)
	OnError       func(error)
}

// ClientConfig configures the feed client
type ClientConfig struct {
	URL                  string
	Addresses            []string
	BaseReconnectDelay   time.Duration
	MaxReconnectAttempts int
	ReadTimeout          time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithDialer replaces the gorilla dialer
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithSleeper replaces the reconnect sleeper
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// Client subscribes to new heads and contract logs over a JSON-RPC websocket
type Client struct {
	config    ClientConfig
	callbacks Callbacks
	dialer    Dialer
	sleep     Sleeper
	logger    *zap.Logger

	mu    sync.RWMutex
	state State
	// subscription id -> "newHeads" | "logs"
	subs    map[string]string
	pending map[uint64]string

	reconnects atomic.Int64
}

// NewClient creates a feed client in the disconnected state
func NewClient(cfg ClientConfig, callbacks Callbacks, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		config:    cfg,
		callbacks: callbacks,
		dialer:    GorillaDialer{HandshakeTimeout: 10 * time.Second},
		sleep:     contextSleep,
		logger:    logger,
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current connection state
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Reconnects returns how many reconnects have been scheduled
func (c *Client) Reconnects() int64 {
	return c.reconnects.Load()
}

// ReconnectDelay returns the wait before the given reconnect attempt (1-based): base * 2^(attempt-1)
func ReconnectDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << uint(attempt-1)
}

// Run connects and streams events until ctx is cancelled or the reconnect budget is exhausted.
// The attempt counter resets only after a session that confirmed a subscription
// or delivered a notification.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	c.setState(StateConnecting)

	for {
		healthy, err := c.session(ctx)
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}
		if healthy {
			attempt = 0
		}

		c.reportError(err)

		attempt++
		if attempt > c.config.MaxReconnectAttempts {
			c.setState(StateDisconnected)
			return ErrMaxReconnectAttempts
		}

		c.setState(StateReconnecting)
		c.reconnects.Add(1)

		delay := ReconnectDelay(c.config.BaseReconnectDelay, attempt)
		c.logger.Info("Feed reconnecting",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)

		if err := c.sleep(ctx, delay); err != nil {
			c.setState(StateDisconnected)
			return err
		}
		c.setState(StateConnecting)
	}
}

// session dials, subscribes and reads until the connection fails.
// healthy reports whether the node confirmed a subscription or pushed a notification;
// a node that accepts the handshake and then drops us is not healthy.
func (c *Client) session(ctx context.Context) (healthy bool, err error) {
	conn, err := c.dialer.Dial(ctx, c.config.URL)
	if err != nil {
		return false, fmt.Errorf("feed dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := c.subscribe(conn); err != nil {
		return false, err
	}

	for {
		if c.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return healthy, fmt.Errorf("feed read: %w", err)
		}
		if c.handleMessage(message) && !healthy {
			healthy = true
			c.setState(StateConnected)
		}
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func (c *Client) subscribe(conn Conn) error {
	c.mu.Lock()
	c.subs = make(map[string]string)
	c.pending = map[uint64]string{1: "newHeads", 2: "logs"}
	c.mu.Unlock()

	heads := rpcRequest{JSONRPC: "2.0", ID: 1, Method: "eth_subscribe", Params: []interface{}{"newHeads"}}
	if err := conn.WriteJSON(heads); err != nil {
		return fmt.Errorf("subscribe newHeads: %w", err)
	}

	filter := map[string]interface{}{}
	if len(c.config.Addresses) > 0 {
		filter["address"] = c.config.Addresses
	}
	logs := rpcRequest{JSONRPC: "2.0", ID: 2, Method: "eth_subscribe", Params: []interface{}{"logs", filter}}
	if err := conn.WriteJSON(logs); err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}

	return nil
}

type rpcMessage struct {
	ID     *uint64         `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Method string `json:"method"`
	Params *struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type rpcHeader struct {
	Number    hexutil.Uint64 `json:"number"`
	Hash      common.Hash    `json:"hash"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

type rpcLog struct {
	Address     common.Address `json:"address"`
	Topics      []common.Hash  `json:"topics"`
	Data        hexutil.Bytes  `json:"data"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	TxHash      common.Hash    `json:"transactionHash"`
	Index       hexutil.Uint   `json:"logIndex"`
	Removed     bool           `json:"removed"`
}

// handleMessage dispatches one frame and reports whether it proves the
// subscription is live
func (c *Client) handleMessage(message []byte) bool {
	var msg rpcMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.reportError(fmt.Errorf("feed decode: %w", err))
		return false
	}

	if msg.ID != nil {
		return c.handleResponse(*msg.ID, msg)
	}

	if msg.Method != "eth_subscription" || msg.Params == nil {
		return false
	}

	c.mu.RLock()
	kind := c.subs[msg.Params.Subscription]
	c.mu.RUnlock()

	if kind == "" {
		kind = guessKind(msg.Params.Result)
	}

	switch kind {
	case "newHeads":
		var h rpcHeader
		if err := json.Unmarshal(msg.Params.Result, &h); err != nil {
			c.reportError(fmt.Errorf("feed header: %w", err))
			return true
		}
		if c.callbacks.OnBlock != nil {
			c.callbacks.OnBlock(entities.BlockHeader{
				Number:    uint64(h.Number),
				Hash:      h.Hash.Hex(),
				Timestamp: time.Unix(int64(h.Timestamp), 0).UTC(),
			})
		}
	case "logs":
		var l rpcLog
		if err := json.Unmarshal(msg.Params.Result, &l); err != nil {
			c.reportError(fmt.Errorf("feed log: %w", err))
			return true
		}
		if l.Removed {
			return true
		}
		if c.callbacks.OnLog != nil {
			c.callbacks.OnLog(ethereum.ClassifyLog(types.Log{
				Address:     l.Address,
				Topics:      l.Topics,
				Data:        l.Data,
				BlockNumber: uint64(l.BlockNumber),
				TxHash:      l.TxHash,
				Index:       uint(l.Index),
			}))
		}
	}
	return true
}

func (c *Client) handleResponse(id uint64, msg rpcMessage) bool {
	c.mu.Lock()
	kind, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if !ok {
		return false
	}

	if msg.Error != nil {
		c.reportError(fmt.Errorf("subscribe %s: %s", kind, msg.Error.Message))
		return false
	}

	var subID string
	if err := json.Unmarshal(msg.Result, &subID); err != nil {
		c.reportError(fmt.Errorf("subscribe %s: %w", kind, err))
		return false
	}

	c.mu.Lock()
	c.subs[subID] = kind
	c.mu.Unlock()
	return true
}

// guessKind identifies a notification whose subscription id was never confirmed
func guessKind(result json.RawMessage) string {
	if strings.Contains(string(result), `"topics"`) {
		return "logs"
	}
	return "newHeads"
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	changed := c.state != state
	c.state = state
	c.mu.Unlock()

	if changed && c.callbacks.OnStateChange != nil {
		c.callbacks.OnStateChange(state)
	}
}

func (c *Client) reportError(err error) {
	if err == nil {
		return
	}
	c.logger.Warn("Feed error", zap.Error(err))
	if c.callbacks.OnError != nil {
		c.callbacks.OnError(err)
	}
}

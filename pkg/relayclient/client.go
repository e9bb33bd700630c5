// Package relayclient implements the client-side contract of the purchase
// chat relay: connect, send, and reconnect after unexpected transport
// closure. The manager never replays missed messages itself; callers fetch
// history through the relay's HTTP read path from OnConnect.
package relayclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/log"
)

// DefaultRetryInterval is the reference reconnect delay.
const DefaultRetryInterval = 3 * time.Second

// Config configures a relay client.
type Config struct {
	// URL is the client-facing relay websocket URL, e.g. ws://host:3001/ws.
	URL string

	PurchaseID string
	Role       string
	Sender     string

	// RetryInterval is the delay before a reconnect attempt. Defaults to
	// DefaultRetryInterval.
	RetryInterval time.Duration

	// MaxInterval, when positive, enables bounded exponential backoff
	// starting at RetryInterval and capped at MaxInterval. Zero keeps the
	// reference fixed-interval behavior.
	MaxInterval time.Duration

	// OnConnect fires after every successful (re)connect. Reconcile missed
	// history here.
	OnConnect func(ctx context.Context)

	// OnMessage receives relayed chat messages.
	OnMessage func(frame domain.MessageOutFrame)

	// OnReadReceipt receives read acknowledgements from peers.
	OnReadReceipt func(frame domain.ReadReceiptFrame)
}

type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type dialFunc func(ctx context.Context, rawURL string) (wsConn, error)

// Client maintains one relay connection and retries indefinitely on loss.
type Client struct {
	cfg  Config
	dial dialFunc

	mu   sync.Mutex
	conn wsConn
}

// New creates a relay client using the gorilla websocket dialer.
func New(cfg Config) *Client {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	return &Client{
		cfg: cfg,
		dial: func(ctx context.Context, rawURL string) (wsConn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
			return conn, err
		},
	}
}

// Run connects and serves the connection until ctx is cancelled. On any
// transport closure it waits the retry interval and dials again; there is no
// retry cap.
func (c *Client) Run(ctx context.Context) error {
	target, err := c.connectURL()
	if err != nil {
		return err
	}

	interval := c.cfg.RetryInterval
	for {
		conn, err := c.dial(ctx, target)
		if err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldPurchaseID, c.cfg.PurchaseID).Msg("relay dial failed")
			if werr := c.wait(ctx, interval); werr != nil {
				return werr
			}
			interval = c.nextInterval(interval)
			continue
		}
		interval = c.cfg.RetryInterval

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		if c.cfg.OnConnect != nil {
			c.cfg.OnConnect(ctx)
		}

		// Cancellation must unblock the read loop.
		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-stop:
			}
		}()

		c.readLoop(ctx, conn)
		close(stop)
		conn.Close()

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if werr := c.wait(ctx, interval); werr != nil {
			return werr
		}
		interval = c.nextInterval(interval)
	}
}

// Send writes one chat message over the live connection.
func (c *Client) Send(content string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	frame := domain.MessageFrame{
		Type:    domain.FrameTypeMessage,
		Role:    c.cfg.Role,
		Sender:  c.cfg.Sender,
		Content: content,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// MarkRead acknowledges every peer message up to upTo.
func (c *Client) MarkRead(upTo time.Time) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	frame := domain.MarkReadFrame{
		Type: domain.FrameTypeMarkRead,
		UpTo: upTo,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop(ctx context.Context, conn wsConn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var base domain.BaseFrame
		if err := json.Unmarshal(raw, &base); err != nil {
			continue
		}

		switch base.Type {
		case domain.FrameTypeMessage:
			if c.cfg.OnMessage == nil {
				continue
			}
			var frame domain.MessageOutFrame
			if err := json.Unmarshal(raw, &frame); err == nil {
				c.cfg.OnMessage(frame)
			}

		case domain.FrameTypeReadReceipt:
			if c.cfg.OnReadReceipt == nil {
				continue
			}
			var frame domain.ReadReceiptFrame
			if err := json.Unmarshal(raw, &frame); err == nil {
				c.cfg.OnReadReceipt(frame)
			}

		case domain.FrameTypeError:
			var frame domain.ErrorFrame
			if err := json.Unmarshal(raw, &frame); err == nil {
				l := log.L()
				l.Warn().Str("code", frame.Code).Str("reason", frame.Message).Msg("relay reported error")
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// nextInterval grows the delay only when bounded backoff is enabled.
func (c *Client) nextInterval(current time.Duration) time.Duration {
	if c.cfg.MaxInterval <= 0 {
		return c.cfg.RetryInterval
	}
	next := current * 2
	if next > c.cfg.MaxInterval {
		next = c.cfg.MaxInterval
	}
	return next
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) connectURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("invalid relay url: %w", err)
	}
	q := u.Query()
	q.Set("purchase_id", c.cfg.PurchaseID)
	q.Set("role", c.cfg.Role)
	q.Set("sender", c.cfg.Sender)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

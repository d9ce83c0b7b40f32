package radar

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solana-survival-agent/internal/observability"
)

// DefaultURL is the PumpPortal data stream.
const DefaultURL = "wss://pumpportal.fun/api/data"

// FeedConfig configures the stream connection.
type FeedConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential reconnect delay.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval between ping frames.
	PingInterval time.Duration
	// ReadTimeout bounds the wait for the next message.
	ReadTimeout time.Duration
	// WriteTimeout bounds each write.
	WriteTimeout time.Duration
}

// DefaultFeedConfig returns the default stream configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// NewToken is a token creation event.
type NewToken struct {
	Mint            string  `json:"mint"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	TxType          string  `json:"txType"`
	Signature       string  `json:"signature"`
	TraderPublicKey string  `json:"traderPublicKey"`
	MarketCapSol    float64 `json:"marketCapSol"`
}

// Feed streams token creation events, reconnecting with exponential delay.
type Feed struct {
	url    string
	config FeedConfig
	logger zerolog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewFeed creates a Feed. A nil config uses DefaultFeedConfig.
func NewFeed(url string, config *FeedConfig, logger zerolog.Logger) *Feed {
	cfg := DefaultFeedConfig()
	if config != nil {
		cfg = *config
	}
	if url == "" {
		url = DefaultURL
	}
	return &Feed{url: url, config: cfg, logger: logger}
}

// Run connects, subscribes and calls handle for every event until ctx is done.
// Connection failures are retried forever with exponential delay; the delay
// resets after a successful read.
func (f *Feed) Run(ctx context.Context, handle func(NewToken)) error {
	delay := f.config.ReconnectDelay
	for {
		received, err := f.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if received {
			delay = f.config.ReconnectDelay
		}
		observability.RecordRadarReconnect()
		f.logger.Warn().Err(err).Dur("retry_in", delay).Msg("radar stream disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > f.config.MaxReconnectDelay {
			delay = f.config.MaxReconnectDelay
		}
	}
}

// session runs one connection. It reports whether any message was read.
func (f *Feed) session(ctx context.Context, handle func(NewToken)) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	done := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(done)
		f.connMu.Lock()
		f.conn.Close()
		f.conn = nil
		f.connMu.Unlock()
		wg.Wait()
	}()

	if err := f.write(map[string]string{"method": "subscribeNewToken"}); err != nil {
		return false, fmt.Errorf("write subscribe: %w", err)
	}

	// Unblocks ReadMessage on shutdown.
	wg.Add(2)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer wg.Done()
		f.pingLoop(done)
	}()

	received := false
	for {
		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return received, err
		}
		received = true

		var tok NewToken
		if err := json.Unmarshal(message, &tok); err != nil || tok.Mint == "" {
			// Subscription acknowledgements carry no mint.
			continue
		}
		handle(tok)
	}
}

func (f *Feed) write(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
	return f.conn.WriteJSON(v)
}

func (f *Feed) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				// A dead connection surfaces on the next read.
				_ = f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}

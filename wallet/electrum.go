package wallet

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ElectrumTransport selects how ElectrumClient reaches a server.
type ElectrumTransport int

const (
	// TransportTCP is a plaintext TCP connection.
	TransportTCP ElectrumTransport = iota
	// TransportTLS is a TLS-wrapped TCP connection.
	TransportTLS
	// TransportWebSocket is a WebSocket connection. The configured Address
	// is dialed as a full ws:// or wss:// URL; no scheme is added to it.
	TransportWebSocket
)

// connState is the client's lazy-connect state machine.
type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateClosed
)

// ErrConnectionClosed is returned by any call made after Close.
var ErrConnectionClosed = errors.New("wallet: electrum connection closed")

// ErrTimeout is returned when a request exceeds its deadline.
var ErrTimeout = errors.New("wallet: electrum request timed out")

// ElectrumError wraps a JSON-RPC error object returned by the server.
type ElectrumError struct {
	Code    int
	Message string
}

func (e *ElectrumError) Error() string {
	return fmt.Sprintf("wallet: electrum error %d: %s", e.Code, e.Message)
}

// ElectrumClientConfig configures connection and keep-alive behavior.
type ElectrumClientConfig struct {
	Address        string
	Transport      ElectrumTransport
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	PingInterval   time.Duration
	MaxRetry       int
	RetryPeriod    time.Duration
	Logger         *log.Logger
}

func (c ElectrumClientConfig) withDefaults() ElectrumClientConfig {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 15 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 120 * time.Second
	}
	if c.RetryPeriod == 0 {
		c.RetryPeriod = 1 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

type rpcResponse struct {
	Result json.RawMessage
	Err    *ElectrumError
}

// ElectrumClient is a lazily-connected, reconnectable client for the
// Electrum server protocol: line-delimited JSON-RPC 2.0 over TCP, TLS or
// WebSocket, with request multiplexing and a keep-alive ping loop.
type ElectrumClient struct {
	cfg ElectrumClientConfig

	mu    sync.Mutex
	state int32

	conn   net.Conn
	reader *bufio.Reader
	ws     *websocket.Conn

	requestID atomic.Uint64
	pendingMu sync.Mutex
	pending   map[uint64]chan rpcResponse

	stopPing chan struct{}
}

// NewElectrumClient returns a client that does not connect until its first
// call.
func NewElectrumClient(cfg ElectrumClientConfig) *ElectrumClient {
	cfg = cfg.withDefaults()
	return &ElectrumClient{
		cfg:     cfg,
		state:   int32(stateDisconnected),
		pending: make(map[uint64]chan rpcResponse),
	}
}

func (c *ElectrumClient) getState() connState {
	return connState(atomic.LoadInt32(&c.state))
}

func (c *ElectrumClient) setState(s connState) {
	atomic.StoreInt32(&c.state, int32(s))
}

// Connect dials the server and performs the server.version handshake, if
// not already connected. Safe to call repeatedly; a no-op once connected.
func (c *ElectrumClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getState() == stateConnected {
		return nil
	}
	if c.getState() == stateClosed {
		return ErrConnectionClosed
	}
	c.setState(stateConnecting)

	var lastErr error
	attempts := c.cfg.MaxRetry + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.cfg.RetryPeriod):
			case <-ctx.Done():
				c.setState(stateDisconnected)
				return ctx.Err()
			}
		}

		if err := c.dial(ctx); err != nil {
			c.cfg.Logger.Printf("electrum: dial attempt %d/%d failed: %v", attempt+1, attempts, err)
			lastErr = err
			continue
		}

		go c.readLoop()

		if _, err := c.callLocked(ctx, "server.version", []interface{}{"btchdwallet", "1.4"}); err != nil {
			c.cfg.Logger.Printf("electrum: handshake attempt %d/%d failed: %v", attempt+1, attempts, err)
			c.teardownLocked()
			lastErr = err
			continue
		}

		lastErr = nil
		break
	}
	if lastErr != nil {
		c.setState(stateDisconnected)
		return lastErr
	}

	c.setState(stateConnected)
	c.stopPing = make(chan struct{})
	go c.pingLoop(c.stopPing)
	return nil
}

func (c *ElectrumClient) dial(ctx context.Context) error {
	dialer := &net.Dialer{Timeout: c.cfg.ConnectTimeout}

	switch c.cfg.Transport {
	case TransportWebSocket:
		wsDialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
		conn, _, err := wsDialer.DialContext(ctx, c.cfg.Address, nil)
		if err != nil {
			return err
		}
		c.ws = conn
		return nil
	case TransportTLS:
		conn, err := tls.DialWithDialer(dialer, "tcp", c.cfg.Address, &tls.Config{MinVersion: tls.VersionTLS12})
		if err != nil {
			return err
		}
		c.conn = conn
		c.reader = bufio.NewReader(conn)
		return nil
	default:
		conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
		if err != nil {
			return err
		}
		c.conn = conn
		c.reader = bufio.NewReader(conn)
		return nil
	}
}

// Close terminates the connection. Safe to call more than once.
func (c *ElectrumClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getState() == stateClosed {
		return nil
	}
	c.teardownLocked()
	c.setState(stateClosed)
	return nil
}

func (c *ElectrumClient) teardownLocked() {
	if c.stopPing != nil {
		close(c.stopPing)
		c.stopPing = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
}

// IsConnected reports whether the client currently holds a live connection.
func (c *ElectrumClient) IsConnected() bool {
	return c.getState() == stateConnected
}

func (c *ElectrumClient) pingLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
			_, _ = c.Call(ctx, "server.ping", []interface{}{})
			cancel()
		}
	}
}

func (c *ElectrumClient) readLoop() {
	for {
		var line []byte
		var err error
		if c.ws != nil {
			_, line, err = c.ws.ReadMessage()
		} else {
			line, err = c.reader.ReadBytes('\n')
		}
		if err != nil {
			c.cfg.Logger.Printf("electrum: read loop ended: %v", err)
			c.failAllPending(err)
			return
		}

		var resp struct {
			ID     uint64          `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  *struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()
		if !ok {
			continue
		}

		if resp.Error != nil {
			ch <- rpcResponse{Err: &ElectrumError{Code: resp.Error.Code, Message: resp.Error.Message}}
		} else {
			ch <- rpcResponse{Result: resp.Result}
		}
	}
}

func (c *ElectrumClient) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- rpcResponse{Err: &ElectrumError{Code: -1, Message: err.Error()}}
		delete(c.pending, id)
	}
}

// Call issues an RPC request, connecting first if necessary, and returns
// the raw JSON result.
func (c *ElectrumClient) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.callLocked(ctx, method, params)
}

// callLocked sends a request and waits for its matching response. It does
// not itself lock c.mu, so Connect can call it during the handshake.
func (c *ElectrumClient) callLocked(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := c.requestID.Add(1)
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	if c.ws != nil {
		err = c.ws.WriteMessage(websocket.TextMessage, data)
	} else {
		c.conn.SetWriteDeadline(time.Now().Add(c.cfg.RequestTimeout))
		_, err = c.conn.Write(append(data, '\n'))
	}
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, err
	}

	timeout := c.cfg.RequestTimeout
	select {
	case resp := <-ch:
		if resp.Err != nil {
			return nil, resp.Err
		}
		return resp.Result, nil
	case <-time.After(timeout):
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, ErrTimeout
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}

// ScriptHash computes an Electrum scripthash: reversed-byte-order SHA256
// of the output script, hex-encoded.
func ScriptHash(script []byte) string {
	h := Sha256(script)
	reversed := make([]byte, len(h))
	for i, b := range h {
		reversed[len(h)-1-i] = b
	}
	return hex.EncodeToString(reversed)
}

// GetBalance calls blockchain.scripthash.get_balance for an address.
func (c *ElectrumClient) GetBalance(ctx context.Context, scriptHash string) (confirmed, unconfirmed int64, err error) {
	raw, err := c.Call(ctx, "blockchain.scripthash.get_balance", []interface{}{scriptHash})
	if err != nil {
		return 0, 0, err
	}
	var out struct {
		Confirmed   int64 `json:"confirmed"`
		Unconfirmed int64 `json:"unconfirmed"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, 0, err
	}
	return out.Confirmed, out.Unconfirmed, nil
}

// ElectrumUTXO is one entry of blockchain.scripthash.listunspent.
type ElectrumUTXO struct {
	TxHash string `json:"tx_hash"`
	TxPos  uint32 `json:"tx_pos"`
	Height int64  `json:"height"`
	Value  int64  `json:"value"`
}

// ListUnspent calls blockchain.scripthash.listunspent for an address.
func (c *ElectrumClient) ListUnspent(ctx context.Context, scriptHash string) ([]ElectrumUTXO, error) {
	raw, err := c.Call(ctx, "blockchain.scripthash.listunspent", []interface{}{scriptHash})
	if err != nil {
		return nil, err
	}
	var out []ElectrumUTXO
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ElectrumHistoryEntry is one entry of blockchain.scripthash.get_history.
type ElectrumHistoryEntry struct {
	TxHash string `json:"tx_hash"`
	Height int64  `json:"height"`
}

// GetHistory calls blockchain.scripthash.get_history for an address.
func (c *ElectrumClient) GetHistory(ctx context.Context, scriptHash string) ([]ElectrumHistoryEntry, error) {
	raw, err := c.Call(ctx, "blockchain.scripthash.get_history", []interface{}{scriptHash})
	if err != nil {
		return nil, err
	}
	var out []ElectrumHistoryEntry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction calls blockchain.transaction.get, returning the raw hex.
func (c *ElectrumClient) GetTransaction(ctx context.Context, txHash string) (string, error) {
	raw, err := c.Call(ctx, "blockchain.transaction.get", []interface{}{txHash})
	if err != nil {
		return "", err
	}
	var hexStr string
	if err := json.Unmarshal(raw, &hexStr); err != nil {
		return "", err
	}
	return hexStr, nil
}

// BroadcastTransaction calls blockchain.transaction.broadcast, returning
// the resulting txid.
func (c *ElectrumClient) BroadcastTransaction(ctx context.Context, rawTxHex string) (string, error) {
	raw, err := c.Call(ctx, "blockchain.transaction.broadcast", []interface{}{rawTxHex})
	if err != nil {
		return "", err
	}
	var txid string
	if err := json.Unmarshal(raw, &txid); err != nil {
		return "", err
	}
	return txid, nil
}

// EstimateFee calls blockchain.estimatefee for the given confirmation
// target (in blocks), returning a fee rate in BTC/kB as reported by the
// server (-1 if the server cannot estimate).
func (c *ElectrumClient) EstimateFee(ctx context.Context, targetBlocks int) (float64, error) {
	raw, err := c.Call(ctx, "blockchain.estimatefee", []interface{}{targetBlocks})
	if err != nil {
		return 0, err
	}
	var rate float64
	if err := json.Unmarshal(raw, &rate); err != nil {
		return 0, err
	}
	return rate, nil
}

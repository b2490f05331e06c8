package btchdwallet

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"

	"github.com/opd-ai/btchdwallet/wallet"
)

// fakeElectrumServer is a minimal line-delimited JSON-RPC 2.0 server
// speaking just enough of the Electrum protocol (the server.version/
// server.ping handshake plus whatever methods a test registers) to drive
// Account against a real wallet.ElectrumClient without a network.
type fakeElectrumServer struct {
	t        *testing.T
	ln       net.Listener
	handlers map[string]func(params []interface{}) (interface{}, *wallet.ElectrumError)
}

// newFakeElectrumServer starts a server on an ephemeral loopback port and
// returns its address. It is torn down automatically via t.Cleanup.
func newFakeElectrumServer(t *testing.T, handlers map[string]func(params []interface{}) (interface{}, *wallet.ElectrumError)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	srv := &fakeElectrumServer{t: t, ln: ln, handlers: handlers}
	go srv.serve()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func (s *fakeElectrumServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *fakeElectrumServer) handleConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var req struct {
			ID     uint64        `json:"id"`
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}

		if req.Method == "server.version" || req.Method == "server.ping" {
			s.writeResult(conn, req.ID, []string{"fake-electrum", "1.4"})
			continue
		}

		handler, ok := s.handlers[req.Method]
		if !ok {
			s.writeError(conn, req.ID, 1, "fakeElectrumServer: no handler for "+req.Method)
			continue
		}
		result, rerr := handler(req.Params)
		if rerr != nil {
			s.writeError(conn, req.ID, rerr.Code, rerr.Message)
			continue
		}
		s.writeResult(conn, req.ID, result)
	}
}

func (s *fakeElectrumServer) writeResult(conn net.Conn, id uint64, result interface{}) {
	data, err := json.Marshal(map[string]interface{}{"id": id, "result": result})
	if err != nil {
		s.t.Errorf("fakeElectrumServer: marshal result: %v", err)
		return
	}
	conn.Write(append(data, '\n'))
}

func (s *fakeElectrumServer) writeError(conn net.Conn, id uint64, code int, message string) {
	data, err := json.Marshal(map[string]interface{}{
		"id":    id,
		"error": map[string]interface{}{"code": code, "message": message},
	})
	if err != nil {
		s.t.Errorf("fakeElectrumServer: marshal error: %v", err)
		return
	}
	conn.Write(append(data, '\n'))
}

// testAccountWithServer binds signer to a fresh Account talking to a fake
// Electrum server at addr.
func testAccountWithServer(t *testing.T, addr string, signer wallet.Signer) *Account {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Client = wallet.NewElectrumClient(wallet.ElectrumClientConfig{Address: addr})
	acct, err := NewAccount(signer, cfg)
	if err != nil {
		t.Fatalf("NewAccount() error = %v", err)
	}
	return acct
}

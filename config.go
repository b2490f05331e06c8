package btchdwallet

import (
	"log"
	"strconv"
	"time"

	"github.com/opd-ai/btchdwallet/wallet"
)

// Protocol selects the Electrum transport.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolTLS Protocol = "tls"
	ProtocolSSL Protocol = "ssl" // alias for tls, accepted for server-list compatibility
	ProtocolWS  Protocol = "ws"
)

// ElectrumServerConfig dials a server by host/port/protocol rather than an
// injected client instance.
type ElectrumServerConfig struct {
	Host     string
	Port     int
	Protocol Protocol
}

// Config configures a wallet Account: which network and BIP purpose to
// derive under, and how to reach an Electrum server.
type Config struct {
	Network Network
	BIP     uint32 // 44 or 84

	// Client, if set, is used as-is and ElectrumServer/timeouts are
	// ignored. Otherwise a client is built from ElectrumServer.
	Client *wallet.ElectrumClient

	ElectrumServer ElectrumServerConfig

	TimeoutMS     int
	MaxRetry      int
	RetryPeriodMS int
	PingPeriodMS  int

	// Logger receives connection and fee-estimate diagnostics. Defaults to
	// log.Default() if left nil.
	Logger *log.Logger
}

// Network mirrors wallet.Network at the façade layer so callers of this
// package never need to import the wallet subpackage for basic usage.
type Network = wallet.Network

const (
	Mainnet = wallet.Mainnet
	Testnet = wallet.Testnet
	Regtest = wallet.Regtest
)

// DefaultConfig returns the documented defaults: mainnet, BIP-84,
// electrum.blockstream.info:50001 over plain TCP.
func DefaultConfig() Config {
	return Config{
		Network: Mainnet,
		BIP:     wallet.PurposeBIP84,
		ElectrumServer: ElectrumServerConfig{
			Host:     "electrum.blockstream.info",
			Port:     50001,
			Protocol: ProtocolTCP,
		},
		TimeoutMS:     15000,
		MaxRetry:      2,
		RetryPeriodMS: 1000,
		PingPeriodMS:  120000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.BIP == 0 {
		c.BIP = def.BIP
	}
	if c.ElectrumServer.Host == "" && c.Client == nil {
		c.ElectrumServer = def.ElectrumServer
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = def.TimeoutMS
	}
	if c.RetryPeriodMS == 0 {
		c.RetryPeriodMS = def.RetryPeriodMS
	}
	if c.PingPeriodMS == 0 {
		c.PingPeriodMS = def.PingPeriodMS
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

func (c Config) buildClient() *wallet.ElectrumClient {
	if c.Client != nil {
		return c.Client
	}
	var transport wallet.ElectrumTransport
	switch c.ElectrumServer.Protocol {
	case ProtocolTLS, ProtocolSSL:
		transport = wallet.TransportTLS
	case ProtocolWS:
		transport = wallet.TransportWebSocket
	default:
		transport = wallet.TransportTCP
	}
	addr := c.ElectrumServer.Host
	if c.ElectrumServer.Protocol != ProtocolWS {
		addr = hostPort(c.ElectrumServer.Host, c.ElectrumServer.Port)
	}
	return wallet.NewElectrumClient(wallet.ElectrumClientConfig{
		Address:        addr,
		Transport:      transport,
		ConnectTimeout: time.Duration(c.TimeoutMS) * time.Millisecond,
		RequestTimeout: time.Duration(c.TimeoutMS) * time.Millisecond,
		PingInterval:   time.Duration(c.PingPeriodMS) * time.Millisecond,
		MaxRetry:       c.MaxRetry,
		RetryPeriod:    time.Duration(c.RetryPeriodMS) * time.Millisecond,
		Logger:         c.Logger,
	})
}

func hostPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

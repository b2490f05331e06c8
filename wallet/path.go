package wallet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// HardenedOffset is the child index at and above which derivation is
// hardened (BIP-32's high bit, 2^31).
const HardenedOffset uint32 = 0x80000000

// BIP purpose values this module supports.
const (
	PurposeBIP44 uint32 = 44 // P2PKH
	PurposeBIP84 uint32 = 84 // P2WPKH
)

// Network selects the chain parameters (version bytes, HRP, coin type)
// addresses and extended keys are encoded for.
type Network int

const (
	// Mainnet is Bitcoin mainnet.
	Mainnet Network = iota
	// Testnet is Bitcoin testnet3.
	Testnet
	// Regtest is a local regression-test network.
	Regtest
)

// String implements fmt.Stringer.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "bitcoin"
	case Testnet:
		return "testnet"
	case Regtest:
		return "regtest"
	default:
		return "unknown"
	}
}

// CoinType returns the SLIP-44 coin type for this network (0' on mainnet,
// 1' on testnet/regtest).
func (n Network) CoinType() uint32 {
	if n == Mainnet {
		return 0
	}
	return 1
}

// ErrInvalidPath is returned when a derivation path string is malformed.
var ErrInvalidPath = errors.New("wallet: invalid derivation path")

// Path is an ordered sequence of BIP-32 child indices, each already
// encoding hardened-ness in its high bit.
type Path []uint32

// AccountPath returns the canonical m/purpose'/coin_type'/account'/change/index
// path for the given BIP purpose, network, account and address index.
func AccountPath(purpose uint32, network Network, account, change, index uint32) Path {
	return Path{
		purpose | HardenedOffset,
		network.CoinType() | HardenedOffset,
		account | HardenedOffset,
		change,
		index,
	}
}

// String renders the path in canonical m/44'/0'/0'/0/0 form.
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("m")
	for _, idx := range p {
		sb.WriteString("/")
		if idx&HardenedOffset != 0 {
			sb.WriteString(strconv.FormatUint(uint64(idx&^HardenedOffset), 10))
			sb.WriteString("'")
		} else {
			sb.WriteString(strconv.FormatUint(uint64(idx), 10))
		}
	}
	return sb.String()
}

// ParsePath parses a canonical "m/44'/0'/0'/0/0" derivation path string.
// Both "'" and "h"/"H" hardened markers are accepted.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with \"m\"", ErrInvalidPath, s)
	}

	path := make(Path, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if part == "" {
			return nil, fmt.Errorf("%w: empty path segment in %q", ErrInvalidPath, s)
		}
		hardened := false
		switch part[len(part)-1] {
		case '\'', 'h', 'H':
			hardened = true
			part = part[:len(part)-1]
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q: %v", ErrInvalidPath, part, err)
		}
		if n >= uint64(HardenedOffset) {
			return nil, fmt.Errorf("%w: segment %q out of range", ErrInvalidPath, part)
		}
		idx := uint32(n)
		if hardened {
			idx |= HardenedOffset
		}
		path = append(path, idx)
	}
	return path, nil
}

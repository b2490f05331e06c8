package wallet

import (
	"errors"
)

// ErrInvalidAddress is returned when an address string fails to decode
// under any known encoding for the given network.
var ErrInvalidAddress = errors.New("wallet: invalid address")

// AddressKind distinguishes the output script types this module produces.
type AddressKind int

const (
	// P2PKH is a legacy pay-to-pubkey-hash address (BIP-44).
	P2PKH AddressKind = iota
	// P2WPKH is a native segwit pay-to-witness-pubkey-hash address (BIP-84).
	P2WPKH
)

// DustLimit is the minimum output value (in satoshis) this module will
// construct for the given address kind; smaller outputs are uneconomical
// to spend given typical input costs.
func DustLimit(kind AddressKind) int64 {
	switch kind {
	case P2WPKH:
		return 294
	default:
		return 546
	}
}

func p2pkhVersion(network Network) byte {
	if network == Mainnet {
		return 0x00
	}
	return 0x6F
}

func bech32HRP(network Network) string {
	switch network {
	case Mainnet:
		return "bc"
	case Testnet:
		return "tb"
	default:
		return "bcrt"
	}
}

// EncodeP2PKH returns the Base58Check legacy address for a 20-byte pubkey
// hash (HASH160 of a compressed public key).
func EncodeP2PKH(pubKeyHash []byte, network Network) (string, error) {
	if len(pubKeyHash) != 20 {
		return "", ErrInvalidAddress
	}
	payload := make([]byte, 0, 21)
	payload = append(payload, p2pkhVersion(network))
	payload = append(payload, pubKeyHash...)
	return Base58CheckEncode(payload), nil
}

// EncodeP2WPKH returns the bech32 native-segwit address for a 20-byte
// pubkey hash.
func EncodeP2WPKH(pubKeyHash []byte, network Network) (string, error) {
	if len(pubKeyHash) != 20 {
		return "", ErrInvalidAddress
	}
	return Bech32EncodeSegwit(bech32HRP(network), 0, pubKeyHash)
}

// AddressForPubKey derives the address of the requested kind for a
// compressed public key.
func AddressForPubKey(pubCompressed []byte, kind AddressKind, network Network) (string, error) {
	hash := Hash160(pubCompressed)
	switch kind {
	case P2WPKH:
		return EncodeP2WPKH(hash, network)
	default:
		return EncodeP2PKH(hash, network)
	}
}

// DecodeAddress parses an address string, returning its kind, network and
// 20-byte pubkey hash / witness program.
func DecodeAddress(address string) (kind AddressKind, network Network, hash []byte, err error) {
	if hrp, version, program, berr := Bech32DecodeSegwit(address); berr == nil {
		if version != 0 || len(program) != 20 {
			return 0, 0, nil, ErrInvalidAddress
		}
		switch hrp {
		case "bc":
			return P2WPKH, Mainnet, program, nil
		case "tb":
			return P2WPKH, Testnet, program, nil
		case "bcrt":
			return P2WPKH, Regtest, program, nil
		default:
			return 0, 0, nil, ErrInvalidAddress
		}
	}

	payload, berr := Base58CheckDecode(address)
	if berr != nil || len(payload) != 21 {
		return 0, 0, nil, ErrInvalidAddress
	}
	switch payload[0] {
	case 0x00:
		return P2PKH, Mainnet, payload[1:], nil
	case 0x6F:
		return P2PKH, Testnet, payload[1:], nil
	default:
		return 0, 0, nil, ErrInvalidAddress
	}
}

// ScriptPubKeyFor returns the output script for an address's kind and
// pubkey hash: OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG for
// P2PKH, OP_0 <hash> for P2WPKH.
func ScriptPubKeyFor(kind AddressKind, hash []byte) ([]byte, error) {
	if len(hash) != 20 {
		return nil, ErrInvalidAddress
	}
	switch kind {
	case P2WPKH:
		script := make([]byte, 0, 22)
		script = append(script, 0x00, 0x14)
		script = append(script, hash...)
		return script, nil
	default:
		script := make([]byte, 0, 25)
		script = append(script, 0x76, 0xa9, 0x14)
		script = append(script, hash...)
		script = append(script, 0x88, 0xac)
		return script, nil
	}
}

// IsValidAddress reports whether address decodes successfully under any
// known encoding.
func IsValidAddress(address string) bool {
	_, _, _, err := DecodeAddress(address)
	return err == nil
}

// AddressFromScript recognizes a P2PKH or P2WPKH output script and encodes
// it back to an address on network. It returns ErrInvalidAddress for any
// other script form (bare multisig, P2SH, OP_RETURN, and so on), which
// callers building per-output transfer history should treat as "no address"
// rather than a hard failure.
func AddressFromScript(script []byte, network Network) (string, error) {
	switch {
	case len(script) == 22 && script[0] == 0x00 && script[1] == 0x14:
		return EncodeP2WPKH(script[2:22], network)
	case len(script) == 25 && script[0] == 0x76 && script[1] == 0xa9 && script[2] == 0x14 &&
		script[23] == 0x88 && script[24] == 0xac:
		return EncodeP2PKH(script[3:23], network)
	default:
		return "", ErrInvalidAddress
	}
}

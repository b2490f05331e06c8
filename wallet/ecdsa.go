package wallet

import (
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ErrInvalidPrivateKey is returned when 32 bytes do not represent a valid
// secp256k1 scalar in [1, n-1].
var ErrInvalidPrivateKey = errors.New("wallet: invalid private key")

// PubkeyFromPriv returns the 33-byte compressed public key for a 32-byte
// private key.
func PubkeyFromPriv(priv []byte) ([]byte, error) {
	if len(priv) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	_, pub := btcec.PrivKeyFromBytes(priv)
	return pub.SerializeCompressed(), nil
}

// SignECDSA produces a deterministic (RFC 6979) low-S ECDSA signature over
// a 32-byte message digest, DER-encoded.
func SignECDSA(msg32, priv32 []byte) ([]byte, error) {
	if len(priv32) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	privKey, _ := btcec.PrivKeyFromBytes(priv32)
	sig := ecdsa.Sign(privKey, msg32)
	return sig.Serialize(), nil
}

// VerifyECDSA verifies a DER-encoded signature against a 32-byte digest and
// a compressed public key.
func VerifyECDSA(msg32, sigDER, pubCompressed []byte) (bool, error) {
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		return false, err
	}
	pub, err := btcec.ParsePubKey(pubCompressed)
	if err != nil {
		return false, err
	}
	return sig.Verify(msg32, pub), nil
}

// SignCompactRecoverable produces a 65-byte recoverable signature
// (1 header byte + 32-byte r + 32-byte s) as used for Bitcoin-Signed-Message
// verification (BIP-137). The header byte this returns is the bare
// recovery id in [0,3]; callers add the BIP-137 offset themselves.
func SignCompactRecoverable(msg32, priv32 []byte, compressed bool) ([]byte, error) {
	if len(priv32) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	privKey, _ := btcec.PrivKeyFromBytes(priv32)
	sig := ecdsa.SignCompact(privKey, msg32, compressed)
	// ecdsa.SignCompact already returns header||r||s with header encoding
	// 27+recid(+4 if compressed); normalize back to a bare recovery id so
	// callers control the BIP-137 envelope explicitly.
	header := sig[0]
	var recID byte
	switch {
	case header >= 31:
		recID = header - 31
	case header >= 27:
		recID = header - 27
	default:
		return nil, errors.New("wallet: unexpected compact signature header")
	}
	out := make([]byte, 65)
	out[0] = recID
	copy(out[1:], sig[1:])
	return out, nil
}

// RecoverCompact recovers the compressed public key from a 65-byte
// (recid||r||s) signature and the 32-byte digest it was produced over.
func RecoverCompact(msg32, sig65 []byte) ([]byte, bool, error) {
	if len(sig65) != 65 {
		return nil, false, errors.New("wallet: compact signature must be 65 bytes")
	}
	// ecdsa.RecoverCompact expects the BIP-137 27/31-offset header; rebuild
	// it from our bare recovery id, compressed-key variant.
	header := sig65[0] + 31
	wire := make([]byte, 65)
	wire[0] = header
	copy(wire[1:], sig65[1:])

	pub, wasCompressed, err := ecdsa.RecoverCompact(wire, msg32)
	if err != nil {
		return nil, false, err
	}
	return pub.SerializeCompressed(), wasCompressed, nil
}

// TweakAddPriv returns (priv + tweak) mod n, the scalar arithmetic BIP-32
// non-hardened CKDpriv relies on.
func TweakAddPriv(priv32, tweak32 []byte) ([]byte, error) {
	if len(priv32) != 32 || len(tweak32) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	n := btcec.S256().N
	p := new(big.Int).SetBytes(priv32)
	t := new(big.Int).SetBytes(tweak32)
	sum := new(big.Int).Add(p, t)
	sum.Mod(sum, n)
	if sum.Sign() == 0 {
		return nil, errors.New("wallet: derived private key is zero")
	}
	out := make([]byte, 32)
	b := sum.Bytes()
	copy(out[32-len(b):], b)
	return out, nil
}

// TweakAddPub returns the compressed public key for (pub + tweak*G), the
// public-key arithmetic BIP-32 CKDpub relies on.
func TweakAddPub(pubCompressed, tweak32 []byte) ([]byte, error) {
	pub, err := btcec.ParsePubKey(pubCompressed)
	if err != nil {
		return nil, err
	}
	if len(tweak32) != 32 {
		return nil, ErrInvalidPrivateKey
	}

	ecdsaPub := pub.ToECDSA()
	curve := btcec.S256()
	tx, ty := curve.ScalarBaseMult(tweak32)
	sumX, sumY := curve.Add(ecdsaPub.X, ecdsaPub.Y, tx, ty)

	var xField, yField btcec.FieldVal
	xField.SetByteSlice(padTo32(sumX.Bytes()))
	yField.SetByteSlice(padTo32(sumY.Bytes()))
	sumPub := btcec.NewPublicKey(&xField, &yField)
	return sumPub.SerializeCompressed(), nil
}

func padTo32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

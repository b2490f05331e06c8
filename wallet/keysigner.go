package wallet

import (
	"bytes"
	"encoding/base64"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/psbt"
)

// KeySigner signs using a single raw private key rather than an HD node.
// It implements the same Signer contract as HDSigner, minus BIP-32
// derivation metadata on PSBT inputs, so it admits private-key-only or
// hardware-backed signing flows that have no derivation path to report.
type KeySigner struct {
	priv    []byte // 32 bytes
	pub     []byte // 33 bytes compressed
	kind    AddressKind
	network Network
	active  bool
}

// NewKeySigner constructs a signer from a raw 32-byte private key.
func NewKeySigner(priv []byte, kind AddressKind, network Network) (*KeySigner, error) {
	if len(priv) != 32 {
		return nil, ErrInvalidPrivateKey
	}
	pub, err := PubkeyFromPriv(priv)
	if err != nil {
		return nil, err
	}
	privCopy := make([]byte, 32)
	copy(privCopy, priv)
	return &KeySigner{priv: privCopy, pub: pub, kind: kind, network: network, active: true}, nil
}

// GenerateKeySigner creates a signer backed by a freshly generated random
// private key.
func GenerateKeySigner(kind AddressKind, network Network) (*KeySigner, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	b := priv.Serialize()
	defer SecureZero(b)
	return NewKeySigner(b, kind, network)
}

// Address returns this signer's address.
func (s *KeySigner) Address() (string, error) {
	if !s.active {
		return "", ErrDisposed
	}
	return AddressForPubKey(s.pub, s.kind, s.network)
}

// PubKey returns the 33-byte compressed public key.
func (s *KeySigner) PubKey() ([]byte, error) {
	if !s.active {
		return nil, ErrDisposed
	}
	out := make([]byte, len(s.pub))
	copy(out, s.pub)
	return out, nil
}

// SignMessage produces a BIP-137 signature, identical in format to
// HDSigner.SignMessage.
func (s *KeySigner) SignMessage(message string) (string, error) {
	if !s.active {
		return "", ErrDisposed
	}
	digest := messageDigest(message)
	sig, err := SignCompactRecoverable(digest, s.priv, true)
	if err != nil {
		return "", err
	}
	out := make([]byte, 65)
	out[0] = bip137Header(sig[0], true, 0)
	if s.kind == P2WPKH {
		out[0] = bip137Header(sig[0], true, PurposeBIP84)
	}
	copy(out[1:], sig[1:])
	return base64.StdEncoding.EncodeToString(out), nil
}

// VerifyMessage verifies a signature against this signer's own address.
func (s *KeySigner) VerifyMessage(message, signature string) (bool, error) {
	if !s.active {
		return false, ErrDisposed
	}
	addr, err := s.Address()
	if err != nil {
		return false, err
	}
	return VerifyMessageAddress(message, signature, addr, s.network)
}

// SignPSBT signs every input whose prevout script matches this signer's
// scriptPubKey. Unlike HDSigner, it attaches no bip32_derivation metadata,
// since a raw key has no derivation path to report.
func (s *KeySigner) SignPSBT(packet *psbt.Packet) error {
	if !s.active {
		return ErrDisposed
	}
	hash := Hash160(s.pub)
	script, err := ScriptPubKeyFor(s.kind, hash)
	if err != nil {
		return err
	}

	for i := range packet.Inputs {
		in := &packet.Inputs[i]
		var outScript []byte
		switch {
		case in.WitnessUtxo != nil:
			outScript = in.WitnessUtxo.PkScript
		case in.NonWitnessUtxo != nil:
			idx := packet.UnsignedTx.TxIn[i].PreviousOutPoint.Index
			if int(idx) >= len(in.NonWitnessUtxo.TxOut) {
				continue
			}
			outScript = in.NonWitnessUtxo.TxOut[idx].PkScript
		default:
			continue
		}
		if !bytes.Equal(outScript, script) {
			continue
		}

		sigHash, err := inputSigHash(packet, i, outScript)
		if err != nil {
			return err
		}
		sig, err := SignECDSA(sigHash, s.priv)
		if err != nil {
			return err
		}
		in.PartialSigs = append(in.PartialSigs, &psbt.PartialSig{
			PubKey:    append([]byte(nil), s.pub...),
			Signature: sig,
		})
	}
	return nil
}

// Dispose erases this signer's private key.
func (s *KeySigner) Dispose() {
	if !s.active {
		return
	}
	SecureZero(s.priv)
	s.active = false
}

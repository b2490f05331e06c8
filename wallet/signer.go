package wallet

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/btcutil/psbt"
)

// messagePrefix is prepended to every message before hashing, per the
// "Bitcoin Signed Message" convention, so a signed message can never be
// mistaken for a signed transaction.
const messagePrefix = "Bitcoin Signed Message:\n"

// Signer is satisfied by anything that can produce addresses and sign
// PSBT inputs and messages for them. The HD-derived Signer and the
// private-key-only KeySigner in this package both implement it, and so
// could a hardware-wallet-backed implementation outside this module.
type Signer interface {
	Address() (string, error)
	PubKey() ([]byte, error)
	SignMessage(message string) (string, error)
	VerifyMessage(message, signature string) (bool, error)
	SignPSBT(packet *psbt.Packet) error
	Dispose()
}

// HDSigner signs using a key derived from an HD account node. It augments
// PSBT inputs with BIP-32 derivation metadata so downstream signers (or an
// audit trail) can confirm which path produced a given signature.
type HDSigner struct {
	node              *Node
	purpose           uint32
	network           Network
	kind              AddressKind
	path              Path
	masterFingerprint [4]byte

	active bool
}

// NewHDSigner wraps a leaf node (already derived to its full address path)
// as a Signer. masterFingerprint is the true BIP-32 root's fingerprint
// (the first 4 bytes of HASH160(root pubkey), from the master node's own
// Fingerprint() before it is discarded or disposed) — not node's own, since
// node is the leaf and a PSBT's bip32_derivation.master_fingerprint must
// identify the root, not an intermediate key.
func NewHDSigner(node *Node, purpose uint32, network Network, path Path, masterFingerprint [4]byte) (*HDSigner, error) {
	if !node.IsPrivate() {
		return nil, errors.New("wallet: HD signer requires a private node")
	}
	kind := P2PKH
	if purpose == PurposeBIP84 {
		kind = P2WPKH
	}
	return &HDSigner{
		node:              node,
		purpose:           purpose,
		network:           network,
		kind:              kind,
		path:              path,
		masterFingerprint: masterFingerprint,
		active:            true,
	}, nil
}

// Address returns this signer's receiving address.
func (s *HDSigner) Address() (string, error) {
	if !s.active {
		return "", ErrDisposed
	}
	pub, err := s.node.PubKey()
	if err != nil {
		return "", err
	}
	return AddressForPubKey(pub, s.kind, s.network)
}

// PubKey returns the 33-byte compressed public key.
func (s *HDSigner) PubKey() ([]byte, error) {
	if !s.active {
		return nil, ErrDisposed
	}
	return s.node.PubKey()
}

func bip137Header(recID byte, compressed bool, purpose uint32) byte {
	header := 27 + recID
	if compressed {
		header += 4
	}
	if purpose == PurposeBIP84 {
		header += 8
	}
	return header
}

// SignMessage produces a BIP-137 base64-encoded recoverable signature over
// message, prefixed and double-SHA256 hashed per the Bitcoin Signed Message
// convention.
func (s *HDSigner) SignMessage(message string) (string, error) {
	if !s.active {
		return "", ErrDisposed
	}
	priv, err := s.node.PrivKey()
	if err != nil {
		return "", err
	}
	defer SecureZero(priv)

	digest := messageDigest(message)
	sig, err := SignCompactRecoverable(digest, priv, true)
	if err != nil {
		return "", err
	}

	out := make([]byte, 65)
	out[0] = bip137Header(sig[0], true, s.purpose)
	copy(out[1:], sig[1:])
	return base64.StdEncoding.EncodeToString(out), nil
}

// VerifyMessage verifies a BIP-137 signature produced by SignMessage (or a
// compatible wallet) against this signer's own address.
func (s *HDSigner) VerifyMessage(message, signature string) (bool, error) {
	if !s.active {
		return false, ErrDisposed
	}
	addr, err := s.Address()
	if err != nil {
		return false, err
	}
	return VerifyMessageAddress(message, signature, addr, s.network)
}

// VerifyMessageAddress verifies a BIP-137 signature against an arbitrary
// address, without requiring a Signer instance.
func VerifyMessageAddress(message, signature, address string, network Network) (bool, error) {
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(raw) != 65 {
		return false, errors.New("wallet: malformed signature")
	}
	header := raw[0]
	if header < 27 || header > 42 {
		return false, errors.New("wallet: unrecognized signature header")
	}

	compact := make([]byte, 65)
	offset := header - 27
	segwit := offset >= 8
	if segwit {
		offset -= 8
	}
	compressed := offset >= 4
	if compressed {
		offset -= 4
	}
	compact[0] = offset
	copy(compact[1:], raw[1:])

	digest := messageDigest(message)
	pub, _, err := RecoverCompact(digest, compact)
	if err != nil {
		return false, err
	}

	kind, _, hash, err := DecodeAddress(address)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(Hash160(pub), hash) {
		return false, nil
	}
	_ = kind
	_ = network
	return true, nil
}

func messageDigest(message string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(len(messagePrefix)))
	buf.WriteString(messagePrefix)
	writeVarInt(&buf, uint64(len(message)))
	buf.WriteString(message)
	return DoubleSha256(buf.Bytes())
}

func writeVarInt(buf *bytes.Buffer, n uint64) {
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		buf.WriteByte(byte(n))
		buf.WriteByte(byte(n >> 8))
	default:
		buf.WriteByte(0xfe)
		for i := 0; i < 4; i++ {
			buf.WriteByte(byte(n >> (8 * i)))
		}
	}
}

// SignPSBT signs every input of packet whose witness_utxo/non_witness_utxo
// script matches this signer's own scriptPubKey, attaching BIP-32
// derivation metadata so verifiers can confirm the path used.
func (s *HDSigner) SignPSBT(packet *psbt.Packet) error {
	if !s.active {
		return ErrDisposed
	}
	pub, err := s.node.PubKey()
	if err != nil {
		return err
	}
	priv, err := s.node.PrivKey()
	if err != nil {
		return err
	}
	defer SecureZero(priv)

	hash := Hash160(pub)
	script, err := ScriptPubKeyFor(s.kind, hash)
	if err != nil {
		return err
	}

	fp := binary.BigEndian.Uint32(s.masterFingerprint[:])

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

		in.Bip32Derivation = []*psbt.Bip32Derivation{{
			PubKey:    append([]byte(nil), pub...),
			Bip32Path: pathUint32s(s.path),
			MasterKeyFingerprint: fp,
		}}

		sigHash, err := inputSigHash(packet, i, outScript)
		if err != nil {
			return err
		}
		sig, err := SignECDSA(sigHash, priv)
		if err != nil {
			return err
		}
		in.PartialSigs = append(in.PartialSigs, &psbt.PartialSig{
			PubKey:    append([]byte(nil), pub...),
			Signature: sig,
		})
	}
	return nil
}

// Dispose erases this signer's key material. Subsequent calls return
// ErrDisposed.
func (s *HDSigner) Dispose() {
	if !s.active {
		return
	}
	s.node.Dispose()
	s.active = false
}

func pathUint32s(p Path) []uint32 {
	out := make([]uint32, len(p))
	copy(out, p)
	return out
}

package wallet

import (
	"encoding/binary"
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ErrInvalidSeed is returned when a seed is too short to derive a master
// node from, or produces an out-of-range master key.
var ErrInvalidSeed = errors.New("wallet: invalid seed")

// ErrHardenedFromPublic is returned when hardened derivation is attempted
// on a node that has already shed its private key.
var ErrHardenedFromPublic = errors.New("wallet: cannot derive hardened child from public-only node")

// ErrDisposed is returned by any operation on a Node whose secret material
// has already been erased.
var ErrDisposed = errors.New("wallet: node disposed")

const seedHMACKey = "Bitcoin seed"

// versionBytes holds the 4-byte BIP-32 extended-key version prefix for a
// given purpose/network/private-or-public combination. Electrum and most
// wallets outside core use the zpub/zprv (BIP-84) and tpub/tprv/vpub/vprv
// prefixes documented in SLIP-132; this module only emits the subset it
// derives: xprv/xpub, tprv/tpub, zprv/zpub, vprv/vpub.
func versionBytes(purpose uint32, network Network, private bool) [4]byte {
	switch {
	case purpose == PurposeBIP44 && network == Mainnet && private:
		return [4]byte{0x04, 0x88, 0xAD, 0xE4} // xprv
	case purpose == PurposeBIP44 && network == Mainnet && !private:
		return [4]byte{0x04, 0x88, 0xB2, 0x1E} // xpub
	case purpose == PurposeBIP44 && network != Mainnet && private:
		return [4]byte{0x04, 0x35, 0x83, 0x94} // tprv
	case purpose == PurposeBIP44 && network != Mainnet && !private:
		return [4]byte{0x04, 0x35, 0x87, 0xCF} // tpub
	case purpose == PurposeBIP84 && network == Mainnet && private:
		return [4]byte{0x04, 0xB2, 0x43, 0x0C} // zprv
	case purpose == PurposeBIP84 && network == Mainnet && !private:
		return [4]byte{0x04, 0xB2, 0x47, 0x46} // zpub
	case purpose == PurposeBIP84 && network != Mainnet && private:
		return [4]byte{0x04, 0x5F, 0x18, 0xBC} // vprv
	default:
		return [4]byte{0x04, 0x5F, 0x1C, 0xF6} // vpub
	}
}

// Node is a BIP-32 extended key: a private or public key plus chain code,
// with enough ancestry metadata (depth, parent fingerprint, child index)
// to serialize to xprv/xpub form.
type Node struct {
	privKey   []byte // 32 bytes, nil on a public-only node
	pubKey    []byte // 33 bytes, compressed, always set
	chainCode []byte // 32 bytes

	depth       byte
	parentFP    [4]byte
	childIndex  uint32
	purpose     uint32
	network     Network
	disposed    bool
}

// NewMasterNode derives the BIP-32 master node from a seed (typically the
// 64-byte output of SeedFromMnemonic).
func NewMasterNode(seed []byte, purpose uint32, network Network) (*Node, error) {
	if len(seed) < 16 || len(seed) > 64 {
		return nil, ErrInvalidSeed
	}
	i := HmacSha512([]byte(seedHMACKey), seed)
	il, ir := i[:32], i[32:]

	curveOrder := btcec.S256().N
	k := new(big.Int).SetBytes(il)
	if k.Sign() == 0 || k.Cmp(curveOrder) >= 0 {
		return nil, ErrInvalidSeed
	}

	pub, err := PubkeyFromPriv(il)
	if err != nil {
		return nil, err
	}

	return &Node{
		privKey:    il,
		pubKey:     pub,
		chainCode:  ir,
		depth:      0,
		parentFP:   [4]byte{0, 0, 0, 0},
		childIndex: 0,
		purpose:    purpose,
		network:    network,
	}, nil
}

// Fingerprint returns the first 4 bytes of HASH160(compressed pubkey), the
// identifier BIP-32 uses for a node's parent-fingerprint field.
func (n *Node) Fingerprint() ([4]byte, error) {
	if n.disposed {
		return [4]byte{}, ErrDisposed
	}
	h := Hash160(n.pubKey)
	var fp [4]byte
	copy(fp[:], h[:4])
	return fp, nil
}

// IsPrivate reports whether this node still holds its private key.
func (n *Node) IsPrivate() bool {
	return n.privKey != nil
}

// PubKey returns the 33-byte compressed public key.
func (n *Node) PubKey() ([]byte, error) {
	if n.disposed {
		return nil, ErrDisposed
	}
	out := make([]byte, len(n.pubKey))
	copy(out, n.pubKey)
	return out, nil
}

// PrivKey returns the 32-byte private key, or an error if this node is
// public-only or disposed.
func (n *Node) PrivKey() ([]byte, error) {
	if n.disposed {
		return nil, ErrDisposed
	}
	if n.privKey == nil {
		return nil, errors.New("wallet: node has no private key")
	}
	out := make([]byte, len(n.privKey))
	copy(out, n.privKey)
	return out, nil
}

// Neuter returns a public-only copy of this node, its private key erased.
func (n *Node) Neuter() (*Node, error) {
	if n.disposed {
		return nil, ErrDisposed
	}
	pubCopy := make([]byte, len(n.pubKey))
	copy(pubCopy, n.pubKey)
	ccCopy := make([]byte, len(n.chainCode))
	copy(ccCopy, n.chainCode)
	return &Node{
		pubKey:     pubCopy,
		chainCode:  ccCopy,
		depth:      n.depth,
		parentFP:   n.parentFP,
		childIndex: n.childIndex,
		purpose:    n.purpose,
		network:    n.network,
	}, nil
}

// Derive computes the child node at the given index. Indices at or above
// HardenedOffset are hardened and require a private node.
func (n *Node) Derive(index uint32) (*Node, error) {
	if n.disposed {
		return nil, ErrDisposed
	}
	if n.depth == 0xFF {
		return nil, errors.New("wallet: maximum derivation depth exceeded")
	}

	hardened := index&HardenedOffset != 0
	if hardened && n.privKey == nil {
		return nil, ErrHardenedFromPublic
	}

	var data []byte
	if hardened {
		data = make([]byte, 0, 37)
		data = append(data, 0x00)
		data = append(data, n.privKey...)
	} else {
		data = make([]byte, 0, 37)
		data = append(data, n.pubKey...)
	}
	var idxBuf [4]byte
	binary.BigEndian.PutUint32(idxBuf[:], index)
	data = append(data, idxBuf[:]...)

	i := HmacSha512(n.chainCode, data)
	il, ir := i[:32], i[32:]

	fp, err := n.Fingerprint()
	if err != nil {
		return nil, err
	}

	if n.privKey != nil {
		childPriv, err := TweakAddPriv(n.privKey, il)
		if err != nil {
			return nil, err
		}
		childPub, err := PubkeyFromPriv(childPriv)
		if err != nil {
			return nil, err
		}
		return &Node{
			privKey:    childPriv,
			pubKey:     childPub,
			chainCode:  ir,
			depth:      n.depth + 1,
			parentFP:   fp,
			childIndex: index,
			purpose:    n.purpose,
			network:    n.network,
		}, nil
	}

	childPub, err := TweakAddPub(n.pubKey, il)
	if err != nil {
		return nil, err
	}
	return &Node{
		pubKey:     childPub,
		chainCode:  ir,
		depth:      n.depth + 1,
		parentFP:   fp,
		childIndex: index,
		purpose:    n.purpose,
		network:    n.network,
	}, nil
}

// DerivePath walks a full Path from this node, returning the final node.
func (n *Node) DerivePath(path Path) (*Node, error) {
	cur := n
	for _, idx := range path {
		next, err := cur.Derive(idx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Serialize encodes this node as a BIP-32 extended key string (xprv/xpub,
// or the BIP-84 zprv/zpub/vprv/vpub variants), Base58Check-wrapped.
func (n *Node) Serialize(private bool) (string, error) {
	if n.disposed {
		return "", ErrDisposed
	}
	if private && n.privKey == nil {
		return "", errors.New("wallet: cannot serialize private key from public-only node")
	}

	ver := versionBytes(n.purpose, n.network, private)
	buf := make([]byte, 0, 78)
	buf = append(buf, ver[:]...)
	buf = append(buf, n.depth)
	buf = append(buf, n.parentFP[:]...)

	var idxBuf [4]byte
	binary.BigEndian.PutUint32(idxBuf[:], n.childIndex)
	buf = append(buf, idxBuf[:]...)
	buf = append(buf, n.chainCode...)

	if private {
		buf = append(buf, 0x00)
		buf = append(buf, n.privKey...)
	} else {
		buf = append(buf, n.pubKey...)
	}

	return Base58CheckEncode(buf), nil
}

// Dispose zeroes this node's secret material. Safe to call more than once
// and on public-only nodes.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	SecureZero(n.privKey)
	SecureZero(n.chainCode)
	n.disposed = true
}

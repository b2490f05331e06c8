// Package wallet implements the cryptographic and transport core of a
// non-custodial Bitcoin HD wallet: BIP32/39/44/84 key derivation, P2PKH/
// P2WPKH address encoding, PSBT-based transaction construction, UTXO coin
// selection and an Electrum-protocol client.
package wallet

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/ripemd160"
)

// Sha256 returns the single SHA-256 digest of data.
func Sha256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// DoubleSha256 returns SHA-256(SHA-256(data)), the hash bitcoin uses for
// txids and Base58Check checksums.
func DoubleSha256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Ripemd160 returns the RIPEMD-160 digest of data.
func Ripemd160(data []byte) []byte {
	h := ripemd160.New()
	h.Write(data)
	return h.Sum(nil)
}

// Hash160 returns RIPEMD160(SHA256(data)), used for pubkey hashes and
// xprv/xpub fingerprints.
func Hash160(data []byte) []byte {
	return Ripemd160(Sha256(data))
}

// HmacSha512 returns HMAC-SHA512(key, data), the primitive behind BIP-32
// master key and child key derivation.
func HmacSha512(key, data []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// SecureZero overwrites b with zeros in a way the compiler cannot elide,
// even though b is about to go out of scope. Used to scrub private keys
// and chain codes on dispose.
//
// Security:
//   - Ordinary `for i := range b { b[i] = 0 }` can be optimized away by an
//     aggressive compiler if it can prove b is never read again; running
//     the loop in a separate //go:noinline function denies it that proof.
func SecureZero(b []byte) {
	if len(b) == 0 {
		return
	}
	zeroBytes(b)
}

//go:noinline
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

package wallet

import (
	"errors"

	"github.com/tyler-smith/go-bip39"
)

// ErrInvalidMnemonic is returned when a mnemonic fails its BIP-39 checksum
// or contains words outside the wordlist.
var ErrInvalidMnemonic = errors.New("wallet: invalid mnemonic")

// NewMnemonic returns a freshly generated BIP-39 mnemonic with bits of
// entropy (128 => 12 words, 256 => 24 words).
func NewMnemonic(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// IsValidMnemonic reports whether m is a checksum-valid BIP-39 mnemonic.
func IsValidMnemonic(m string) bool {
	return bip39.IsMnemonicValid(m)
}

// SeedFromMnemonic derives the 64-byte BIP-39 seed from a mnemonic using
// PBKDF2-HMAC-SHA512 with 2048 iterations and salt "mnemonic"+passphrase.
// The empty passphrase is used throughout this module; callers needing a
// passphrase-protected seed should call go-bip39 directly.
func SeedFromMnemonic(mnemonic string) ([]byte, error) {
	if mnemonic == "" {
		return nil, ErrInvalidMnemonic
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return bip39.NewSeedWithErrorChecking(mnemonic, "")
}

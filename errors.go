// Package btchdwallet implements a non-custodial Bitcoin HD wallet core:
// BIP-32/39/44/84 key derivation and signing, PSBT transaction construction
// with UTXO coin selection, and an Electrum-protocol transport client.
package btchdwallet

import (
	"errors"

	"github.com/opd-ai/btchdwallet/wallet"
)

// Sentinel errors returned by Account operations. Each is the same value as
// the wallet subpackage's error of the same name, so errors.Is matches
// against either.
var (
	ErrInvalidMnemonic     = wallet.ErrInvalidMnemonic
	ErrInvalidPath         = wallet.ErrInvalidPath
	ErrInvalidAddress      = wallet.ErrInvalidAddress
	ErrAmountBelowDust     = wallet.ErrAmountBelowDust
	ErrInsufficientBalance = wallet.ErrInsufficientBalance
	ErrTooManyInputs       = wallet.ErrTooManyInputs
	ErrFeeShortfall        = wallet.ErrFeeShortfall
	ErrDisposed            = wallet.ErrDisposed
	ErrConnectionClosed    = wallet.ErrConnectionClosed
	ErrTimeout             = wallet.ErrTimeout
)

// ElectrumError is re-exported so callers can type-assert server-reported
// protocol errors without importing the wallet subpackage directly.
type ElectrumError = wallet.ElectrumError

// errNoPrevout is returned internally when a previous output needed to
// classify a transfer cannot be fetched.
var errNoPrevout = errors.New("btchdwallet: prevout unavailable")

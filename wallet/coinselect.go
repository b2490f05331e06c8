package wallet

import "errors"

// Per-input/output virtual-size estimates used for fee calculation. These
// match the commonly cited worst-case figures for single-signature
// P2PKH/P2WPKH spends; callers funding multisig or script-path spends need
// their own estimator.
const (
	vsizeOverhead     = 11
	vsizeInputP2PKH   = 148
	vsizeInputP2WPKH  = 68
	vsizeOutputP2PKH  = 34
	vsizeOutputP2WPKH = 31

	// MaxUTXOInputs caps how many UTXOs a single selection may draw from,
	// keeping worst-case transaction size and signing latency bounded.
	MaxUTXOInputs = 200

	// minFeeSatoshis is the floor below which a constructed transaction's
	// fee is never allowed to fall, regardless of how low feeRate*vsize
	// computes.
	minFeeSatoshis = 141
)

// ErrInsufficientBalance is returned when the available UTXOs cannot cover
// the requested amount plus fees.
var ErrInsufficientBalance = errors.New("wallet: insufficient balance")

// ErrTooManyInputs is returned when satisfying the requested amount would
// require more than MaxUTXOInputs UTXOs.
var ErrTooManyInputs = errors.New("wallet: too many inputs required")

// ErrAmountBelowDust is returned when a requested send amount is below the
// dust limit for the recipient's address kind.
var ErrAmountBelowDust = errors.New("wallet: amount below dust limit")

// UTXO is a spendable output as reported by an Electrum server.
type UTXO struct {
	TxID         string
	Vout         uint32
	Value        int64
	ScriptPubKey []byte
	Kind         AddressKind
}

// CoinSelection is the result of planning which UTXOs fund a send, and at
// what fee.
type CoinSelection struct {
	Inputs    []UTXO
	Fee       int64
	Change    int64
	TotalIn   int64
}

func inputVsize(kind AddressKind) int64 {
	if kind == P2WPKH {
		return vsizeInputP2WPKH
	}
	return vsizeInputP2PKH
}

func outputVsize(kind AddressKind) int64 {
	if kind == P2WPKH {
		return vsizeOutputP2WPKH
	}
	return vsizeOutputP2PKH
}

// EstimateVsize returns the estimated virtual size, in vbytes, of a
// transaction spending inputs into the given output kinds, one entry per
// output (so a recipient + change transaction passes both kinds, in order).
func EstimateVsize(inputs []UTXO, outputKinds []AddressKind) int64 {
	size := int64(vsizeOverhead)
	for _, u := range inputs {
		size += inputVsize(u.Kind)
	}
	for _, k := range outputKinds {
		size += outputVsize(k)
	}
	return size
}

// SelectUTXOs plans a coin selection covering amount at feeRatePerVByte
// (satoshis per vbyte, clamped to a minimum of 1), assuming a two-output
// transaction (recipientKind + changeKind). It first tries the smallest
// single UTXO that covers amount plus its own fee contribution, then falls
// back to accumulating UTXOs largest-first.
func SelectUTXOs(utxos []UTXO, amount int64, feeRatePerVByte int64, recipientKind AddressKind, changeKind AddressKind) (*CoinSelection, error) {
	if amount < DustLimit(recipientKind) {
		return nil, ErrAmountBelowDust
	}
	if feeRatePerVByte < 1 {
		feeRatePerVByte = 1
	}
	outputKinds := []AddressKind{recipientKind, changeKind}

	sorted := make([]UTXO, len(utxos))
	copy(sorted, utxos)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Value > sorted[j-1].Value; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	// Single-UTXO attempt, smallest-first among those that cover amount.
	var singleBest *UTXO
	for i := len(sorted) - 1; i >= 0; i-- {
		u := sorted[i]
		fee := feeFor([]UTXO{u}, outputKinds, feeRatePerVByte)
		if u.Value >= amount+fee {
			candidate := u
			singleBest = &candidate
			break
		}
	}
	if singleBest != nil {
		fee := feeFor([]UTXO{*singleBest}, outputKinds, feeRatePerVByte)
		return finishSelection([]UTXO{*singleBest}, amount, fee, changeKind)
	}

	// Accumulate largest-first.
	var selected []UTXO
	var total int64
	for _, u := range sorted {
		if len(selected) >= MaxUTXOInputs {
			return nil, ErrTooManyInputs
		}
		selected = append(selected, u)
		total += u.Value
		fee := feeFor(selected, outputKinds, feeRatePerVByte)
		if total >= amount+fee {
			return finishSelection(selected, amount, fee, changeKind)
		}
	}
	return nil, ErrInsufficientBalance
}

func finishSelection(selected []UTXO, amount, fee int64, changeKind AddressKind) (*CoinSelection, error) {
	var total int64
	for _, u := range selected {
		total += u.Value
	}
	change := total - amount - fee
	if change < 0 {
		return nil, ErrInsufficientBalance
	}
	if change > 0 && change < DustLimit(changeKind) {
		// Absorb sub-dust change into the fee rather than creating an
		// unspendable output.
		fee += change
		change = 0
	}
	return &CoinSelection{Inputs: selected, Fee: fee, Change: change, TotalIn: total}, nil
}

func feeFor(inputs []UTXO, outputKinds []AddressKind, feeRatePerVByte int64) int64 {
	fee := EstimateVsize(inputs, outputKinds) * feeRatePerVByte
	if fee < minFeeSatoshis {
		return minFeeSatoshis
	}
	return fee
}

package wallet

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ErrFeeShortfall is returned when a post-signing fee shortfall cannot be
// covered by shrinking change and would drive the recipient's amount to
// zero or below.
var ErrFeeShortfall = errors.New("wallet: fee shortfall after rebuild")

// BuildTransaction assembles a version-2, locktime-0 PSBT sending amount
// satoshis to recipient, funded from utxos at feeRatePerVByte, with any
// change returned to changeAddress at output index 1. recipient and
// changeAddress must both decode to network; a cross-network address is
// rejected rather than silently accepted.
func BuildTransaction(
	utxos []UTXO,
	recipient string,
	amount int64,
	changeAddress string,
	feeRatePerVByte int64,
	network Network,
) (*psbt.Packet, *CoinSelection, error) {
	recipientKind, recipientHash, err := decodeAddressForNetwork(recipient, network)
	if err != nil {
		return nil, nil, err
	}
	changeKind, changeHash, err := decodeAddressForNetwork(changeAddress, network)
	if err != nil {
		return nil, nil, err
	}

	selection, err := SelectUTXOs(utxos, amount, feeRatePerVByte, recipientKind, changeKind)
	if err != nil {
		return nil, nil, err
	}

	packet, err := assemblePacket(selection, recipientKind, recipientHash, amount, changeKind, changeHash)
	if err != nil {
		return nil, nil, err
	}
	return packet, selection, nil
}

// decodeAddressForNetwork decodes address and rejects it with
// ErrInvalidAddress if it belongs to a different network than network.
func decodeAddressForNetwork(address string, network Network) (AddressKind, []byte, error) {
	kind, addrNetwork, hash, err := DecodeAddress(address)
	if err != nil {
		return 0, nil, err
	}
	if addrNetwork != network {
		return 0, nil, ErrInvalidAddress
	}
	return kind, hash, nil
}

// RebuildTransaction re-assembles a PSBT against an existing coin
// selection's fixed input set (no reselection), at possibly-adjusted
// recipient and change amounts. It is used by the post-signing fee
// reconciliation step in the façade package, where the inputs (and hence
// the transaction's vsize) are already fixed and only the output amounts
// are shifting to absorb a discovered shortfall.
func RebuildTransaction(
	selection *CoinSelection,
	recipient string,
	amount int64,
	changeAddress string,
	network Network,
) (*psbt.Packet, error) {
	recipientKind, recipientHash, err := decodeAddressForNetwork(recipient, network)
	if err != nil {
		return nil, err
	}
	changeKind, changeHash, err := decodeAddressForNetwork(changeAddress, network)
	if err != nil {
		return nil, err
	}
	return assemblePacket(selection, recipientKind, recipientHash, amount, changeKind, changeHash)
}

// TransactionVsize computes a finalized transaction's true virtual size in
// vbytes per BIP-141: weight = 3*stripped_size + total_size, vsize =
// ceil(weight / 4).
func TransactionVsize(tx *wire.MsgTx) int64 {
	weight := int64(tx.SerializeSizeStripped())*3 + int64(tx.SerializeSize())
	return (weight + 3) / 4
}

// ReconcileFee adjusts a planned selection in place to cover a fee
// shortfall discovered after signing (actualFee exceeding the fee the
// selection was built for), preferring to shrink the change output before
// touching the recipient's amount, and only reducing the recipient amount
// once change is exhausted. It returns the (possibly reduced) recipient
// amount to rebuild and re-sign the transaction with.
func ReconcileFee(selection *CoinSelection, recipientAmount int64, actualFee int64) (int64, error) {
	shortfall := actualFee - selection.Fee
	if shortfall <= 0 {
		return recipientAmount, nil
	}
	if selection.Change >= shortfall {
		selection.Change -= shortfall
		selection.Fee += shortfall
		return recipientAmount, nil
	}

	remaining := shortfall - selection.Change
	selection.Fee += selection.Change
	selection.Change = 0
	selection.Fee += remaining
	recipientAmount -= remaining
	if recipientAmount <= 0 {
		return 0, ErrFeeShortfall
	}
	return recipientAmount, nil
}

func assemblePacket(selection *CoinSelection, recipientKind AddressKind, recipientHash []byte, amount int64, changeKind AddressKind, changeHash []byte) (*psbt.Packet, error) {
	txIns := make([]*wire.TxIn, len(selection.Inputs))
	for i, u := range selection.Inputs {
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, err
		}
		txIns[i] = wire.NewTxIn(wire.NewOutPoint(hash, u.Vout), nil, nil)
	}

	recipientScript, err := ScriptPubKeyFor(recipientKind, recipientHash)
	if err != nil {
		return nil, err
	}
	txOuts := []*wire.TxOut{wire.NewTxOut(amount, recipientScript)}
	if selection.Change > 0 {
		changeScript, err := ScriptPubKeyFor(changeKind, changeHash)
		if err != nil {
			return nil, err
		}
		txOuts = append(txOuts, wire.NewTxOut(selection.Change, changeScript))
	}

	unsignedTx := wire.NewMsgTx(2)
	unsignedTx.TxIn = txIns
	unsignedTx.TxOut = txOuts

	packet, err := psbt.NewFromUnsignedTx(unsignedTx)
	if err != nil {
		return nil, err
	}

	for i, u := range selection.Inputs {
		packet.Inputs[i].SighashType = txscript.SigHashAll
		if u.Kind == P2WPKH {
			packet.Inputs[i].WitnessUtxo = &wire.TxOut{
				Value:    u.Value,
				PkScript: u.ScriptPubKey,
			}
		} else {
			// Legacy inputs require the full non-witness prevout tx in a
			// production signer; callers attach it via SetNonWitnessUtxo
			// once they have it (e.g. from an Electrum transaction.get).
		}
	}

	return packet, nil
}

// SetNonWitnessUtxo attaches the full previous transaction for a legacy
// P2PKH input at packet.Inputs[idx], required before that input can be
// signed.
func SetNonWitnessUtxo(packet *psbt.Packet, idx int, prevTx *wire.MsgTx) error {
	if idx < 0 || idx >= len(packet.Inputs) {
		return errors.New("wallet: input index out of range")
	}
	packet.Inputs[idx].NonWitnessUtxo = prevTx
	return nil
}

// Finalize converts all inputs' partial signatures into final scriptSig /
// witness data, readying the packet for extraction.
func Finalize(packet *psbt.Packet) error {
	return psbt.MaybeFinalizeAll(packet)
}

// Extract returns the fully signed wire transaction from a finalized
// packet.
func Extract(packet *psbt.Packet) (*wire.MsgTx, error) {
	return psbt.Extract(packet)
}

// inputSigHash computes the signature hash for input idx of packet,
// dispatching to the BIP-143 witness algorithm for P2WPKH outputs and the
// legacy algorithm otherwise. outScript is the prevout's scriptPubKey.
func inputSigHash(packet *psbt.Packet, idx int, outScript []byte) ([]byte, error) {
	tx := packet.UnsignedTx
	in := packet.Inputs[idx]
	hashType := in.SighashType
	if hashType == 0 {
		hashType = txscript.SigHashAll
	}

	if in.WitnessUtxo != nil {
		scriptCode, err := witnessScriptCode(outScript)
		if err != nil {
			return nil, err
		}
		sigHashes := txscript.NewTxSigHashes(tx, nil)
		return txscript.CalcWitnessSigHash(scriptCode, sigHashes, hashType, tx, idx, in.WitnessUtxo.Value)
	}

	return txscript.CalcSignatureHash(outScript, hashType, tx, idx)
}

// witnessScriptCode expands a P2WPKH witness program (OP_0 <20-byte hash>)
// into the equivalent legacy P2PKH script BIP-143 hashes over.
func witnessScriptCode(witnessProgram []byte) ([]byte, error) {
	if len(witnessProgram) != 22 || witnessProgram[0] != 0x00 || witnessProgram[1] != 0x14 {
		return nil, errors.New("wallet: not a P2WPKH witness program")
	}
	return ScriptPubKeyFor(P2PKH, witnessProgram[2:])
}

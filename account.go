package btchdwallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/opd-ai/btchdwallet/wallet"
)

// TransferDirection classifies a Transfer relative to this account's
// address.
type TransferDirection int

const (
	DirectionIncoming TransferDirection = iota
	DirectionOutgoing
)

// Transfer is one classified movement of value into or out of an
// account's address, corresponding to a single relevant output (vout) of a
// transaction touching this account. Fee and Recipient are only populated
// for outgoing transfers; an incoming transfer carries neither, since this
// account did not pay the fee or choose the payee.
type Transfer struct {
	TxID      string
	Vout      uint32
	Address   string
	Height    int64
	Amount    int64
	Direction TransferDirection
	Fee       int64
	Recipient string
}

// GetTransfersOptions paginates and filters GetTransfers. Direction is a
// pointer so "unset" (both directions) is distinguishable from either
// explicit value.
type GetTransfersOptions struct {
	Direction *TransferDirection
	Limit     int
	Skip      int
}

// Account is a single derived address with its signer, bound to an
// Electrum client. It is the primary entry point of this package.
type Account struct {
	signer  wallet.Signer
	client  *wallet.ElectrumClient
	network wallet.Network
	kind    wallet.AddressKind
	timeout time.Duration
	logger  *log.Logger

	addr       string
	scriptHash string
}

// NewAccount binds a signer (see wallet.NewHDSigner / wallet.NewKeySigner)
// to an Electrum connection described by cfg.
func NewAccount(signer wallet.Signer, cfg Config) (*Account, error) {
	cfg = cfg.withDefaults()

	addr, err := signer.Address()
	if err != nil {
		return nil, err
	}
	kind, _, hash, err := wallet.DecodeAddress(addr)
	if err != nil {
		return nil, err
	}
	script, err := wallet.ScriptPubKeyFor(kind, hash)
	if err != nil {
		return nil, err
	}

	return &Account{
		signer:     signer,
		client:     cfg.buildClient(),
		network:    cfg.Network,
		kind:       kind,
		timeout:    time.Duration(cfg.TimeoutMS) * time.Millisecond,
		logger:     cfg.Logger,
		addr:       addr,
		scriptHash: wallet.ScriptHash(script),
	}, nil
}

// GetAddress returns this account's cached address.
func (a *Account) GetAddress() string {
	return a.addr
}

// GetBalance returns the confirmed balance in satoshis.
func (a *Account) GetBalance(ctx context.Context) (int64, error) {
	confirmed, _, err := a.client.GetBalance(ctx, a.scriptHash)
	return confirmed, err
}

// QuoteSendTransaction runs coin selection for a prospective send without
// building or broadcasting anything, returning the fee it would pay.
func (a *Account) QuoteSendTransaction(ctx context.Context, to string, value int64, feeRatePerVByte int64) (fee int64, err error) {
	recipientKind, recipientNetwork, _, err := wallet.DecodeAddress(to)
	if err != nil {
		return 0, err
	}
	if recipientNetwork != a.network {
		return 0, wallet.ErrInvalidAddress
	}

	if feeRatePerVByte == 0 {
		rate, err := a.client.EstimateFee(ctx, 1)
		if err != nil || rate <= 0 {
			a.logger.Printf("account: estimatefee unavailable (%v), falling back to 1 sat/vB", err)
			feeRatePerVByte = 1
		} else {
			feeRatePerVByte = btcPerKBToSatPerVByte(rate)
		}
	}

	utxos, err := a.fetchUTXOs(ctx)
	if err != nil {
		return 0, err
	}

	selection, err := wallet.SelectUTXOs(utxos, value, feeRatePerVByte, recipientKind, a.kind)
	if err != nil {
		return 0, err
	}
	return selection.Fee, nil
}

// SendTransaction plans, builds, signs, finalizes and broadcasts a
// transaction sending value satoshis to to, returning the resulting txid
// and fee paid.
func (a *Account) SendTransaction(ctx context.Context, to string, value int64, feeRatePerVByte int64) (txid string, fee int64, err error) {
	if feeRatePerVByte == 0 {
		rate, rerr := a.client.EstimateFee(ctx, 1)
		if rerr != nil || rate <= 0 {
			a.logger.Printf("account: estimatefee unavailable (%v), falling back to 1 sat/vB", rerr)
			feeRatePerVByte = 1
		} else {
			feeRatePerVByte = btcPerKBToSatPerVByte(rate)
		}
	}

	utxos, err := a.fetchUTXOs(ctx)
	if err != nil {
		return "", 0, err
	}

	packet, selection, err := wallet.BuildTransaction(utxos, to, value, a.addr, feeRatePerVByte, a.network)
	if err != nil {
		return "", 0, err
	}

	if err := a.attachPrevouts(ctx, packet, selection); err != nil {
		return "", 0, err
	}
	signedTx, err := a.signAndExtract(packet)
	if err != nil {
		return "", 0, err
	}

	// The pre-signing estimate in SelectUTXOs is a worst-case figure; once
	// the transaction is actually signed, reconcile its real vsize against
	// what was planned and, if the true fee is higher, shrink change (or
	// failing that, the recipient amount) and re-sign before broadcasting.
	// ReconcileFee mutates selection.Change/Fee in place even when the
	// recipient amount itself is left untouched, so the broadcast packet
	// must be rebuilt any time the planned fee changed, not only when
	// recipientValue differs from value.
	plannedFee := selection.Fee
	actualFee := wallet.TransactionVsize(signedTx) * feeRatePerVByte
	recipientValue, err := wallet.ReconcileFee(selection, value, actualFee)
	if err != nil {
		return "", 0, err
	}
	if selection.Fee != plannedFee {
		packet, err = wallet.RebuildTransaction(selection, to, recipientValue, a.addr, a.network)
		if err != nil {
			return "", 0, err
		}
		if err := a.attachPrevouts(ctx, packet, selection); err != nil {
			return "", 0, err
		}
		signedTx, err = a.signAndExtract(packet)
		if err != nil {
			return "", 0, err
		}
	}

	var buf bytes.Buffer
	if err := signedTx.Serialize(&buf); err != nil {
		return "", 0, err
	}
	rawHex := hex.EncodeToString(buf.Bytes())

	txid, err = a.client.BroadcastTransaction(ctx, rawHex)
	if err != nil {
		return "", 0, err
	}
	return txid, selection.Fee, nil
}

// attachPrevouts fetches and attaches the full previous transaction for
// every legacy P2PKH input in selection, as required before such inputs can
// be signed.
func (a *Account) attachPrevouts(ctx context.Context, packet *psbt.Packet, selection *wallet.CoinSelection) error {
	for i, u := range selection.Inputs {
		if u.Kind == wallet.P2WPKH {
			continue
		}
		rawHex, err := a.client.GetTransaction(ctx, u.TxID)
		if err != nil {
			return err
		}
		prevTx, err := decodeRawTx(rawHex)
		if err != nil {
			return err
		}
		if err := wallet.SetNonWitnessUtxo(packet, i, prevTx); err != nil {
			return err
		}
	}
	return nil
}

func (a *Account) signAndExtract(packet *psbt.Packet) (*wire.MsgTx, error) {
	if err := a.signer.SignPSBT(packet); err != nil {
		return nil, err
	}
	if err := wallet.Finalize(packet); err != nil {
		return nil, err
	}
	return wallet.Extract(packet)
}

func btcPerKBToSatPerVByte(btcPerKB float64) int64 {
	satPerVByte := int64(btcPerKB * 1e8 / 1000)
	if satPerVByte < 1 {
		return 1
	}
	return satPerVByte
}

func (a *Account) fetchUTXOs(ctx context.Context) ([]wallet.UTXO, error) {
	raw, err := a.client.ListUnspent(ctx, a.scriptHash)
	if err != nil {
		return nil, err
	}
	_, _, hash, err := wallet.DecodeAddress(a.addr)
	if err != nil {
		return nil, err
	}
	script, err := wallet.ScriptPubKeyFor(a.kind, hash)
	if err != nil {
		return nil, err
	}

	out := make([]wallet.UTXO, len(raw))
	for i, u := range raw {
		out[i] = wallet.UTXO{
			TxID:         u.TxHash,
			Vout:         u.TxPos,
			Value:        u.Value,
			ScriptPubKey: script,
			Kind:         a.kind,
		}
	}
	return out, nil
}

// GetTransfers fetches this account's transaction history, emitting one
// Transfer per relevant output (vout): each output paid to this account on
// an incoming transaction, and each output paid to someone else on an
// outgoing one. A transaction's own change output back to this account is
// never itself a Transfer. Pagination is by history entry (transaction),
// not by individual output, so a page can yield more or fewer than Limit
// transfers depending on how many outputs each transaction touches.
func (a *Account) GetTransfers(ctx context.Context, opts GetTransfersOptions) ([]Transfer, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	history, err := a.client.GetHistory(ctx, a.scriptHash)
	if err != nil {
		return nil, err
	}
	// Newest first: Electrum returns ascending confirmation order, with
	// unconfirmed (height <= 0) entries last.
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Height > history[j].Height
	})

	if opts.Skip >= len(history) {
		return nil, nil
	}
	end := opts.Skip + opts.Limit
	if end > len(history) {
		end = len(history)
	}
	page := history[opts.Skip:end]

	_, _, myHash, err := wallet.DecodeAddress(a.addr)
	if err != nil {
		return nil, err
	}
	myScript, err := wallet.ScriptPubKeyFor(a.kind, myHash)
	if err != nil {
		return nil, err
	}

	prevoutCache := make(map[string]*wire.MsgTx)
	var transfers []Transfer

	for _, entry := range page {
		rawHex, err := a.client.GetTransaction(ctx, entry.TxHash)
		if err != nil {
			return nil, err
		}
		tx, err := decodeRawTx(rawHex)
		if err != nil {
			return nil, err
		}

		totalIn, hasSelfInput, err := a.sumInputs(ctx, tx, myScript, prevoutCache)
		if err != nil {
			return nil, err
		}

		var totalOut int64
		for _, out := range tx.TxOut {
			totalOut += out.Value
		}
		txFee := totalIn - totalOut

		for vout, out := range tx.TxOut {
			isSelf := bytes.Equal(out.PkScript, myScript)

			var direction TransferDirection
			switch {
			case hasSelfInput && isSelf:
				// Change returning to ourselves; not a relevant movement.
				continue
			case hasSelfInput:
				direction = DirectionOutgoing
			case isSelf:
				direction = DirectionIncoming
			default:
				continue
			}

			if opts.Direction != nil && *opts.Direction != direction {
				continue
			}

			address, aerr := wallet.AddressFromScript(out.PkScript, a.network)
			if aerr != nil {
				// Non-standard output script (bare multisig, OP_RETURN, ...);
				// carry no address rather than failing the whole page.
				address = ""
			}

			var fee int64
			var recipient string
			if direction == DirectionOutgoing {
				fee = txFee
				recipient = address
			}

			transfers = append(transfers, Transfer{
				TxID:      entry.TxHash,
				Vout:      uint32(vout),
				Address:   address,
				Height:    entry.Height,
				Amount:    out.Value,
				Direction: direction,
				Fee:       fee,
				Recipient: recipient,
			})
		}
	}

	return transfers, nil
}

func (a *Account) sumInputs(ctx context.Context, tx *wire.MsgTx, myScript []byte, cache map[string]*wire.MsgTx) (total int64, hasSelfInput bool, err error) {
	for _, in := range tx.TxIn {
		prevID := in.PreviousOutPoint.Hash.String()
		prevTx, ok := cache[prevID]
		if !ok {
			rawHex, gerr := a.client.GetTransaction(ctx, prevID)
			if gerr != nil {
				return 0, false, fmt.Errorf("%w: %w", errNoPrevout, gerr)
			}
			prevTx, err = decodeRawTx(rawHex)
			if err != nil {
				return 0, false, err
			}
			cache[prevID] = prevTx
		}
		idx := in.PreviousOutPoint.Index
		if int(idx) >= len(prevTx.TxOut) {
			continue
		}
		out := prevTx.TxOut[idx]
		total += out.Value
		if bytes.Equal(out.PkScript, myScript) {
			hasSelfInput = true
		}
	}
	return total, hasSelfInput, nil
}

// GetTransactionReceipt returns the raw transaction for hash if it appears
// in this account's history and has confirmed (height > 0); otherwise nil.
func (a *Account) GetTransactionReceipt(ctx context.Context, hash string) (*wire.MsgTx, error) {
	history, err := a.client.GetHistory(ctx, a.scriptHash)
	if err != nil {
		return nil, err
	}

	var height int64 = -1
	for _, entry := range history {
		if entry.TxHash == hash {
			height = entry.Height
			break
		}
	}
	if height <= 0 {
		return nil, nil
	}

	rawHex, err := a.client.GetTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	return decodeRawTx(rawHex)
}

func decodeRawTx(rawHex string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, err
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return tx, nil
}

package btchdwallet

// FeeRates reports current recommended fee rates in satoshis per vbyte.
type FeeRates struct {
	Normal int64
	Fast   int64
}

// FeeRateSource supplies current network fee-rate estimates to a wallet
// manager. The HTTPS mempool.space collaborator this is modeled on is
// intentionally not implemented here; callers inject their own source
// (or use an Electrum client's EstimateFee as a fallback) since pulling
// in an HTTP client and a fee-oracle API contract is outside this core.
type FeeRateSource interface {
	GetFeeRates() (FeeRates, error)
}

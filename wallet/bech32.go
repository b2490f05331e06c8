package wallet

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// ErrInvalidWitnessProgram is returned when a witness program is outside
// the length bitcoin's consensus rules allow for its witness version.
var ErrInvalidWitnessProgram = errors.New("wallet: invalid witness program")

// Bech32EncodeSegwit encodes a segwit witness program as a BIP-173 (version
// 0) or BIP-350 (version 1+) bech32/bech32m address.
func Bech32EncodeSegwit(hrp string, witnessVersion byte, program []byte) (string, error) {
	if witnessVersion > 16 {
		return "", ErrInvalidWitnessProgram
	}
	if witnessVersion == 0 && len(program) != 20 && len(program) != 32 {
		return "", ErrInvalidWitnessProgram
	}

	converted, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := make([]byte, 0, len(converted)+1)
	data = append(data, witnessVersion)
	data = append(data, converted...)

	if witnessVersion == 0 {
		return bech32.Encode(hrp, data)
	}
	return bech32.EncodeM(hrp, data)
}

// Bech32DecodeSegwit decodes a segwit bech32/bech32m address, returning its
// HRP, witness version and witness program.
func Bech32DecodeSegwit(address string) (hrp string, witnessVersion byte, program []byte, err error) {
	hrp, data, err := bech32.Decode(address)
	if err != nil {
		return "", 0, nil, err
	}
	if len(data) < 1 {
		return "", 0, nil, ErrInvalidWitnessProgram
	}

	witnessVersion = data[0]
	program, err = bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return "", 0, nil, err
	}
	if witnessVersion == 0 && len(program) != 20 && len(program) != 32 {
		return "", 0, nil, ErrInvalidWitnessProgram
	}
	return hrp, witnessVersion, program, nil
}

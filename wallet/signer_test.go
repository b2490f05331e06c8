package wallet

import "testing"

func testHDSigner(t *testing.T, purpose uint32) *HDSigner {
	t.Helper()
	seed, err := SeedFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error = %v", err)
	}
	master, err := NewMasterNode(seed, purpose, Mainnet)
	if err != nil {
		t.Fatalf("NewMasterNode() error = %v", err)
	}
	masterFP, err := master.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	path := AccountPath(purpose, Mainnet, 0, 0, 0)
	leaf, err := master.DerivePath(path)
	if err != nil {
		t.Fatalf("DerivePath() error = %v", err)
	}
	master.Dispose()

	signer, err := NewHDSigner(leaf, purpose, Mainnet, path, masterFP)
	if err != nil {
		t.Fatalf("NewHDSigner() error = %v", err)
	}
	return signer
}

func TestHDSigner_Address(t *testing.T) {
	signer := testHDSigner(t, PurposeBIP84)
	defer signer.Dispose()

	addr, err := signer.Address()
	if err != nil {
		t.Fatalf("Address() error = %v", err)
	}
	if addr != "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu" {
		t.Errorf("Address() = %q, want known BIP-84 test vector address", addr)
	}
}

func TestHDSigner_SignVerifyMessage_RoundTrip(t *testing.T) {
	signer := testHDSigner(t, PurposeBIP84)
	defer signer.Dispose()

	sig, err := signer.SignMessage("hello bitcoin")
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}

	ok, err := signer.VerifyMessage("hello bitcoin", sig)
	if err != nil {
		t.Fatalf("VerifyMessage() error = %v", err)
	}
	if !ok {
		t.Error("VerifyMessage() = false, want true")
	}
}

func TestHDSigner_VerifyMessage_WrongMessage(t *testing.T) {
	signer := testHDSigner(t, PurposeBIP84)
	defer signer.Dispose()

	sig, err := signer.SignMessage("original message")
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}

	ok, err := signer.VerifyMessage("different message", sig)
	if err != nil {
		t.Fatalf("VerifyMessage() error = %v", err)
	}
	if ok {
		t.Error("VerifyMessage() = true for mismatched message, want false")
	}
}

func TestHDSigner_Dispose(t *testing.T) {
	signer := testHDSigner(t, PurposeBIP84)
	signer.Dispose()

	if _, err := signer.Address(); err != ErrDisposed {
		t.Errorf("Address() after Dispose: error = %v, want ErrDisposed", err)
	}
	if _, err := signer.SignMessage("x"); err != ErrDisposed {
		t.Errorf("SignMessage() after Dispose: error = %v, want ErrDisposed", err)
	}

	// Disposing twice must not panic.
	signer.Dispose()
}

func TestHDSigner_SignPSBT_MasterFingerprintIsRoot(t *testing.T) {
	seed, err := SeedFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error = %v", err)
	}
	master, err := NewMasterNode(seed, PurposeBIP84, Mainnet)
	if err != nil {
		t.Fatalf("NewMasterNode() error = %v", err)
	}
	masterFP, err := master.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	path := AccountPath(PurposeBIP84, Mainnet, 0, 0, 0)
	leaf, err := master.DerivePath(path)
	if err != nil {
		t.Fatalf("DerivePath() error = %v", err)
	}
	leafFP, err := leaf.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	if leafFP == masterFP {
		t.Fatal("test setup invalid: leaf and master fingerprints must differ")
	}
	master.Dispose()

	signer, err := NewHDSigner(leaf, PurposeBIP84, Mainnet, path, masterFP)
	if err != nil {
		t.Fatalf("NewHDSigner() error = %v", err)
	}
	defer signer.Dispose()

	myAddr, err := signer.Address()
	if err != nil {
		t.Fatalf("Address() error = %v", err)
	}
	_, _, myHash, err := DecodeAddress(myAddr)
	if err != nil {
		t.Fatalf("DecodeAddress() error = %v", err)
	}
	myScript, err := ScriptPubKeyFor(P2WPKH, myHash)
	if err != nil {
		t.Fatalf("ScriptPubKeyFor() error = %v", err)
	}

	utxos := []UTXO{{TxID: "11", Vout: 0, Value: 100000, ScriptPubKey: myScript, Kind: P2WPKH}}
	packet, _, err := BuildTransaction(utxos, myAddr, 10000, myAddr, 2, Mainnet)
	if err != nil {
		t.Fatalf("BuildTransaction() error = %v", err)
	}
	if err := signer.SignPSBT(packet); err != nil {
		t.Fatalf("SignPSBT() error = %v", err)
	}

	derivs := packet.Inputs[0].Bip32Derivation
	if len(derivs) != 1 {
		t.Fatalf("len(Bip32Derivation) = %d, want 1", len(derivs))
	}
	want := uint32(masterFP[0])<<24 | uint32(masterFP[1])<<16 | uint32(masterFP[2])<<8 | uint32(masterFP[3])
	if derivs[0].MasterKeyFingerprint != want {
		t.Errorf("MasterKeyFingerprint = %08x, want %08x (root, not leaf)", derivs[0].MasterKeyFingerprint, want)
	}
}

func TestBip137Header_Offsets(t *testing.T) {
	tests := []struct {
		name       string
		recID      byte
		compressed bool
		purpose    uint32
		want       byte
	}{
		{"uncompressed legacy", 0, false, PurposeBIP44, 27},
		{"compressed legacy", 0, true, PurposeBIP44, 31},
		{"compressed segwit", 0, true, PurposeBIP84, 39},
		{"recid 2 compressed segwit", 2, true, PurposeBIP84, 41},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bip137Header(tt.recID, tt.compressed, tt.purpose); got != tt.want {
				t.Errorf("bip137Header() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKeySigner_SignVerifyMessage_RoundTrip(t *testing.T) {
	signer, err := GenerateKeySigner(P2WPKH, Mainnet)
	if err != nil {
		t.Fatalf("GenerateKeySigner() error = %v", err)
	}
	defer signer.Dispose()

	sig, err := signer.SignMessage("test")
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}
	ok, err := signer.VerifyMessage("test", sig)
	if err != nil {
		t.Fatalf("VerifyMessage() error = %v", err)
	}
	if !ok {
		t.Error("VerifyMessage() = false, want true")
	}
}

func TestNewKeySigner_InvalidLength(t *testing.T) {
	if _, err := NewKeySigner([]byte{0x01}, P2PKH, Mainnet); err != ErrInvalidPrivateKey {
		t.Errorf("error = %v, want ErrInvalidPrivateKey", err)
	}
}

func TestKeySigner_Dispose(t *testing.T) {
	signer, err := GenerateKeySigner(P2PKH, Mainnet)
	if err != nil {
		t.Fatalf("GenerateKeySigner() error = %v", err)
	}
	signer.Dispose()

	if _, err := signer.Address(); err != ErrDisposed {
		t.Errorf("Address() after Dispose: error = %v, want ErrDisposed", err)
	}
}

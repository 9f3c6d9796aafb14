package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/digital-seal/digital_seal/internal/logging"
)

func signPersonal(t *testing.T, key *ecdsa.PrivateKey, message string) []byte {
	t.Helper()
	digest := crypto.Keccak256([]byte(fmt.Sprintf("%s%d%s", personalMessagePrefix, len(message), message)))
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func TestVerifyValidSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	message := "Sign this message to authenticate with Digital Seal"
	sig := signPersonal(t, key, message)

	v := NewVerifier(logging.Discard())

	if !v.Verify(address, message, "0x"+hex.EncodeToString(sig)) {
		t.Fatal("expected valid signature with v in {0,1}")
	}

	// MetaMask-style recovery id.
	sig[64] += 27
	if !v.Verify(address, message, "0x"+hex.EncodeToString(sig)) {
		t.Fatal("expected valid signature with v in {27,28}")
	}

	// Address comparison must be case-insensitive.
	if !v.Verify(upperHex(address), message, "0x"+hex.EncodeToString(sig)) {
		t.Fatal("expected case-insensitive address match")
	}
}

// upperHex uppercases the hex digits while keeping the 0x prefix.
func upperHex(address string) string {
	out := []byte(address)
	for i := 2; i < len(out); i++ {
		if out[i] >= 'a' && out[i] <= 'f' {
			out[i] -= 'a' - 'A'
		}
	}
	return string(out)
}

func TestVerifyRejectsTampering(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	message := "nonce:deadbeef"
	sig := signPersonal(t, key, message)

	v := NewVerifier(logging.Discard())

	flipped := make([]byte, len(sig))
	copy(flipped, sig)
	flipped[10] ^= 0x01
	if v.Verify(address, message, "0x"+hex.EncodeToString(flipped)) {
		t.Fatal("bit-flipped signature must not verify")
	}

	if v.Verify(address, message+"x", "0x"+hex.EncodeToString(sig)) {
		t.Fatal("altered message must not verify")
	}

	other, _ := crypto.GenerateKey()
	otherAddr := crypto.PubkeyToAddress(other.PublicKey).Hex()
	if v.Verify(otherAddr, message, "0x"+hex.EncodeToString(sig)) {
		t.Fatal("wrong address must not verify")
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	v := NewVerifier(logging.Discard())

	cases := []struct {
		name      string
		address   string
		signature string
	}{
		{"not hex", "0x8ba1f109551bD432803012645Ac136ddd64DBA72", "0xzz"},
		{"wrong length", "0x8ba1f109551bD432803012645Ac136ddd64DBA72", "0xdeadbeef"},
		{"bad address", "not-an-address", "0x" + strings.Repeat("ab", 65)},
		{"empty signature", "0x8ba1f109551bD432803012645Ac136ddd64DBA72", ""},
	}
	for _, tc := range cases {
		if v.Verify(tc.address, "hello", tc.signature) {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}
}

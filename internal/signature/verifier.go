// Package signature verifies Ethereum personal_sign signatures produced by
// browser wallets. Verification is pure and side-effect-free; any malformed
// input yields false rather than an error.
package signature

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const personalMessagePrefix = "\x19Ethereum Signed Message:\n"

// Verifier recovers signer addresses from personal_sign signatures.
type Verifier struct {
	logger *slog.Logger
}

// NewVerifier builds a Verifier that logs rejection reasons to the given logger.
func NewVerifier(logger *slog.Logger) *Verifier {
	return &Verifier{logger: logger}
}

// Verify reports whether signature over message was produced by the key behind
// address. The message is hashed with the standard personal-message prefix;
// the 65-byte signature carries r||s||v with v in {0,1} or {27,28}.
func (v *Verifier) Verify(address, message, signature string) bool {
	if !common.IsHexAddress(address) {
		v.logger.Debug("signature rejected: malformed address", slog.String("address", address))
		return false
	}
	want := common.HexToAddress(address)

	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		v.logger.Debug("signature rejected: not hex", slog.String("address", address))
		return false
	}
	if len(sig) != crypto.SignatureLength {
		v.logger.Debug("signature rejected: wrong length",
			slog.String("address", address), slog.Int("length", len(sig)))
		return false
	}

	digest := crypto.Keccak256([]byte(fmt.Sprintf("%s%d%s", personalMessagePrefix, len(message), message)))

	// go-ethereum expects the recovery id in {0,1}; wallets commonly emit
	// {27,28}. Try the supplied parity first, then the alternate.
	recID := sig[crypto.RecoveryIDOffset]
	if recID >= 27 {
		recID -= 27
	}
	if recID > 1 {
		recID = 0
	}

	candidate := make([]byte, crypto.SignatureLength)
	copy(candidate, sig[:crypto.RecoveryIDOffset])
	for _, id := range []byte{recID, 1 - recID} {
		candidate[crypto.RecoveryIDOffset] = id
		pub, err := crypto.SigToPub(digest, candidate)
		if err != nil {
			continue
		}
		if crypto.PubkeyToAddress(*pub) == want {
			return true
		}
	}

	v.logger.Debug("signature rejected: recovered address mismatch", slog.String("address", address))
	return false
}

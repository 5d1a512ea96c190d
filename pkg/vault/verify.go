package vault

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifySignature checks that signature over message was produced by the
// ed25519 key behind signerAddress ("0x"+hex(pubkey)).
func VerifySignature(signerAddress string, message, signature []byte) (bool, error) {
	pub, err := addressToPubKey(signerAddress)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, message, signature), nil
}

func addressToPubKey(address string) (ed25519.PublicKey, error) {
	clean := strings.TrimPrefix(address, "0x")
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("vault: malformed address %q: %w", address, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("vault: address %q is not an ed25519 public key", address)
	}
	return ed25519.PublicKey(raw), nil
}

// Package keys parses wallet key material: sr25519 secret URIs for
// signing and SS58 addresses for identifying hotkeys.
package keys

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/vedhavyas/go-subkey/v2"
)

// SS58Prefix — Subtensor uses the generic Substrate address prefix.
const SS58Prefix = 42

// Coldkey parses the coldkey secret (mnemonic, hex seed, or derivation
// URI such as //Alice) into a signing pair.
func Coldkey(secret string) (signature.KeyringPair, error) {
	pair, err := signature.KeyringPairFromSecret(secret, SS58Prefix)
	if err != nil {
		return signature.KeyringPair{}, fmt.Errorf("parse coldkey: %w", err)
	}
	return pair, nil
}

// HotkeyPub resolves the hotkey to its 32-byte public key. Accepts an
// SS58 address or a secret URI; registration only needs the public key,
// so holding the hotkey's secret is not required.
func HotkeyPub(s string) ([]byte, error) {
	if _, pub, err := subkey.SS58Decode(s); err == nil {
		return pub, nil
	}
	pair, err := signature.KeyringPairFromSecret(s, SS58Prefix)
	if err != nil {
		return nil, fmt.Errorf("parse hotkey: %w", err)
	}
	return pair.PublicKey, nil
}

// Address renders a public key as an SS58 address.
func Address(pub []byte) string {
	return subkey.SS58Encode(pub, SS58Prefix)
}

// Package hdwallet implements BIP-39 mnemonics and BIP-32/44 key derivation
// for Ethereum-compatible accounts.
package hdwallet

import (
	"fmt"
	"strings"

	"github.com/nando-os/ghost-wallet/errno"
	"github.com/tyler-smith/go-bip39"
)

// Entropy bounds accepted by GenerateMnemonic.
const (
	MinStrengthBits = 128
	MaxStrengthBits = 256

	// DefaultStrengthBits produces a 12-word phrase.
	DefaultStrengthBits = 128
)

// SeedSize is the length of a BIP-39 seed in bytes.
const SeedSize = 64

// GenerateMnemonic draws strengthBits of entropy from crypto/rand and encodes
// it as a BIP-39 phrase: 12 words for 128 bits up to 24 words for 256.
func GenerateMnemonic(strengthBits int) (string, error) {
	if strengthBits < MinStrengthBits || strengthBits > MaxStrengthBits || strengthBits%32 != 0 {
		return "", errno.New(errno.InvalidStrength,
			"strength must be a multiple of 32 in [%d, %d], got %d", MinStrengthBits, MaxStrengthBits, strengthBits)
	}
	entropy, err := bip39.NewEntropy(strengthBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	defer wipe(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks word count, wordlist membership and the embedded
// checksum. It never returns an error.
func ValidateMnemonic(mnemonic string) bool {
	normalized := NormalizeMnemonic(mnemonic)
	if normalized == "" {
		return false
	}
	return bip39.IsMnemonicValid(normalized)
}

// NormalizeMnemonic collapses runs of whitespace to single spaces.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}

// WordCount returns the number of words in a phrase.
func WordCount(mnemonic string) int {
	return len(strings.Fields(mnemonic))
}

// SeedFromMnemonic stretches a mnemonic and optional passphrase into a 64-byte
// seed with PBKDF2-HMAC-SHA512 (2048 rounds). The output is deterministic.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	normalized := NormalizeMnemonic(mnemonic)
	if !ValidateMnemonic(normalized) {
		return nil, errno.New(errno.InvalidMnemonic, "mnemonic failed checksum validation")
	}
	seed, err := bip39.NewSeedWithErrorChecking(normalized, passphrase)
	if err != nil {
		return nil, errno.Wrap(errno.InvalidMnemonic, err, "derive seed")
	}
	return seed, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

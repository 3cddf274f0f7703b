package hdwallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/nando-os/ghost-wallet/errno"
)

// BIP-44 constants for Ethereum-compatible chains.
// Full path: m/44'/60'/0'/0/index
const (
	PurposeBIP44   = 44
	CoinTypeEther  = 60
	DefaultAccount = 0
	ChangeExternal = 0

	// PathTemplate is formatted with the address index.
	PathTemplate = "m/44'/60'/0'/0/%d"
)

// AccountPath returns the BIP-44 path for an address index.
func AccountPath(index uint32) string {
	return fmt.Sprintf(PathTemplate, index)
}

// ParsePath parses a derivation path such as "m/44'/60'/0'/0/3" into child
// indices. Hardened segments may use either ' or h as suffix.
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimSpace(path)
	if path != "m" && !strings.HasPrefix(path, "m/") {
		return nil, fmt.Errorf("invalid derivation path %q: must start with m/", path)
	}
	path = strings.TrimPrefix(strings.TrimPrefix(path, "m"), "/")
	if path == "" {
		return nil, nil
	}

	segments := strings.Split(path, "/")
	indices := make([]uint32, 0, len(segments))
	for _, segment := range segments {
		hardened := false
		if strings.HasSuffix(segment, "'") || strings.HasSuffix(segment, "h") {
			hardened = true
			segment = segment[:len(segment)-1]
		}

		val, err := strconv.ParseUint(segment, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid path segment %q: %w", segment, err)
		}
		if val >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("path segment %q out of range", segment)
		}

		index := uint32(val)
		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, index)
	}
	return indices, nil
}

// DerivePath walks path from the master key of seed and returns the 32-byte
// leaf private key. The caller owns the returned slice and should wipe it.
func DerivePath(seed []byte, path string) ([]byte, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	// The network params only affect xprv serialization, never the key bytes.
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	defer master.Zero()

	key := master
	for _, index := range indices {
		child, err := key.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", index, err)
		}
		if key != master {
			key.Zero()
		}
		key = child
	}
	if key != master {
		defer key.Zero()
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("leaf private key: %w", err)
	}
	raw := priv.Serialize()
	priv.Zero()
	return raw, nil
}

// DeriveAccount derives the wallet at m/44'/60'/0'/0/index.
func DeriveAccount(seed []byte, index uint32) (*Wallet, error) {
	path := AccountPath(index)
	priv, err := DerivePath(seed, path)
	if err != nil {
		return nil, fmt.Errorf("derive %s: %w", path, err)
	}
	defer wipe(priv)

	w, err := walletFromKeyBytes(priv)
	if err != nil {
		return nil, err
	}
	w.Seed = append([]byte(nil), seed...)
	w.DerivationPath = path
	return w, nil
}

// FromMnemonic validates mnemonic, stretches it into a seed and derives the
// account at index.
func FromMnemonic(mnemonic, passphrase string, index uint32) (*Wallet, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, errno.New(errno.InvalidMnemonic, "mnemonic failed checksum validation")
	}
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer wipe(seed)

	w, err := DeriveAccount(seed, index)
	if err != nil {
		return nil, err
	}
	w.Mnemonic = NormalizeMnemonic(mnemonic)
	return w, nil
}

// NewWallet generates a fresh mnemonic of the given strength and derives
// account 0 from it.
func NewWallet(strengthBits int) (*Wallet, error) {
	mnemonic, err := GenerateMnemonic(strengthBits)
	if err != nil {
		return nil, err
	}
	return FromMnemonic(mnemonic, "", 0)
}

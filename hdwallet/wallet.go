package hdwallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nando-os/ghost-wallet/errno"
)

// PrivateKeySize is the length of a raw secp256k1 private key.
const PrivateKeySize = 32

// Wallet is a derived or imported account. Mnemonic and DerivationPath are
// empty for wallets imported from a raw private key.
type Wallet struct {
	Mnemonic       string
	Seed           []byte
	DerivationPath string
	PrivateKey     []byte
	PublicKey      []byte // uncompressed, 65 bytes
	Address        common.Address
}

// HasMnemonic reports whether the wallet can be recovered from a phrase.
func (w *Wallet) HasMnemonic() bool {
	return w.Mnemonic != ""
}

// PrivateKeyHex returns the 0x-prefixed private key.
func (w *Wallet) PrivateKeyHex() string {
	return hexutil.Encode(w.PrivateKey)
}

// PublicKeyHex returns the 0x-prefixed uncompressed public key.
func (w *Wallet) PublicKeyHex() string {
	return hexutil.Encode(w.PublicKey)
}

// Wipe zeroes the seed and private key held by the wallet.
func (w *Wallet) Wipe() {
	wipe(w.Seed)
	wipe(w.PrivateKey)
	w.Seed = nil
	w.PrivateKey = nil
	w.Mnemonic = ""
}

// FromPrivateKey imports a hex encoded 32-byte key, with or without 0x.
func FromPrivateKey(hexKey string) (*Wallet, error) {
	raw, err := decodePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	defer wipe(raw)
	return walletFromKeyBytes(raw)
}

// WithPrivateKey parses hexKey, hands the key to fn and zeroes it once fn
// returns, whether it succeeded, failed or panicked.
func WithPrivateKey(hexKey string, fn func(key *ecdsa.PrivateKey) error) error {
	raw, err := decodePrivateKey(hexKey)
	if err != nil {
		return err
	}
	defer wipe(raw)

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return errno.Wrap(errno.InvalidPrivateKey, err, "not a valid secp256k1 scalar")
	}
	defer ZeroKey(key)

	return fn(key)
}

// AddressFromPrivateKey returns the address controlled by hexKey without
// keeping the key around.
func AddressFromPrivateKey(hexKey string) (common.Address, error) {
	var addr common.Address
	err := WithPrivateKey(hexKey, func(key *ecdsa.PrivateKey) error {
		addr = crypto.PubkeyToAddress(key.PublicKey)
		return nil
	})
	return addr, err
}

// ZeroKey overwrites the secret scalar of key in place.
func ZeroKey(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	b := key.D.Bits()
	for i := range b {
		b[i] = 0
	}
}

func decodePrivateKey(hexKey string) ([]byte, error) {
	s := strings.TrimSpace(hexKey)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*PrivateKeySize {
		return nil, errno.New(errno.InvalidPrivateKey, "private key must be %d bytes, got %d hex chars", PrivateKeySize, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errno.Wrap(errno.InvalidPrivateKey, err, "private key is not hex")
	}
	return raw, nil
}

func walletFromKeyBytes(raw []byte) (*Wallet, error) {
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errno.Wrap(errno.InvalidPrivateKey, err, "not a valid secp256k1 scalar")
	}
	defer ZeroKey(key)

	priv := make([]byte, PrivateKeySize)
	copy(priv, raw)
	return &Wallet{
		PrivateKey: priv,
		PublicKey:  crypto.FromECDSAPub(&key.PublicKey),
		Address:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (w *Wallet) String() string {
	if w.HasMnemonic() {
		return fmt.Sprintf("wallet %s (%s)", w.Address.Hex(), w.DerivationPath)
	}
	return fmt.Sprintf("wallet %s (imported key)", w.Address.Hex())
}

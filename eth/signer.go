package eth

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/nando-os/ghost-wallet/hdwallet"
	"github.com/sirupsen/logrus"
)

// Signer produces EIP-155 signed legacy transactions. Signatures are
// deterministic (RFC 6979), so the same input always yields the same hash.
type Signer struct {
	log *logrus.Entry
}

func NewSigner() *Signer {
	return &Signer{log: logrus.WithField("component", "signer")}
}

// Sign signs unsigned with key. The key is not retained.
func (s *Signer) Sign(unsigned *UnsignedTransaction, key *ecdsa.PrivateKey) (*SignedTransaction, error) {
	if unsigned == nil {
		return nil, errno.New(errno.SigningError, "nothing to sign")
	}
	if unsigned.ChainID == nil || unsigned.ChainID.Sign() <= 0 {
		return nil, errno.New(errno.SigningError, "chain id is required for replay protection")
	}
	if !validScalar(key) {
		return nil, errno.New(errno.SigningError, "private key is not a valid secp256k1 scalar")
	}

	to := unsigned.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    unsigned.Nonce,
		GasPrice: unsigned.GasPrice,
		Gas:      unsigned.GasLimit,
		To:       &to,
		Value:    unsigned.Value,
		Data:     unsigned.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(unsigned.ChainID), key)
	if err != nil {
		return nil, errno.Wrap(errno.SigningError, err, "failed to sign transaction")
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, errno.Wrap(errno.SigningError, err, "failed to encode transaction")
	}

	s.log.WithField("hash", signed.Hash().Hex()).Debug("Transaction signed")
	return &SignedTransaction{Raw: raw, Hash: signed.Hash()}, nil
}

// SignWithHexKey parses hexKey for the duration of the call only. The key
// must control unsigned.From.
func (s *Signer) SignWithHexKey(unsigned *UnsignedTransaction, hexKey string) (*SignedTransaction, error) {
	var out *SignedTransaction
	err := hdwallet.WithPrivateKey(hexKey, func(key *ecdsa.PrivateKey) error {
		if unsigned != nil && crypto.PubkeyToAddress(key.PublicKey) != unsigned.From {
			return errno.New(errno.SigningError, "key does not control sender %s", unsigned.From.Hex())
		}
		signed, err := s.Sign(unsigned, key)
		if err != nil {
			return err
		}
		out = signed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validScalar(key *ecdsa.PrivateKey) bool {
	if key == nil || key.D == nil {
		return false
	}
	return key.D.Sign() > 0 && key.D.Cmp(crypto.S256().Params().N) < 0
}

package eth

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/nando-os/ghost-wallet/units"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Builder assembles unsigned transfers. It validates inputs before any
// network call and never checks balances.
type Builder struct {
	chain  Chain
	config Config
	tokens *TokenInterface
	log    *logrus.Entry
}

func NewBuilder(chain Chain, cfg Config) *Builder {
	return &Builder{
		chain:  chain,
		config: cfg,
		tokens: defaultTokenInterface,
		log:    logrus.WithField("component", "builder"),
	}
}

// BuildNativeTransfer builds a plain value transfer of amount ether. A nil
// gasPrice asks the node and falls back to the configured default.
func (b *Builder) BuildNativeTransfer(ctx context.Context, from, to string, amount decimal.Decimal, gasPrice *big.Int) (*UnsignedTransaction, error) {
	fromAddr, err := ToChecksumAddress(from)
	if err != nil {
		return nil, err
	}
	toAddr, err := ToChecksumAddress(to)
	if err != nil {
		return nil, err
	}
	value, err := units.ToWei(amount)
	if err != nil {
		return nil, err
	}

	tx := &UnsignedTransaction{
		From:     fromAddr,
		To:       toAddr,
		Value:    value,
		GasLimit: b.config.NativeGasLimit(),
		ChainID:  b.chain.ChainID(),
	}
	if err := b.complete(ctx, tx, gasPrice); err != nil {
		return nil, err
	}
	return tx, nil
}

// BuildTokenTransfer builds a contract call moving amount tokens. The
// transaction carries no native value; the token contract is the recipient
// and the beneficiary is encoded in the payload.
func (b *Builder) BuildTokenTransfer(ctx context.Context, token *TokenDescriptor, from, to string, amount decimal.Decimal, gasPrice *big.Int) (*UnsignedTransaction, error) {
	if token == nil {
		return nil, errno.New(errno.InvalidAddress, "token descriptor is required")
	}
	fromAddr, err := ToChecksumAddress(from)
	if err != nil {
		return nil, err
	}
	toAddr, err := ToChecksumAddress(to)
	if err != nil {
		return nil, err
	}
	raw, err := units.ToBaseUnits(amount, token.Decimals)
	if err != nil {
		return nil, err
	}
	data, err := b.tokens.EncodeTransfer(toAddr, raw)
	if err != nil {
		return nil, err
	}

	tx := &UnsignedTransaction{
		From:     fromAddr,
		To:       token.Address,
		Value:    new(big.Int),
		Data:     data,
		GasLimit: b.config.TokenGasLimit(),
		ChainID:  b.chain.ChainID(),
	}
	if err := b.complete(ctx, tx, gasPrice); err != nil {
		return nil, err
	}
	return tx, nil
}

// complete fills nonce, gas price and, when enabled, an estimated gas limit.
func (b *Builder) complete(ctx context.Context, tx *UnsignedTransaction, gasPrice *big.Int) error {
	nonce, err := b.chain.GetTransactionCount(ctx, tx.From)
	if err != nil {
		return err
	}
	tx.Nonce = nonce
	tx.GasPrice = b.resolveGasPrice(ctx, gasPrice)

	if b.config.EstimateGas() {
		if err := b.estimateGasAndSetLimit(ctx, tx); err != nil {
			return err
		}
	}

	b.log.WithFields(logrus.Fields{
		"from":      tx.From.Hex(),
		"to":        tx.To.Hex(),
		"nonce":     tx.Nonce,
		"gas_limit": tx.GasLimit,
		"gas_price": tx.GasPrice.String(),
	}).Debug("Transaction built")
	return nil
}

func (b *Builder) resolveGasPrice(ctx context.Context, explicit *big.Int) *big.Int {
	if explicit != nil && explicit.Sign() > 0 {
		return new(big.Int).Set(explicit)
	}
	price, err := b.chain.GetGasPrice(ctx)
	if err != nil || price == nil || price.Sign() <= 0 {
		fallback := b.config.DefaultGasPrice()
		b.log.WithError(err).WithField("gas_price", fallback.String()).Warn("Gas price unavailable, using configured default")
		return fallback
	}
	return price
}

// estimateGasAndSetLimit replaces the fixed gas budget with a buffered node
// estimate. A failed estimate keeps the fixed budget.
func (b *Builder) estimateGasAndSetLimit(ctx context.Context, tx *UnsignedTransaction) error {
	to := tx.To
	msg := ethereum.CallMsg{
		From:  tx.From,
		To:    &to,
		Value: tx.Value,
		Data:  tx.Data,
	}

	estimated, err := b.chain.EstimateGas(ctx, msg)
	if err != nil {
		b.log.WithError(err).WithField("gas_limit", tx.GasLimit).Warn("Failed to estimate gas, keeping fixed limit")
		return nil
	}

	buffer := b.config.GasLimitBufferSimple()
	if len(tx.Data) > 0 {
		buffer = b.config.GasLimitBufferComplex()
	}
	tx.GasLimit = uint64(float64(estimated) * buffer)
	b.log.WithFields(logrus.Fields{
		"estimated":   estimated,
		"buffer":      buffer,
		"with_buffer": tx.GasLimit,
	}).Debug("Gas limit calculated")

	// Validate against network gas limit, transaction will get blocked if goes above it
	blockLimit, err := b.chain.BlockGasLimit(ctx)
	if err == nil && blockLimit > 0 {
		maxGas := blockLimit * 2 / 3
		if tx.GasLimit > maxGas {
			return fmt.Errorf("gas limit %d exceeds maximum allowed %d", tx.GasLimit, maxGas)
		}
	}
	return nil
}

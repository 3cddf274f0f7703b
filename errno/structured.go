package errno

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// InsufficientBalanceError is returned by the pre-flight balance gate before
// anything is built, signed or broadcast. Amounts are in base units.
type InsufficientBalanceError struct {
	Address   common.Address
	Symbol    string
	Decimals  uint8
	Available *big.Int
	Required  *big.Int
	Shortfall *big.Int

	// FundingSources is only set when Available is exactly zero.
	FundingSources []string
}

// NewInsufficientBalance computes the shortfall from available and required.
func NewInsufficientBalance(addr common.Address, symbol string, decimals uint8, available, required *big.Int) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		Address:   addr,
		Symbol:    symbol,
		Decimals:  decimals,
		Available: new(big.Int).Set(available),
		Required:  new(big.Int).Set(required),
		Shortfall: new(big.Int).Sub(required, available),
	}
}

// ZeroBalance reports whether the account holds nothing at all.
func (e *InsufficientBalanceError) ZeroBalance() bool {
	return e.Available != nil && e.Available.Sign() == 0
}

func (e *InsufficientBalanceError) Error() string {
	msg := fmt.Sprintf("%s: available %s %s, required %s %s, short by %s %s",
		InsufficientBalance,
		human(e.Available, e.Decimals), e.Symbol,
		human(e.Required, e.Decimals), e.Symbol,
		human(e.Shortfall, e.Decimals), e.Symbol)
	if len(e.FundingSources) > 0 {
		msg += fmt.Sprintf("; %s holds no %s, fund it from: %s",
			e.Address.Hex(), e.Symbol, strings.Join(e.FundingSources, ", "))
	}
	return msg
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}

// ConfirmationTimeoutError means the observation window elapsed. The
// transaction may still be mined later and TxHash remains trackable.
type ConfirmationTimeoutError struct {
	TxHash common.Hash
	Waited time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("%s: no receipt for %s after %s; the transaction may still confirm, keep tracking the hash",
		ConfirmationTimeout, e.TxHash.Hex(), e.Waited.Round(time.Millisecond))
}

func (e *ConfirmationTimeoutError) Is(target error) bool {
	return target == ErrConfirmationTimeout
}

func human(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

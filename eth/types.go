package eth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// UnsignedTransaction is a fully specified legacy transaction waiting for a
// signature. Nonce is read fresh for every build.
type UnsignedTransaction struct {
	From     common.Address `json:"from"`
	To       common.Address `json:"to"`
	Value    *big.Int       `json:"value"`
	Data     []byte         `json:"data"`
	GasLimit uint64         `json:"gas_limit"`
	GasPrice *big.Int       `json:"gas_price"`
	Nonce    uint64         `json:"nonce"`
	ChainID  *big.Int       `json:"chain_id"`
}

// SignedTransaction holds the canonical encoding ready for broadcast.
type SignedTransaction struct {
	Raw  []byte      `json:"raw"`
	Hash common.Hash `json:"hash"`
}

// TxStatus is the observed state of a transaction.
type TxStatus int

const (
	StatusPending TxStatus = iota
	StatusSuccess
	StatusFailed
	StatusNotFound
)

func (s TxStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

func (s TxStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TransactionResult is what the watcher or a status query observed. Block
// and gas fields are only set once a receipt exists.
type TransactionResult struct {
	TxHash              common.Hash `json:"tx_hash"`
	Status              TxStatus    `json:"status"`
	BlockNumber         *uint64     `json:"block_number,omitempty"`
	GasUsed             *uint64     `json:"gas_used,omitempty"`
	ConfirmationSeconds *float64    `json:"confirmation_seconds,omitempty"`
	ExplorerURL         string      `json:"explorer_url,omitempty"`
}

// IsTerminal reports whether the status can no longer change.
func (r *TransactionResult) IsTerminal() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailed
}

// TokenDescriptor describes a fungible token contract. Decimals always come
// from the contract itself.
type TokenDescriptor struct {
	Address     common.Address `json:"address"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Decimals    uint8          `json:"decimals"`
	TotalSupply *big.Int       `json:"total_supply"`
}

// Balance is an amount held by Address, in base units and human units.
type Balance struct {
	Address  common.Address  `json:"address"`
	Symbol   string          `json:"symbol"`
	Decimals uint8           `json:"decimals"`
	Raw      *big.Int        `json:"raw"`
	Amount   decimal.Decimal `json:"amount"`
}

// TokenBalance pairs a balance with the token it is denominated in.
type TokenBalance struct {
	Token   *TokenDescriptor `json:"token"`
	Balance *Balance         `json:"balance"`
}

// Portfolio is the native balance plus every token that could be read.
// Tokens that failed are listed in Errors keyed by contract address.
type Portfolio struct {
	Address common.Address    `json:"address"`
	Native  *Balance          `json:"native"`
	Tokens  []*TokenBalance   `json:"tokens"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// TransferResult is returned by the send operations. Confirmation is nil
// unless the caller asked to wait.
type TransferResult struct {
	TxHash       common.Hash        `json:"tx_hash"`
	From         common.Address     `json:"from"`
	To           common.Address     `json:"to"`
	Amount       decimal.Decimal    `json:"amount"`
	Symbol       string             `json:"symbol"`
	Token        *TokenDescriptor   `json:"token,omitempty"`
	Nonce        uint64             `json:"nonce"`
	GasPrice     *big.Int           `json:"gas_price"`
	ExplorerURL  string             `json:"explorer_url,omitempty"`
	Confirmation *TransactionResult `json:"confirmation,omitempty"`
}

// NetworkInfo summarises the chain the client is connected to.
type NetworkInfo struct {
	ChainID      *big.Int `json:"chain_id"`
	LatestBlock  uint64   `json:"latest_block"`
	GasPrice     *big.Int `json:"gas_price"`
	NativeSymbol string   `json:"native_symbol"`
	ExplorerURL  string   `json:"explorer_url,omitempty"`
	Faucets      []string `json:"faucets,omitempty"`
}

// Account is a labelled sender configured through ETH_ACCOUNTS. Only the
// address is kept; the key is read again whenever the account signs.
type Account struct {
	Label   string         `json:"label"`
	Address common.Address `json:"address"`
}

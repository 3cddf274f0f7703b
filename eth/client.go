package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/sirupsen/logrus"
)

// EthClient is the subset of *ethclient.Client the wallet uses, so it can be
// mocked in tests.
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Ensure *ethclient.Client implements EthClient
var _ EthClient = (*ethclient.Client)(nil)

// Chain is the RPC collaborator the transfer pipeline talks to. It is passed
// explicitly to every component.
type Chain interface {
	ChainID() *big.Int
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	GetTransactionCount(ctx context.Context, address common.Address) (uint64, error)
	GetGasPrice(ctx context.Context) (*big.Int, error)
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
	BlockGasLimit(ctx context.Context) (uint64, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

var _ Chain = (*ChainClient)(nil)

// ChainClient implements Chain on top of an EthClient bound to one chain id.
type ChainClient struct {
	client  EthClient
	chainId *big.Int
	log     *logrus.Entry
}

// NewChainClient wraps an already connected client.
func NewChainClient(client EthClient, chainId int64) *ChainClient {
	return &ChainClient{
		client:  client,
		chainId: big.NewInt(chainId),
		log:     logrus.WithField("component", "chain"),
	}
}

// Dial connects to cfg.RPCURL() and checks that the node serves
// cfg.ChainID().
func Dial(ctx context.Context, cfg Config) (*ChainClient, error) {
	log := logrus.WithField("component", "chain")

	if cfg.RPCURL() == "" {
		return nil, errno.New(errno.NetworkUnavailable, envRpcURL+" is not set")
	}

	// HTTP_PROXY and HTTPS_PROXY are picked up by ethclient.DialContext
	if os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" {
		log.WithFields(logrus.Fields{
			"http_proxy":  os.Getenv("HTTP_PROXY"),
			"https_proxy": os.Getenv("HTTPS_PROXY"),
		}).Info("Connecting to Ethereum network via proxy")
	}

	log.WithField("url", cfg.RPCURL()).Info("Connecting to Ethereum RPC")
	client, err := ethclient.DialContext(ctx, cfg.RPCURL())
	if err != nil {
		return nil, errno.Wrap(errno.NetworkUnavailable, err, "failed to connect to Ethereum network")
	}

	// -- Verify connection and chain ID
	clientChainId, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, errno.Wrap(errno.NetworkUnavailable, err, "failed to get chain ID")
	}
	if clientChainId.Int64() != cfg.ChainID() {
		client.Close()
		return nil, fmt.Errorf("expected chain ID %d, got %d", cfg.ChainID(), clientChainId.Int64())
	}

	log.WithField("chain_id", clientChainId.Int64()).Info("Successfully connected to Ethereum network")
	return NewChainClient(client, cfg.ChainID()), nil
}

func (c *ChainClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainId)
}

// IsAddress reports whether s is a 20-byte hex address. All-lowercase and
// all-uppercase forms are accepted; mixed case must carry a valid EIP-55
// checksum.
func IsAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	hexPart := s
	if has0xPrefix(s) {
		hexPart = s[2:]
	}
	if strings.ToLower(hexPart) == hexPart || strings.ToUpper(hexPart) == hexPart {
		return true
	}
	return common.HexToAddress(s).Hex()[2:] == hexPart
}

// ToChecksumAddress parses s, failing with InvalidAddress.
func ToChecksumAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !IsAddress(s) {
		return common.Address{}, errno.New(errno.InvalidAddress, "%q is not a valid address", s)
	}
	return common.HexToAddress(s), nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// GetBalance returns the native balance of an address in wei
func (c *ChainClient) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	balance, err := c.client.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, errno.Wrap(errno.NetworkUnavailable, err, "failed to get balance")
	}
	return balance, nil
}

// GetTransactionCount returns the pending nonce, so transactions already in
// the node's pool are counted.
func (c *ChainClient) GetTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	nonce, err := c.client.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, errno.Wrap(errno.NetworkUnavailable, err, "failed to get nonce")
	}
	return nonce, nil
}

func (c *ChainClient) GetGasPrice(ctx context.Context) (*big.Int, error) {
	price, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errno.Wrap(errno.NetworkUnavailable, err, "failed to get gas price")
	}
	return price, nil
}

// SendRawTransaction decodes raw and submits it. Node errors are returned
// unclassified; the Broadcaster owns classification.
func (c *ChainClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, fmt.Errorf("failed to decode signed transaction: %w", err)
	}
	if err := c.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// GetTransactionReceipt returns nil without error while the transaction has
// not been mined.
func (c *ChainClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errno.Wrap(errno.NetworkUnavailable, err, "failed to get receipt")
	}
	return receipt, nil
}

// GetTransaction returns (nil, false, nil) for a hash the node does not know.
func (c *ChainClient) GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, pending, err := c.client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errno.Wrap(errno.NetworkUnavailable, err, "failed to get transaction")
	}
	return tx, pending, nil
}

func (c *ChainClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, errno.Wrap(errno.NetworkUnavailable, err, "failed to get block number")
	}
	return n, nil
}

// BlockGasLimit returns the gas limit of the latest block header.
func (c *ChainClient) BlockGasLimit(ctx context.Context) (uint64, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, errno.Wrap(errno.NetworkUnavailable, err, "failed to get latest header")
	}
	return header.GasLimit, nil
}

// CallContract runs a read-only call against the latest block.
func (c *ChainClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", to.Hex(), err)
	}
	return out, nil
}

func (c *ChainClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.client.EstimateGas(ctx, msg)
}

// Close closes the underlying connection
func (c *ChainClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

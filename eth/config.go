package eth

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	envRpcURL  = "ETH_RPC_URL"
	envChainID = "ETH_CHAIN_ID"

	// -- accounts, keys are looked up when an account is used
	envAccountsList         = "ETH_ACCOUNTS"
	envAccountPrivateKeyFmt = "ETH_ACCOUNT_%s_PRIVATE_KEY"

	// -- gas configuration
	envDefaultGasPrice = "ETH_DEFAULT_GAS_PRICE"
	envNativeGasLimit  = "ETH_NATIVE_GAS_LIMIT"
	envTokenGasLimit   = "ETH_TOKEN_GAS_LIMIT"
	envEstimateGas     = "ETH_ESTIMATE_GAS"
	// Recommended settings when ETH_ESTIMATE_GAS is on:
	// Development/Testing:
	//   ETH_GAS_LIMIT_BUFFER_SIMPLE=1.2
	//   ETH_GAS_LIMIT_BUFFER_COMPLEX=1.4
	// Production - Ethereum Mainnet:
	//   ETH_GAS_LIMIT_BUFFER_SIMPLE=1.1
	//   ETH_GAS_LIMIT_BUFFER_COMPLEX=1.25
	envGasLimitBufferSimple  = "ETH_GAS_LIMIT_BUFFER_SIMPLE"
	envGasLimitBufferComplex = "ETH_GAS_LIMIT_BUFFER_COMPLEX"

	// -- transaction monitoring
	envTransactionTimeoutSeconds = "ETH_TRANSACTION_TIMEOUT_SECONDS"
	envTransactionTickerSeconds  = "ETH_TRANSACTION_TICKER_SECONDS"

	// -- presentation
	envExplorerURL  = "ETH_EXPLORER_URL"
	envFaucets      = "ETH_FAUCETS"
	envNativeSymbol = "ETH_NATIVE_SYMBOL"

	// --- Units and defaults ---
	GWEI = 1000000000 // 1 gwei in wei

	DEFAULT_GAS_PRICE        = 20 * GWEI
	DEFAULT_NATIVE_GAS_LIMIT = 21000
	DEFAULT_TOKEN_GAS_LIMIT  = 100000
	DEFAULT_BUFFER_SIMPLE    = 1.1
	DEFAULT_BUFFER_COMPLEX   = 1.2
	DEFAULT_NATIVE_SYMBOL    = "ETH"

	// --- Transaction monitoring defaults ---
	DEFAULT_TRANSACTION_TIMEOUT_SECONDS = 300 // 5 minutes
	DEFAULT_TRANSACTION_TICKER_SECONDS  = 2
)

// Config exposes the settings shared by the transfer pipeline.
type Config interface {
	RPCURL() string
	ChainID() int64

	DefaultGasPrice() *big.Int
	NativeGasLimit() uint64
	TokenGasLimit() uint64
	EstimateGas() bool
	GasLimitBufferSimple() float64
	GasLimitBufferComplex() float64

	TransactionTimeoutSeconds() int
	TransactionTickerSeconds() int

	ExplorerURL() string
	Faucets() []string
	NativeSymbol() string

	Accounts() []string
	AccountPrivateKey(label string) (string, error)
}

type config struct {
	v       *viper.Viper
	chainId int64
	rpcURL  string
}

// NewConfiguration reads settings from the environment. ETH_CHAIN_ID is
// required, everything else has a default.
func NewConfiguration() (Config, error) {
	cfg, err := newConfig(viper.New())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigurationFromFile layers a config file (yaml, json, toml or .env)
// under the environment. Environment variables win.
func NewConfigurationFromFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := newConfig(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func newConfig(v *viper.Viper) (*config, error) {
	v.AutomaticEnv()
	v.SetDefault(envDefaultGasPrice, strconv.Itoa(DEFAULT_GAS_PRICE))
	v.SetDefault(envNativeGasLimit, DEFAULT_NATIVE_GAS_LIMIT)
	v.SetDefault(envTokenGasLimit, DEFAULT_TOKEN_GAS_LIMIT)
	v.SetDefault(envTransactionTimeoutSeconds, DEFAULT_TRANSACTION_TIMEOUT_SECONDS)
	v.SetDefault(envTransactionTickerSeconds, DEFAULT_TRANSACTION_TICKER_SECONDS)
	v.SetDefault(envNativeSymbol, DEFAULT_NATIVE_SYMBOL)

	chainIDStr := strings.TrimSpace(v.GetString(envChainID))
	if chainIDStr == "" {
		return nil, fmt.Errorf(envChainID + " environment variable is not set")
	}

	chainId, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ETH_CHAIN_ID: %w", err)
	}
	if chainId <= 0 {
		return nil, fmt.Errorf("invalid ETH_CHAIN_ID: %d", chainId)
	}

	return &config{
		v:       v,
		chainId: chainId,
		rpcURL:  v.GetString(envRpcURL),
	}, nil
}

func (c *config) ChainID() int64 {
	return c.chainId
}

func (c *config) RPCURL() string {
	return c.rpcURL
}

// DefaultGasPrice is used when the node cannot suggest a price (default: 20 gwei)
func (c *config) DefaultGasPrice() *big.Int {
	price, ok := new(big.Int).SetString(strings.TrimSpace(c.v.GetString(envDefaultGasPrice)), 10)
	if !ok || price.Sign() <= 0 {
		return big.NewInt(DEFAULT_GAS_PRICE)
	}
	return price
}

// NativeGasLimit is the fixed budget for plain value transfers (default: 21000)
func (c *config) NativeGasLimit() uint64 {
	limit := c.v.GetUint64(envNativeGasLimit)
	if limit == 0 {
		return DEFAULT_NATIVE_GAS_LIMIT
	}
	return limit
}

// TokenGasLimit is the fixed budget for token transfers (default: 100000)
func (c *config) TokenGasLimit() uint64 {
	limit := c.v.GetUint64(envTokenGasLimit)
	if limit == 0 {
		return DEFAULT_TOKEN_GAS_LIMIT
	}
	return limit
}

// EstimateGas switches the builder from fixed budgets to node estimates.
func (c *config) EstimateGas() bool {
	return c.v.GetBool(envEstimateGas)
}

// GasLimitBufferSimple returns the buffer multiplier for simple ETH transfers
func (c *config) GasLimitBufferSimple() float64 {
	return c.buffer(envGasLimitBufferSimple, DEFAULT_BUFFER_SIMPLE)
}

// GasLimitBufferComplex returns the buffer multiplier for contract calls
func (c *config) GasLimitBufferComplex() float64 {
	return c.buffer(envGasLimitBufferComplex, DEFAULT_BUFFER_COMPLEX)
}

func (c *config) buffer(key string, fallback float64) float64 {
	bufferStr := strings.TrimSpace(c.v.GetString(key))
	if bufferStr == "" {
		return fallback
	}

	buffer, err := strconv.ParseFloat(bufferStr, 64)
	if err != nil {
		return fallback
	}

	// Validate reasonable bounds (0.5 to 3.0)
	if buffer < 0.5 || buffer > 3.0 {
		return fallback
	}

	return buffer
}

// TransactionTimeoutSeconds returns the confirmation timeout in seconds (default: 300)
func (c *config) TransactionTimeoutSeconds() int {
	timeout := c.v.GetInt(envTransactionTimeoutSeconds)
	if timeout <= 0 {
		return DEFAULT_TRANSACTION_TIMEOUT_SECONDS
	}
	return timeout
}

// TransactionTickerSeconds returns the receipt polling interval in seconds (default: 2)
func (c *config) TransactionTickerSeconds() int {
	ticker := c.v.GetInt(envTransactionTickerSeconds)
	if ticker <= 0 {
		return DEFAULT_TRANSACTION_TICKER_SECONDS
	}
	return ticker
}

func (c *config) ExplorerURL() string {
	return strings.TrimRight(strings.TrimSpace(c.v.GetString(envExplorerURL)), "/")
}

// Faucets lists funding sources suggested when a sender holds nothing.
func (c *config) Faucets() []string {
	return splitList(c.v.GetString(envFaucets))
}

func (c *config) NativeSymbol() string {
	symbol := strings.TrimSpace(c.v.GetString(envNativeSymbol))
	if symbol == "" {
		return DEFAULT_NATIVE_SYMBOL
	}
	return symbol
}

// Accounts returns the labels listed in ETH_ACCOUNTS.
func (c *config) Accounts() []string {
	return splitList(c.v.GetString(envAccountsList))
}

// AccountPrivateKey returns the hex key stored for label. It is read on
// every call and never cached.
func (c *config) AccountPrivateKey(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("account label is empty")
	}
	keyEnv := fmt.Sprintf(envAccountPrivateKeyFmt, strings.ToUpper(label))
	privHex := strings.TrimSpace(c.v.GetString(keyEnv))
	if privHex == "" {
		return "", fmt.Errorf("no private key found for account[%s], set %s", label, keyEnv)
	}
	return privHex, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

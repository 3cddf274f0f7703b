package eth

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig builds a config from explicit values without touching the
// process environment.
func testConfig(t *testing.T, values map[string]any) *config {
	t.Helper()
	v := viper.New()
	v.Set(envChainID, "97")
	for k, val := range values {
		v.Set(k, val)
	}
	cfg, err := newConfig(v)
	require.NoError(t, err)
	return cfg
}

func TestNewConfiguration_Success(t *testing.T) {
	t.Setenv("ETH_CHAIN_ID", "1234")
	t.Setenv("ETH_ACCOUNTS", "main, treasury")
	t.Setenv("ETH_ACCOUNT_MAIN_PRIVATE_KEY", "4f3edf983ac636a65a842ce7c78d9aa706d3b113b37e5a4d5e1e4e6a1f7a1e08")
	t.Setenv("ETH_RPC_URL", "http://localhost:8545")

	cfg, err := NewConfiguration()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), cfg.ChainID())
	assert.Equal(t, []string{"main", "treasury"}, cfg.Accounts())
	assert.Equal(t, "http://localhost:8545", cfg.RPCURL())

	key, err := cfg.AccountPrivateKey("main")
	require.NoError(t, err)
	assert.Equal(t, "4f3edf983ac636a65a842ce7c78d9aa706d3b113b37e5a4d5e1e4e6a1f7a1e08", key)

	_, err = cfg.AccountPrivateKey("treasury")
	assert.Error(t, err)
}

func TestNewConfiguration_MissingChainID(t *testing.T) {
	t.Setenv("ETH_CHAIN_ID", "")
	_, err := NewConfiguration()
	assert.Error(t, err)
}

func TestNewConfiguration_InvalidChainID(t *testing.T) {
	for _, id := range []string{"abc", "0", "-5"} {
		t.Setenv("ETH_CHAIN_ID", id)
		_, err := NewConfiguration()
		assert.Error(t, err, id)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := testConfig(t, nil)

	assert.Equal(t, big.NewInt(20_000_000_000), cfg.DefaultGasPrice())
	assert.Equal(t, uint64(21000), cfg.NativeGasLimit())
	assert.Equal(t, uint64(100000), cfg.TokenGasLimit())
	assert.False(t, cfg.EstimateGas())
	assert.Equal(t, 1.1, cfg.GasLimitBufferSimple())
	assert.Equal(t, 1.2, cfg.GasLimitBufferComplex())
	assert.Equal(t, 300, cfg.TransactionTimeoutSeconds())
	assert.Equal(t, 2, cfg.TransactionTickerSeconds())
	assert.Equal(t, "ETH", cfg.NativeSymbol())
	assert.Empty(t, cfg.ExplorerURL())
	assert.Empty(t, cfg.Faucets())
	assert.Empty(t, cfg.Accounts())
}

func TestConfigOverrides(t *testing.T) {
	cfg := testConfig(t, map[string]any{
		envDefaultGasPrice:           "5000000000",
		envNativeGasLimit:            25000,
		envEstimateGas:               "true",
		envGasLimitBufferSimple:      "1.05",
		envExplorerURL:               "https://testnet.bscscan.com/",
		envFaucets:                   "https://faucet.one, ,https://faucet.two",
		envNativeSymbol:              "tBNB",
		envTransactionTickerSeconds:  1,
		envTransactionTimeoutSeconds: 30,
	})

	assert.Equal(t, big.NewInt(5_000_000_000), cfg.DefaultGasPrice())
	assert.Equal(t, uint64(25000), cfg.NativeGasLimit())
	assert.True(t, cfg.EstimateGas())
	assert.Equal(t, 1.05, cfg.GasLimitBufferSimple())
	assert.Equal(t, "https://testnet.bscscan.com", cfg.ExplorerURL())
	assert.Equal(t, []string{"https://faucet.one", "https://faucet.two"}, cfg.Faucets())
	assert.Equal(t, "tBNB", cfg.NativeSymbol())
	assert.Equal(t, 1, cfg.TransactionTickerSeconds())
	assert.Equal(t, 30, cfg.TransactionTimeoutSeconds())
}

func TestGasLimitBuffer_OutOfBounds(t *testing.T) {
	cfg := testConfig(t, map[string]any{
		envGasLimitBufferSimple:  "7",
		envGasLimitBufferComplex: "not-a-number",
		envDefaultGasPrice:       "-1",
	})
	assert.Equal(t, 1.1, cfg.GasLimitBufferSimple())
	assert.Equal(t, 1.2, cfg.GasLimitBufferComplex())
	assert.Equal(t, big.NewInt(DEFAULT_GAS_PRICE), cfg.DefaultGasPrice())
}

func TestNewConfigurationFromFile(t *testing.T) {
	t.Setenv("ETH_CHAIN_ID", "")
	t.Setenv("ETH_NATIVE_SYMBOL", "")
	path := filepath.Join(t.TempDir(), "wallet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("eth_chain_id: 11155111\neth_native_symbol: SepoliaETH\n"), 0o600))

	cfg, err := NewConfigurationFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), cfg.ChainID())
	assert.Equal(t, "SepoliaETH", cfg.NativeSymbol())

	_, err = NewConfigurationFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

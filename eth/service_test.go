package eth

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/nando-os/ghost-wallet/hdwallet"
	internalmocks "github.com/nando-os/ghost-wallet/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testFaucets = "https://testnet.bnbchain.org/faucet-smart,https://faucet.quicknode.com/binance-smart-chain/bnb-testnet"

func newTestService(t *testing.T) (*Service, *internalmocks.EthClient) {
	chain, mockClient := newTestChain()
	cfg := testConfig(t, map[string]any{
		envFaucets:      testFaucets,
		envExplorerURL:  "https://testnet.bscscan.com",
		envNativeSymbol: "tBNB",
	})
	s := NewService(chain, cfg, WithMetrics(NewMetrics(nil)))
	s.watcher.interval = 10 * time.Millisecond
	return s, mockClient
}

func assertNothingSent(t *testing.T, m *internalmocks.EthClient) {
	t.Helper()
	m.AssertNotCalled(t, "PendingNonceAt", mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "SuggestGasPrice", mock.Anything)
	m.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}

func TestService_SendNative_ZeroBalanceGate(t *testing.T) {
	s, mockClient := newTestService(t)
	mockClient.On("BalanceAt", mock.Anything, senderAddr, (*big.Int)(nil)).Return(big.NewInt(0), nil)

	result, err := s.SendNative(context.Background(), senderKey, recipient.Hex(), decimal.RequireFromString("0.01"), false)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errno.ErrInsufficientBalance)

	var balanceErr *errno.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Equal(t, senderAddr, balanceErr.Address)
	assert.Equal(t, big.NewInt(10_000_000_000_000_000), balanceErr.Shortfall)
	assert.Equal(t, balanceErr.Required, balanceErr.Shortfall)
	assert.Equal(t, "tBNB", balanceErr.Symbol)
	assert.Len(t, balanceErr.FundingSources, 2)
	assert.Contains(t, err.Error(), "https://testnet.bnbchain.org/faucet-smart")
	assertNothingSent(t, mockClient)
}

func TestService_SendNative_PartialBalanceHasNoFaucets(t *testing.T) {
	s, mockClient := newTestService(t)
	mockClient.On("BalanceAt", mock.Anything, senderAddr, (*big.Int)(nil)).Return(big.NewInt(4_000_000_000_000_000), nil)

	_, err := s.SendNative(context.Background(), senderKey, recipient.Hex(), decimal.RequireFromString("0.01"), false)
	var balanceErr *errno.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Equal(t, big.NewInt(6_000_000_000_000_000), balanceErr.Shortfall)
	assert.Empty(t, balanceErr.FundingSources)
	assertNothingSent(t, mockClient)
}

func TestService_SendNative_InvalidInputsBeforeNetwork(t *testing.T) {
	s, mockClient := newTestService(t)
	ctx := context.Background()

	_, err := s.SendNative(ctx, senderKey, "0xnope", decimal.NewFromInt(1), false)
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)

	_, err = s.SendNative(ctx, senderKey, recipient.Hex(), decimal.NewFromInt(-1), false)
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)

	_, err = s.SendNative(ctx, "0x1234", recipient.Hex(), decimal.NewFromInt(1), false)
	assert.ErrorIs(t, err, errno.ErrInvalidPrivateKey)

	assert.Empty(t, mockClient.Calls)
}

func TestService_SendNative_AndWait(t *testing.T) {
	s, mockClient := newTestService(t)
	mockClient.On("BalanceAt", mock.Anything, senderAddr, (*big.Int)(nil)).Return(big.NewInt(1_000_000_000_000_000_000), nil)
	mockClient.On("PendingNonceAt", mock.Anything, senderAddr).Return(uint64(3), nil)
	mockClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(1_000_000_000), nil)

	var sent *types.Transaction
	mockClient.On("SendTransaction", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*types.Transaction)
	}).Return(nil)
	mockClient.On("TransactionReceipt", mock.Anything, mock.Anything).Return(nil, ethereum.NotFound).Once()
	mockClient.On("TransactionReceipt", mock.Anything, mock.Anything).
		Return(&types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(77), GasUsed: 21000}, nil)

	result, err := s.SendNative(context.Background(), senderKey, recipient.Hex(), decimal.RequireFromString("0.01"), true)
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.Equal(t, sent.Hash(), result.TxHash)
	assert.Equal(t, senderAddr, result.From)
	assert.Equal(t, recipient, result.To)
	assert.Equal(t, uint64(3), result.Nonce)
	assert.Equal(t, "tBNB", result.Symbol)
	assert.Equal(t, "https://testnet.bscscan.com/tx/"+sent.Hash().Hex(), result.ExplorerURL)
	assert.Equal(t, big.NewInt(10_000_000_000_000_000), sent.Value())
	assert.Equal(t, uint64(21000), sent.Gas())

	require.NotNil(t, result.Confirmation)
	assert.Equal(t, StatusSuccess, result.Confirmation.Status)
	assert.Equal(t, uint64(77), *result.Confirmation.BlockNumber)
}

func TestService_SendNative_BroadcastRejected(t *testing.T) {
	s, mockClient := newTestService(t)
	mockClient.On("BalanceAt", mock.Anything, senderAddr, (*big.Int)(nil)).Return(big.NewInt(1_000_000_000_000_000_000), nil)
	mockClient.On("PendingNonceAt", mock.Anything, senderAddr).Return(uint64(3), nil)
	mockClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(1_000_000_000), nil)
	mockClient.On("SendTransaction", mock.Anything, mock.Anything).Return(errors.New("nonce too low"))

	result, err := s.SendNative(context.Background(), senderKey, recipient.Hex(), decimal.RequireFromString("0.5"), true)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errno.ErrNonceTooLow)
	mockClient.AssertNotCalled(t, "TransactionReceipt", mock.Anything, mock.Anything)
}

func TestService_SendNative_TimeoutKeepsHash(t *testing.T) {
	s, mockClient := newTestService(t)
	s.watcher.timeout = 100 * time.Millisecond
	mockClient.On("BalanceAt", mock.Anything, senderAddr, (*big.Int)(nil)).Return(big.NewInt(1_000_000_000_000_000_000), nil)
	mockClient.On("PendingNonceAt", mock.Anything, senderAddr).Return(uint64(0), nil)
	mockClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(1_000_000_000), nil)
	mockClient.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)
	mockClient.On("TransactionReceipt", mock.Anything, mock.Anything).Return(nil, ethereum.NotFound)

	result, err := s.SendNative(context.Background(), senderKey, recipient.Hex(), decimal.RequireFromString("0.1"), true)
	assert.ErrorIs(t, err, errno.ErrConfirmationTimeout)
	require.NotNil(t, result)
	assert.NotEqual(t, common.Hash{}, result.TxHash)
	assert.Nil(t, result.Confirmation)
}

func TestService_SendToken(t *testing.T) {
	s, mockClient := newTestService(t)
	mockToken(t, mockClient, tokenAddr, "USDT", 6, big.NewInt(5_000_000))
	mockClient.On("PendingNonceAt", mock.Anything, senderAddr).Return(uint64(9), nil)
	mockClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(1_000_000_000), nil)

	var sent *types.Transaction
	mockClient.On("SendTransaction", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*types.Transaction)
	}).Return(nil)

	result, err := s.SendToken(context.Background(), senderKey, tokenAddr.Hex(), recipient.Hex(), decimal.RequireFromString("1.5"), false)
	require.NoError(t, err)
	require.NotNil(t, sent)

	wantData, err := defaultTokenInterface.EncodeTransfer(recipient, big.NewInt(1_500_000))
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, *sent.To())
	assert.Equal(t, 0, sent.Value().Sign())
	assert.Equal(t, wantData, sent.Data())
	assert.Equal(t, uint64(100000), sent.Gas())

	assert.Equal(t, "USDT", result.Symbol)
	require.NotNil(t, result.Token)
	assert.Equal(t, uint8(6), result.Token.Decimals)
	assert.Equal(t, recipient, result.To)
	assert.Nil(t, result.Confirmation)
}

func TestService_SendToken_InsufficientBalance(t *testing.T) {
	s, mockClient := newTestService(t)
	mockToken(t, mockClient, tokenAddr, "USDT", 6, big.NewInt(0))

	_, err := s.SendToken(context.Background(), senderKey, tokenAddr.Hex(), recipient.Hex(), decimal.RequireFromString("2"), false)
	var balanceErr *errno.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Equal(t, big.NewInt(2_000_000), balanceErr.Shortfall)
	assert.Equal(t, "USDT", balanceErr.Symbol)
	assert.True(t, balanceErr.ZeroBalance())
	// native faucets do not pay out tokens
	assert.Empty(t, balanceErr.FundingSources)
	assert.Contains(t, err.Error(), "short by 2 USDT")
	assert.NotContains(t, err.Error(), "faucet")
	assertNothingSent(t, mockClient)
}

func TestService_SendToken_DecimalsUnavailable(t *testing.T) {
	s, mockClient := newTestService(t)
	onTokenCall(mockClient, tokenAddr, MethodName).Return(nil, errors.New("execution reverted")).Maybe()
	onTokenCall(mockClient, tokenAddr, MethodSymbol).Return(nil, errors.New("execution reverted")).Maybe()
	onTokenCall(mockClient, tokenAddr, MethodTotalSupply).Return(nil, errors.New("execution reverted")).Maybe()
	onTokenCall(mockClient, tokenAddr, MethodDecimals).Return(nil, errors.New("execution reverted"))

	_, err := s.SendToken(context.Background(), senderKey, tokenAddr.Hex(), recipient.Hex(), decimal.NewFromInt(1), false)
	assert.ErrorIs(t, err, errno.ErrTokenCallFailed)
	assertNothingSent(t, mockClient)
}

func TestService_SendToken_TooPreciseForToken(t *testing.T) {
	s, mockClient := newTestService(t)
	mockToken(t, mockClient, tokenAddr, "USDT", 6, nil)

	_, err := s.SendToken(context.Background(), senderKey, tokenAddr.Hex(), recipient.Hex(), decimal.RequireFromString("0.0000001"), false)
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)
	assertNothingSent(t, mockClient)
}

func TestService_GetNativeBalance(t *testing.T) {
	s, mockClient := newTestService(t)
	mockClient.On("BalanceAt", mock.Anything, senderAddr, (*big.Int)(nil)).Return(big.NewInt(1_250_000_000_000_000_000), nil)

	bal, err := s.GetNativeBalance(context.Background(), senderAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, "1.25", bal.Amount.String())
	assert.Equal(t, "tBNB", bal.Symbol)
	assert.Equal(t, uint8(18), bal.Decimals)

	_, err = s.GetNativeBalance(context.Background(), "bogus")
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)
}

func TestService_GetTokenBalance(t *testing.T) {
	s, mockClient := newTestService(t)
	mockToken(t, mockClient, tokenAddr, "USDT", 6, big.NewInt(2_500_000))

	bal, err := s.GetTokenBalance(context.Background(), tokenAddr.Hex(), senderAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, "2.5", bal.Balance.Amount.String())
	assert.Equal(t, "USDT", bal.Token.Symbol)
}

func TestService_GetAllBalances_PartialFailure(t *testing.T) {
	s, mockClient := newTestService(t)
	broken := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")

	mockClient.On("BalanceAt", mock.Anything, senderAddr, (*big.Int)(nil)).Return(big.NewInt(1_000_000_000_000_000_000), nil)
	mockToken(t, mockClient, tokenAddr, "USDT", 6, big.NewInt(1_000_000))
	onTokenCall(mockClient, broken, MethodName).Return(nil, errors.New("execution reverted")).Maybe()
	onTokenCall(mockClient, broken, MethodSymbol).Return(nil, errors.New("execution reverted")).Maybe()
	onTokenCall(mockClient, broken, MethodTotalSupply).Return(nil, errors.New("execution reverted")).Maybe()
	onTokenCall(mockClient, broken, MethodDecimals).Return(nil, errors.New("execution reverted"))

	portfolio, err := s.GetAllBalances(context.Background(), senderAddr.Hex(), []string{tokenAddr.Hex(), broken.Hex()})
	require.NoError(t, err)
	assert.Equal(t, "1", portfolio.Native.Amount.String())
	require.Len(t, portfolio.Tokens, 1)
	assert.Equal(t, "USDT", portfolio.Tokens[0].Token.Symbol)
	assert.Contains(t, portfolio.Errors, broken.Hex())
}

func TestService_GetTransactionStatus(t *testing.T) {
	s, mockClient := newTestService(t)
	mockClient.On("TransactionReceipt", mock.Anything, watchedHash).
		Return(&types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(10)}, nil)

	result, err := s.GetTransactionStatus(context.Background(), watchedHash.Hex())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)

	_, err = s.GetTransactionStatus(context.Background(), "0x1234")
	assert.ErrorIs(t, err, errno.ErrInvalidTransactionHash)
	_, err = s.GetTransactionStatus(context.Background(), "not-hex")
	assert.ErrorIs(t, err, errno.ErrInvalidTransactionHash)
}

func TestService_WaitForTransaction(t *testing.T) {
	s, mockClient := newTestService(t)
	mockClient.On("TransactionReceipt", mock.Anything, watchedHash).Return(nil, ethereum.NotFound).Once()
	mockClient.On("TransactionReceipt", mock.Anything, watchedHash).
		Return(&types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(77), GasUsed: 21000}, nil)

	result, err := s.WaitForTransaction(context.Background(), watchedHash.Hex(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, uint64(77), *result.BlockNumber)

	_, err = s.WaitForTransaction(context.Background(), "0x", time.Second)
	assert.ErrorIs(t, err, errno.ErrInvalidTransactionHash)
}

func TestService_GetTokenInfo(t *testing.T) {
	s, mockClient := newTestService(t)
	mockToken(t, mockClient, tokenAddr, "USDT", 6, nil)

	info, err := s.GetTokenInfo(context.Background(), tokenAddr.Hex())
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, info.Address)
	assert.Equal(t, "USDT", info.Symbol)
	assert.Equal(t, uint8(6), info.Decimals)

	_, err = s.GetTokenInfo(context.Background(), "0x123")
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)
}

func TestParseTxHash(t *testing.T) {
	h, err := ParseTxHash("  " + watchedHash.Hex() + "\n")
	require.NoError(t, err)
	assert.Equal(t, watchedHash, h)

	for _, bad := range []string{"", "0x", "5c504ed4", "0xzz", "0x" + strings.Repeat("ab", 31)} {
		_, err := ParseTxHash(bad)
		assert.ErrorIs(t, err, errno.ErrInvalidTransactionHash, bad)
	}
}

func TestService_GetNetworkInfo(t *testing.T) {
	s, mockClient := newTestService(t)
	mockClient.On("BlockNumber", mock.Anything).Return(uint64(4242), nil)
	mockClient.On("SuggestGasPrice", mock.Anything).Return(nil, errors.New("method not found"))

	info, err := s.GetNetworkInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(testChainID), info.ChainID)
	assert.Equal(t, uint64(4242), info.LatestBlock)
	assert.Equal(t, big.NewInt(DEFAULT_GAS_PRICE), info.GasPrice)
	assert.Equal(t, "tBNB", info.NativeSymbol)
	assert.Len(t, info.Faucets, 2)
}

func TestService_Account(t *testing.T) {
	chain, _ := newTestChain()
	cfg := testConfig(t, map[string]any{
		envAccountsList:                "main",
		"ETH_ACCOUNT_MAIN_PRIVATE_KEY": senderKey,
	})
	s := NewService(chain, cfg)

	acc, err := s.Account("main")
	require.NoError(t, err)
	assert.Equal(t, senderAddr, acc.Address)

	_, err = s.Account("missing")
	assert.Error(t, err)
}

// A fresh 128-bit wallet re-imports to the same address, and a transfer from
// it is refused before anything is built because it holds nothing.
func TestService_EndToEnd_FreshWallet(t *testing.T) {
	s, mockClient := newTestService(t)

	w, err := s.CreateWallet(hdwallet.DefaultStrengthBits)
	require.NoError(t, err)
	assert.Equal(t, 12, hdwallet.WordCount(w.Mnemonic))

	again, err := s.ImportFromMnemonic(w.Mnemonic, 0)
	require.NoError(t, err)
	assert.Equal(t, w.Address, again.Address)

	imported, err := s.ImportFromPrivateKey(w.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, w.Address, imported.Address)
	assert.True(t, s.ValidateAddress(w.Address.Hex()))

	mockClient.On("BalanceAt", mock.Anything, w.Address, (*big.Int)(nil)).Return(big.NewInt(0), nil)
	amount := decimal.RequireFromString("0.01")
	_, err = s.SendNative(context.Background(), w.PrivateKeyHex(), recipient.Hex(), amount, false)

	var balanceErr *errno.InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	wantWei, _ := new(big.Int).SetString("10000000000000000", 10)
	assert.Equal(t, wantWei, balanceErr.Shortfall)
	assert.NotEmpty(t, balanceErr.FundingSources)
	assertNothingSent(t, mockClient)
}

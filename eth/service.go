package eth

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/nando-os/ghost-wallet/hdwallet"
	"github.com/nando-os/ghost-wallet/units"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service is the wallet surface used by the CLI and other callers. Every
// send runs validate, balance gate, build, sign, broadcast and an optional
// wait as one sequential flow.
//
// Two concurrent sends from the same sender can read the same pending
// nonce; the second is then rejected with NonceTooLow. Callers that need
// parallel sends must serialise them per sender.
type Service struct {
	chain       Chain
	config      Config
	builder     *Builder
	signer      *Signer
	broadcaster *Broadcaster
	watcher     *Watcher
	tokens      *TokenReader
	metrics     *Metrics
	log         *logrus.Entry
}

type Option func(*Service)

// WithMetrics records broadcast and confirmation outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(chain Chain, cfg Config, opts ...Option) *Service {
	s := &Service{
		chain:  chain,
		config: cfg,
		log:    logrus.WithField("component", "service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = NewBuilder(chain, cfg)
	s.signer = NewSigner()
	s.broadcaster = NewBroadcaster(chain, s.metrics)
	s.watcher = NewWatcher(chain, cfg, s.metrics)
	s.tokens = NewTokenReader(chain)
	return s
}

// CreateWallet generates a new mnemonic and derives account 0.
func (s *Service) CreateWallet(strengthBits int) (*hdwallet.Wallet, error) {
	return hdwallet.NewWallet(strengthBits)
}

func (s *Service) ImportFromMnemonic(phrase string, index uint32) (*hdwallet.Wallet, error) {
	return hdwallet.FromMnemonic(phrase, "", index)
}

func (s *Service) ImportFromPrivateKey(hexKey string) (*hdwallet.Wallet, error) {
	return hdwallet.FromPrivateKey(hexKey)
}

func (s *Service) ValidateAddress(address string) bool {
	return IsAddress(strings.TrimSpace(address))
}

// Account resolves a configured label to its address.
func (s *Service) Account(label string) (*Account, error) {
	key, err := s.config.AccountPrivateKey(label)
	if err != nil {
		return nil, err
	}
	addr, err := hdwallet.AddressFromPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return &Account{Label: label, Address: addr}, nil
}

// GetNativeBalance returns the native balance of address.
func (s *Service) GetNativeBalance(ctx context.Context, address string) (*Balance, error) {
	addr, err := ToChecksumAddress(address)
	if err != nil {
		return nil, err
	}
	raw, err := s.chain.GetBalance(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &Balance{
		Address:  addr,
		Symbol:   s.config.NativeSymbol(),
		Decimals: units.EtherDecimals,
		Raw:      raw,
		Amount:   units.FromWei(raw),
	}, nil
}

func (s *Service) GetTokenInfo(ctx context.Context, token string) (*TokenDescriptor, error) {
	tokenAddr, err := ToChecksumAddress(token)
	if err != nil {
		return nil, err
	}
	return s.tokens.Describe(ctx, tokenAddr)
}

// GetTokenBalance returns the balance of wallet in token, scaled by the
// decimals the contract reports.
func (s *Service) GetTokenBalance(ctx context.Context, token, wallet string) (*TokenBalance, error) {
	tokenAddr, err := ToChecksumAddress(token)
	if err != nil {
		return nil, err
	}
	owner, err := ToChecksumAddress(wallet)
	if err != nil {
		return nil, err
	}
	return s.tokenBalance(ctx, tokenAddr, owner)
}

func (s *Service) tokenBalance(ctx context.Context, token, owner common.Address) (*TokenBalance, error) {
	desc, err := s.tokens.Describe(ctx, token)
	if err != nil {
		return nil, err
	}
	raw, err := s.tokens.BalanceOf(ctx, token, owner)
	if err != nil {
		return nil, err
	}
	return &TokenBalance{
		Token: desc,
		Balance: &Balance{
			Address:  owner,
			Symbol:   desc.Symbol,
			Decimals: desc.Decimals,
			Raw:      raw,
			Amount:   units.FromBaseUnits(raw, desc.Decimals),
		},
	}, nil
}

// GetAllBalances reads the native balance and each token balance
// concurrently. A token that cannot be read is reported in Errors and does
// not fail the call.
func (s *Service) GetAllBalances(ctx context.Context, wallet string, tokens []string) (*Portfolio, error) {
	owner, err := ToChecksumAddress(wallet)
	if err != nil {
		return nil, err
	}
	tokenAddrs := make([]common.Address, len(tokens))
	for i, t := range tokens {
		if tokenAddrs[i], err = ToChecksumAddress(t); err != nil {
			return nil, err
		}
	}

	native, err := s.GetNativeBalance(ctx, owner.Hex())
	if err != nil {
		return nil, err
	}

	results := make([]*TokenBalance, len(tokenAddrs))
	failures := make([]error, len(tokenAddrs))
	var g errgroup.Group
	for i, token := range tokenAddrs {
		i, token := i, token
		g.Go(func() error {
			results[i], failures[i] = s.tokenBalance(ctx, token, owner)
			return nil
		})
	}
	_ = g.Wait()

	portfolio := &Portfolio{Address: owner, Native: native}
	for i, token := range tokenAddrs {
		if failures[i] != nil {
			s.log.WithError(failures[i]).WithField("token", token.Hex()).Warn("Token balance unavailable")
			if portfolio.Errors == nil {
				portfolio.Errors = make(map[string]string)
			}
			portfolio.Errors[token.Hex()] = failures[i].Error()
			continue
		}
		portfolio.Tokens = append(portfolio.Tokens, results[i])
	}
	return portfolio, nil
}

// SendNative transfers amount of the native asset from the account
// controlled by privateKey to to. With wait set it also watches for the
// receipt; on a confirmation timeout both the result (with the hash) and
// the timeout error are returned.
func (s *Service) SendNative(ctx context.Context, privateKey, to string, amount decimal.Decimal, wait bool) (*TransferResult, error) {
	toAddr, err := ToChecksumAddress(to)
	if err != nil {
		return nil, err
	}
	value, err := units.ToWei(amount)
	if err != nil {
		return nil, err
	}
	from, err := hdwallet.AddressFromPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	balance, err := s.chain.GetBalance(ctx, from)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(value) < 0 {
		return nil, s.insufficientBalance(from, s.config.NativeSymbol(), units.EtherDecimals, balance, value, s.config.Faucets())
	}

	unsigned, err := s.builder.BuildNativeTransfer(ctx, from.Hex(), toAddr.Hex(), amount, nil)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, unsigned, privateKey, wait, &TransferResult{
		From:   from,
		To:     toAddr,
		Amount: amount,
		Symbol: s.config.NativeSymbol(),
	})
}

// SendToken transfers amount of token, scaled by the decimals the contract
// reports, from the account controlled by privateKey to to.
func (s *Service) SendToken(ctx context.Context, privateKey, token, to string, amount decimal.Decimal, wait bool) (*TransferResult, error) {
	tokenAddr, err := ToChecksumAddress(token)
	if err != nil {
		return nil, err
	}
	toAddr, err := ToChecksumAddress(to)
	if err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, errno.New(errno.InvalidAmount, "amount %s is negative", amount.String())
	}
	from, err := hdwallet.AddressFromPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	desc, err := s.tokens.Describe(ctx, tokenAddr)
	if err != nil {
		return nil, err
	}
	raw, err := units.ToBaseUnits(amount, desc.Decimals)
	if err != nil {
		return nil, err
	}
	balance, err := s.tokens.BalanceOf(ctx, tokenAddr, from)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(raw) < 0 {
		return nil, s.insufficientBalance(from, desc.Symbol, desc.Decimals, balance, raw, nil)
	}

	unsigned, err := s.builder.BuildTokenTransfer(ctx, desc, from.Hex(), toAddr.Hex(), amount, nil)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, unsigned, privateKey, wait, &TransferResult{
		From:   from,
		To:     toAddr,
		Amount: amount,
		Symbol: desc.Symbol,
		Token:  desc,
	})
}

func (s *Service) dispatch(ctx context.Context, unsigned *UnsignedTransaction, privateKey string, wait bool, result *TransferResult) (*TransferResult, error) {
	signed, err := s.signer.SignWithHexKey(unsigned, privateKey)
	if err != nil {
		return nil, err
	}
	hash, err := s.broadcaster.Submit(ctx, signed)
	if err != nil {
		return nil, err
	}

	result.TxHash = hash
	result.Nonce = unsigned.Nonce
	result.GasPrice = unsigned.GasPrice
	result.ExplorerURL = ExplorerTxURL(s.config.ExplorerURL(), hash)

	s.log.WithFields(logrus.Fields{
		"hash":   hash.Hex(),
		"from":   result.From.Hex(),
		"to":     result.To.Hex(),
		"amount": result.Amount.String(),
		"symbol": result.Symbol,
	}).Info("Transfer submitted")

	if !wait {
		return result, nil
	}
	confirmation, err := s.watcher.Watch(ctx, hash, 0)
	result.Confirmation = confirmation
	if err != nil {
		return result, err
	}
	return result, nil
}

// insufficientBalance builds the gate error. faucets are attached only when
// the account is empty.
func (s *Service) insufficientBalance(addr common.Address, symbol string, decimals uint8, available, required *big.Int, faucets []string) error {
	e := errno.NewInsufficientBalance(addr, symbol, decimals, available, required)
	if e.ZeroBalance() {
		e.FundingSources = faucets
	}
	s.log.WithFields(logrus.Fields{
		"address":   addr.Hex(),
		"symbol":    symbol,
		"available": units.Format(available, decimals),
		"required":  units.Format(required, decimals),
	}).Warn("Insufficient balance, nothing was sent")
	return e
}

// GetTransactionStatus reports the current state of hash without waiting.
func (s *Service) GetTransactionStatus(ctx context.Context, hash string) (*TransactionResult, error) {
	txHash, err := ParseTxHash(hash)
	if err != nil {
		return nil, err
	}
	return s.watcher.Status(ctx, txHash)
}

// WaitForTransaction watches hash until it is mined or timeout elapses.
func (s *Service) WaitForTransaction(ctx context.Context, hash string, timeout time.Duration) (*TransactionResult, error) {
	txHash, err := ParseTxHash(hash)
	if err != nil {
		return nil, err
	}
	return s.watcher.Watch(ctx, txHash, timeout)
}

// GetNetworkInfo summarises the connected chain. An unavailable gas price
// is replaced by the configured default.
func (s *Service) GetNetworkInfo(ctx context.Context) (*NetworkInfo, error) {
	block, err := s.chain.GetBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	gasPrice, err := s.chain.GetGasPrice(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Gas price unavailable, reporting configured default")
		gasPrice = s.config.DefaultGasPrice()
	}
	return &NetworkInfo{
		ChainID:      s.chain.ChainID(),
		LatestBlock:  block,
		GasPrice:     gasPrice,
		NativeSymbol: s.config.NativeSymbol(),
		ExplorerURL:  s.config.ExplorerURL(),
		Faucets:      s.config.Faucets(),
	}, nil
}

// ParseTxHash accepts a 0x-prefixed 32-byte hex hash.
func ParseTxHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	raw, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, errno.Wrap(errno.InvalidTransactionHash, err, s)
	}
	if len(raw) != common.HashLength {
		return common.Hash{}, errno.New(errno.InvalidTransactionHash, "%q is %d bytes, want %d", s, len(raw), common.HashLength)
	}
	return common.BytesToHash(raw), nil
}

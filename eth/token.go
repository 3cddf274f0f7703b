package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// erc20ABI is the minimal fungible-token surface the wallet calls.
const erc20ABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// TokenMethod is one of the contract calls the wallet knows how to encode.
type TokenMethod string

const (
	MethodName        TokenMethod = "name"
	MethodSymbol      TokenMethod = "symbol"
	MethodDecimals    TokenMethod = "decimals"
	MethodTotalSupply TokenMethod = "totalSupply"
	MethodBalanceOf   TokenMethod = "balanceOf"
	MethodTransfer    TokenMethod = "transfer"
)

// TokenInterface encodes calls and decodes results for the closed set of
// token methods above.
type TokenInterface struct {
	abi abi.ABI
}

// NewTokenInterface parses the built-in ABI.
func NewTokenInterface() (*TokenInterface, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}
	return &TokenInterface{abi: parsed}, nil
}

var defaultTokenInterface = mustTokenInterface()

func mustTokenInterface() *TokenInterface {
	t, err := NewTokenInterface()
	if err != nil {
		panic(err)
	}
	return t
}

// Selector returns the 4-byte method id.
func (t *TokenInterface) Selector(method TokenMethod) ([]byte, error) {
	m, ok := t.abi.Methods[string(method)]
	if !ok {
		return nil, fmt.Errorf("unknown token method %q", method)
	}
	return m.ID, nil
}

// Signature returns the canonical signature, e.g. transfer(address,uint256).
func (t *TokenInterface) Signature(method TokenMethod) string {
	if m, ok := t.abi.Methods[string(method)]; ok {
		return m.Sig
	}
	return ""
}

func (t *TokenInterface) EncodeName() ([]byte, error)     { return t.abi.Pack(string(MethodName)) }
func (t *TokenInterface) EncodeSymbol() ([]byte, error)   { return t.abi.Pack(string(MethodSymbol)) }
func (t *TokenInterface) EncodeDecimals() ([]byte, error) { return t.abi.Pack(string(MethodDecimals)) }
func (t *TokenInterface) EncodeTotalSupply() ([]byte, error) {
	return t.abi.Pack(string(MethodTotalSupply))
}

func (t *TokenInterface) EncodeBalanceOf(owner common.Address) ([]byte, error) {
	return t.abi.Pack(string(MethodBalanceOf), owner)
}

// EncodeTransfer builds the payload for transfer(to, amount).
func (t *TokenInterface) EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, errno.New(errno.InvalidAmount, "transfer amount must be non-negative")
	}
	return t.abi.Pack(string(MethodTransfer), to, amount)
}

func (t *TokenInterface) DecodeString(method TokenMethod, data []byte) (string, error) {
	v, err := t.unpack(method, data)
	if err != nil {
		return "", err
	}
	out, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("decode %s: unexpected type %T", method, v)
	}
	return out, nil
}

func (t *TokenInterface) DecodeUint8(method TokenMethod, data []byte) (uint8, error) {
	v, err := t.unpack(method, data)
	if err != nil {
		return 0, err
	}
	out, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("decode %s: unexpected type %T", method, v)
	}
	return out, nil
}

func (t *TokenInterface) DecodeBigInt(method TokenMethod, data []byte) (*big.Int, error) {
	v, err := t.unpack(method, data)
	if err != nil {
		return nil, err
	}
	out, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode %s: unexpected type %T", method, v)
	}
	return out, nil
}

func (t *TokenInterface) unpack(method TokenMethod, data []byte) (any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%s returned no data, address may not be a token contract", method)
	}
	values, err := t.abi.Unpack(string(method), data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("decode %s: expected 1 value, got %d", method, len(values))
	}
	return values[0], nil
}

// TokenReader fetches token metadata and balances through read-only calls.
type TokenReader struct {
	chain Chain
	iface *TokenInterface
	log   *logrus.Entry
}

func NewTokenReader(chain Chain) *TokenReader {
	return &TokenReader{
		chain: chain,
		iface: defaultTokenInterface,
		log:   logrus.WithField("component", "token"),
	}
}

// Describe reads the token metadata concurrently. Only decimals is
// mandatory; the other fields fall back to placeholders with a warning.
func (r *TokenReader) Describe(ctx context.Context, token common.Address) (*TokenDescriptor, error) {
	desc := &TokenDescriptor{Address: token, Name: "Unknown", Symbol: "UNK", TotalSupply: new(big.Int)}
	log := r.log.WithField("token", token.Hex())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, err := r.callString(gctx, token, MethodName, r.iface.EncodeName)
		if err != nil {
			log.WithError(err).Warn("Token name unavailable")
			return nil
		}
		desc.Name = name
		return nil
	})
	g.Go(func() error {
		symbol, err := r.callString(gctx, token, MethodSymbol, r.iface.EncodeSymbol)
		if err != nil {
			log.WithError(err).Warn("Token symbol unavailable")
			return nil
		}
		desc.Symbol = symbol
		return nil
	})
	g.Go(func() error {
		out, err := r.call(gctx, token, r.iface.EncodeDecimals)
		if err != nil {
			return errno.Wrap(errno.TokenCallFailed, err, "decimals()")
		}
		decimals, err := r.iface.DecodeUint8(MethodDecimals, out)
		if err != nil {
			return errno.Wrap(errno.TokenCallFailed, err, "decimals()")
		}
		desc.Decimals = decimals
		return nil
	})
	g.Go(func() error {
		supply, err := r.callBigInt(gctx, token, MethodTotalSupply, r.iface.EncodeTotalSupply)
		if err != nil {
			log.WithError(err).Warn("Token total supply unavailable")
			return nil
		}
		desc.TotalSupply = supply
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return desc, nil
}

// BalanceOf returns the raw token balance of owner.
func (r *TokenReader) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	balance, err := r.callBigInt(ctx, token, MethodBalanceOf, func() ([]byte, error) {
		return r.iface.EncodeBalanceOf(owner)
	})
	if err != nil {
		return nil, errno.Wrap(errno.TokenCallFailed, err, "balanceOf()")
	}
	return balance, nil
}

// call packs a request with one of the TokenInterface encoders and runs it
// against token.
func (r *TokenReader) call(ctx context.Context, token common.Address, encode func() ([]byte, error)) ([]byte, error) {
	data, err := encode()
	if err != nil {
		return nil, err
	}
	return r.chain.CallContract(ctx, token, data)
}

func (r *TokenReader) callString(ctx context.Context, token common.Address, method TokenMethod, encode func() ([]byte, error)) (string, error) {
	out, err := r.call(ctx, token, encode)
	if err != nil {
		return "", err
	}
	return r.iface.DecodeString(method, out)
}

func (r *TokenReader) callBigInt(ctx context.Context, token common.Address, method TokenMethod, encode func() ([]byte, error)) (*big.Int, error) {
	out, err := r.call(ctx, token, encode)
	if err != nil {
		return nil, err
	}
	return r.iface.DecodeBigInt(method, out)
}

// Package errno defines the stable error taxonomy surfaced by ghost-wallet.
//
// Every failure that leaves a public operation is (or wraps) an *Error carrying a
// Kind. Callers match on kinds with errors.Is against the exported sentinels:
//
//	if errors.Is(err, errno.ErrNonceTooLow) { ... }
package errno

import (
	"errors"
	"fmt"
)

// Kind identifies a class of failure.
type Kind int

const (
	Unknown Kind = iota
	InvalidAddress
	InvalidMnemonic
	InvalidPrivateKey
	InvalidAmount
	InvalidStrength
	InsufficientBalance
	NonceTooLow
	NonceTooHigh
	GasPriceTooLow
	IntrinsicGasTooLow
	BroadcastFailed
	ConfirmationTimeout
	NetworkUnavailable
	SigningError
	TokenCallFailed
	InvalidTransactionHash
)

var kindNames = map[Kind]string{
	Unknown:             "Unknown",
	InvalidAddress:      "InvalidAddress",
	InvalidMnemonic:     "InvalidMnemonic",
	InvalidPrivateKey:   "InvalidPrivateKey",
	InvalidAmount:       "InvalidAmount",
	InvalidStrength:     "InvalidStrength",
	InsufficientBalance: "InsufficientBalance",
	NonceTooLow:         "NonceTooLow",
	NonceTooHigh:        "NonceTooHigh",
	GasPriceTooLow:      "GasPriceTooLow",
	IntrinsicGasTooLow:  "IntrinsicGasTooLow",
	BroadcastFailed:     "BroadcastFailed",
	ConfirmationTimeout: "ConfirmationTimeout",
	NetworkUnavailable:  "NetworkUnavailable",
	SigningError:        "SigningError",
	TokenCallFailed:     "TokenCallFailed",

	InvalidTransactionHash: "InvalidTransactionHash",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified failure. Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels, one per kind, for use with errors.Is.
var (
	ErrInvalidAddress      = &Error{Kind: InvalidAddress}
	ErrInvalidMnemonic     = &Error{Kind: InvalidMnemonic}
	ErrInvalidPrivateKey   = &Error{Kind: InvalidPrivateKey}
	ErrInvalidAmount       = &Error{Kind: InvalidAmount}
	ErrInvalidStrength     = &Error{Kind: InvalidStrength}
	ErrInsufficientBalance = &Error{Kind: InsufficientBalance}
	ErrNonceTooLow         = &Error{Kind: NonceTooLow}
	ErrNonceTooHigh        = &Error{Kind: NonceTooHigh}
	ErrGasPriceTooLow      = &Error{Kind: GasPriceTooLow}
	ErrIntrinsicGasTooLow  = &Error{Kind: IntrinsicGasTooLow}
	ErrBroadcastFailed     = &Error{Kind: BroadcastFailed}
	ErrConfirmationTimeout = &Error{Kind: ConfirmationTimeout}
	ErrNetworkUnavailable  = &Error{Kind: NetworkUnavailable}
	ErrSigningError        = &Error{Kind: SigningError}
	ErrTokenCallFailed     = &Error{Kind: TokenCallFailed}

	ErrInvalidTransactionHash = &Error{Kind: InvalidTransactionHash}
)

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain,
// or Unknown when err is nil or unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var ib *InsufficientBalanceError
	if errors.As(err, &ib) {
		return InsufficientBalance
	}
	var ct *ConfirmationTimeoutError
	if errors.As(err, &ct) {
		return ConfirmationTimeout
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Decode converts err into a kind and a human readable message.
func Decode(err error) (Kind, string) {
	if err == nil {
		return Unknown, ""
	}
	return KindOf(err), err.Error()
}

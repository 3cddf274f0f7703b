package eth

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/sirupsen/logrus"
)

// broadcastErrorPatterns maps node error text to a kind. Order matters: the
// first matching substring wins.
var broadcastErrorPatterns = []struct {
	substr string
	kind   errno.Kind
}{
	{"insufficient funds", errno.InsufficientBalance},
	{"nonce too low", errno.NonceTooLow},
	{"nonce too high", errno.NonceTooHigh},
	{"intrinsic gas too low", errno.IntrinsicGasTooLow},
	{"gas price too low", errno.GasPriceTooLow},
	{"transaction underpriced", errno.GasPriceTooLow},
	{"connection", errno.NetworkUnavailable},
	{"timeout", errno.NetworkUnavailable},
	{"timed out", errno.NetworkUnavailable},
	{"refused", errno.NetworkUnavailable},
	{"no such host", errno.NetworkUnavailable},
	{"deadline exceeded", errno.NetworkUnavailable},
	{"eof", errno.NetworkUnavailable},
}

// ClassifyBroadcastError turns a submission failure into a classified
// error. Unrecognised failures become BroadcastFailed and keep the node's
// original message.
func ClassifyBroadcastError(err error) *errno.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errno.Wrap(errno.NetworkUnavailable, err, "node did not answer in time")
	}
	msg := strings.ToLower(err.Error())
	for _, p := range broadcastErrorPatterns {
		if strings.Contains(msg, p.substr) {
			return errno.Wrap(p.kind, err, "node rejected transaction")
		}
	}
	return errno.Wrap(errno.BroadcastFailed, err, "node rejected transaction")
}

// Broadcaster submits signed transactions. It never retries; whether to
// resubmit depends on the kind and is left to the caller.
type Broadcaster struct {
	chain   Chain
	metrics *Metrics
	log     *logrus.Entry
}

func NewBroadcaster(chain Chain, metrics *Metrics) *Broadcaster {
	return &Broadcaster{
		chain:   chain,
		metrics: metrics,
		log:     logrus.WithField("component", "broadcaster"),
	}
}

// Submit sends signed and returns its hash once the node accepted it.
func (b *Broadcaster) Submit(ctx context.Context, signed *SignedTransaction) (common.Hash, error) {
	if signed == nil || len(signed.Raw) == 0 {
		return common.Hash{}, errno.New(errno.BroadcastFailed, "empty transaction")
	}

	log := b.log.WithField("hash", signed.Hash.Hex())
	log.Info("Sending transaction to network")

	hash, err := b.chain.SendRawTransaction(ctx, signed.Raw)
	if err != nil {
		classified := ClassifyBroadcastError(err)
		log.WithError(err).WithField("kind", classified.Kind.String()).Error("Failed to send transaction")
		b.metrics.observeBroadcast(classified.Kind.String())
		return common.Hash{}, classified
	}

	log.Info("Transaction sent successfully")
	b.metrics.observeBroadcast("accepted")
	return hash, nil
}

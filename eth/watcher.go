package eth

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nando-os/ghost-wallet/errno"
	"github.com/sirupsen/logrus"
)

// Watcher polls for receipts until a transaction is mined or the
// observation window closes.
type Watcher struct {
	chain    Chain
	interval time.Duration
	timeout  time.Duration
	explorer string
	metrics  *Metrics
	log      *logrus.Entry
}

func NewWatcher(chain Chain, cfg Config, metrics *Metrics) *Watcher {
	return &Watcher{
		chain:    chain,
		interval: time.Duration(cfg.TransactionTickerSeconds()) * time.Second,
		timeout:  time.Duration(cfg.TransactionTimeoutSeconds()) * time.Second,
		explorer: cfg.ExplorerURL(),
		metrics:  metrics,
		log:      logrus.WithField("component", "watcher"),
	}
}

// Watch blocks until hash has a receipt, timeout elapses or ctx is done.
// A zero timeout uses the configured default. On timeout the returned
// *errno.ConfirmationTimeoutError carries the hash, which stays trackable.
func (w *Watcher) Watch(ctx context.Context, hash common.Hash, timeout time.Duration) (*TransactionResult, error) {
	if timeout <= 0 {
		timeout = w.timeout
	}
	start := time.Now()
	log := w.log.WithField("hash", hash.Hex())

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		receipt, err := w.chain.GetTransactionReceipt(wctx, hash)
		switch {
		case err != nil:
			log.WithError(err).Warn("Receipt lookup failed, retrying")
		case receipt == nil:
			log.Debug("Transaction not mined yet")
		default:
			elapsed := time.Since(start).Seconds()
			result := w.fromReceipt(hash, receipt)
			result.ConfirmationSeconds = &elapsed
			w.metrics.observeConfirmation(result.Status.String(), elapsed)
			log.WithFields(logrus.Fields{
				"status":       result.Status.String(),
				"block_number": receipt.BlockNumber,
				"gas_used":     receipt.GasUsed,
				"seconds":      elapsed,
			}).Info("Transaction confirmed")
			return result, nil
		}

		select {
		case <-wctx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			w.metrics.observeConfirmation("timeout", 0)
			waited := time.Since(start)
			log.WithField("waited", waited.String()).Warn("Transaction not confirmed within timeout")
			return nil, &errno.ConfirmationTimeoutError{TxHash: hash, Waited: waited}
		case <-ticker.C:
		}
	}
}

// Status answers once without waiting: Success or Failed from a receipt,
// Pending for a known transaction that is not mined, NotFound otherwise.
func (w *Watcher) Status(ctx context.Context, hash common.Hash) (*TransactionResult, error) {
	receipt, err := w.chain.GetTransactionReceipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	if receipt != nil {
		return w.fromReceipt(hash, receipt), nil
	}

	tx, _, err := w.chain.GetTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	result := &TransactionResult{TxHash: hash, Status: StatusNotFound}
	if tx != nil {
		result.Status = StatusPending
		result.ExplorerURL = ExplorerTxURL(w.explorer, hash)
	}
	return result, nil
}

func (w *Watcher) fromReceipt(hash common.Hash, receipt *types.Receipt) *TransactionResult {
	status := StatusFailed
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = StatusSuccess
	}
	gasUsed := receipt.GasUsed
	result := &TransactionResult{
		TxHash:      hash,
		Status:      status,
		GasUsed:     &gasUsed,
		ExplorerURL: ExplorerTxURL(w.explorer, hash),
	}
	if receipt.BlockNumber != nil {
		block := receipt.BlockNumber.Uint64()
		result.BlockNumber = &block
	}
	return result
}

// ExplorerTxURL links hash on a block explorer, or returns "" when no
// explorer is configured.
func ExplorerTxURL(explorer string, hash common.Hash) string {
	if explorer == "" {
		return ""
	}
	return explorer + "/tx/" + hash.Hex()
}

// ExplorerAddressURL links an address on a block explorer.
func ExplorerAddressURL(explorer string, addr common.Address) string {
	if explorer == "" {
		return ""
	}
	return explorer + "/address/" + addr.Hex()
}

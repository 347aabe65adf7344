// Package settlement submits packed contract calls through a gateway and
// turns the staged event stream into either a blocking result or a series of
// callbacks.
package settlement

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/vitwit/requestnet/clients"
	"github.com/vitwit/requestnet/logger"
	"github.com/vitwit/requestnet/metrics"
	"github.com/vitwit/requestnet/types"
)

// Call is a contract invocation to be signed and broadcast.
type Call struct {
	// Operation names the public operation for logs and metrics.
	Operation string

	Contract common.Address
	ABI      abi.ABI
	Method   string
	Args     []any

	// Value is the ether attached to the transaction.
	Value *big.Int

	From     common.Address
	GasPrice *big.Int
	GasLimit uint64
}

// SettlementService is stateless apart from its collaborators.
type SettlementService struct {
	gateway clients.Gateway
	logger  logger.Logger
	metrics metrics.Recorder
}

func NewSettlementService(gateway clients.Gateway, log logger.Logger, rec metrics.Recorder) *SettlementService {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &SettlementService{gateway: gateway, logger: log, metrics: rec}
}

// Submit packs and broadcasts call. The returned handle must be consumed
// with exactly one of Await or Notify.
//
// Tracking stops when ctx is done; a transaction that was already broadcast
// may still be included.
func (s *SettlementService) Submit(ctx context.Context, call Call) (*Handle, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, types.SubmissionFailure("failed to encode "+call.Method, err)
	}

	trackCtx, cancel := context.WithCancel(ctx)
	events, err := s.gateway.Submit(trackCtx, clients.TxRequest{
		From:     call.From,
		To:       call.Contract,
		Data:     data,
		Value:    call.Value,
		GasPrice: call.GasPrice,
		GasLimit: call.GasLimit,
	})
	if err != nil {
		cancel()
		s.metrics.IncCounter("submission_failed", map[string]string{"operation": call.Operation})
		return nil, types.SubmissionFailure("failed to submit transaction", err)
	}

	h := &Handle{
		ID:        uuid.NewString(),
		Operation: call.Operation,
		events:    events,
		cancel:    cancel,
		started:   time.Now(),
		svc:       s,
	}
	s.metrics.IncCounter("submitted", map[string]string{"operation": call.Operation})
	s.logger.Debug("transaction submitted", map[string]any{
		"handle": h.ID, "operation": call.Operation, "method": call.Method,
		"from": call.From.Hex(), "to": call.Contract.Hex(),
	})
	return h, nil
}

// Handle tracks one submitted transaction.
type Handle struct {
	ID        string
	Operation string

	events  <-chan types.TxEvent
	cancel  context.CancelFunc
	started time.Time
	svc     *SettlementService

	mu   sync.Mutex
	hash common.Hash
}

// Hash is the transaction hash, known once the submitted stage was seen.
func (h *Handle) Hash() common.Hash {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hash
}

func (h *Handle) setHash(hash common.Hash) {
	h.mu.Lock()
	h.hash = hash
	h.mu.Unlock()
}

// Abandon stops tracking without waiting for an outcome.
func (h *Handle) Abandon() {
	h.cancel()
}

// Await blocks until the transaction reaches depth confirmations and returns
// the receipt seen at that moment. A gateway failure before that point, or a
// stream that ends short of it, is a SubmissionFailure.
func (h *Handle) Await(ctx context.Context, depth uint64) (*ethtypes.Receipt, error) {
	defer h.cancel()
	labels := map[string]string{"operation": h.Operation}

	for {
		select {
		case <-ctx.Done():
			h.svc.logger.Warn("stopped awaiting transaction", map[string]any{
				"handle": h.ID, "operation": h.Operation, "hash": h.Hash().Hex(), "error": ctx.Err().Error(),
			})
			return nil, ctx.Err()

		case ev, ok := <-h.events:
			if !ok {
				// the stream closes with ctx as well
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				h.svc.metrics.IncCounter("submission_failed", labels)
				return nil, types.SubmissionFailure("transaction tracking ended before the requested confirmation", nil)
			}

			switch ev.Stage {
			case types.TxSubmitted:
				h.setHash(ev.Hash)
			case types.TxReceipted:
				h.svc.logger.Debug("transaction mined", map[string]any{
					"handle": h.ID, "hash": ev.Hash.Hex(), "block": ev.Receipt.BlockNumber.String(),
				})
			case types.TxConfirmed:
				if ev.Confirmations >= depth {
					h.svc.metrics.IncCounter("confirmed", labels)
					h.svc.metrics.ObserveLatency(h.Operation, time.Since(h.started), labels)
					h.svc.logger.Info("transaction confirmed", map[string]any{
						"handle": h.ID, "operation": h.Operation, "hash": ev.Hash.Hex(),
						"confirmations": ev.Confirmations,
					})
					return ev.Receipt, nil
				}
			case types.TxFailed:
				h.svc.metrics.IncCounter("submission_failed", labels)
				h.svc.logger.Warn("transaction failed", map[string]any{
					"handle": h.ID, "operation": h.Operation, "hash": ev.Hash.Hex(), "error": errString(ev.Err),
				})
				return nil, types.SubmissionFailure("transaction failed", ev.Err)
			}
		}
	}
}

// Notify forwards every stage to cb from a separate goroutine, in stream
// order, until the stream ends or ctx is done. A done ctx is reported to
// OnError. done, if set, runs last.
func (h *Handle) Notify(ctx context.Context, cb types.Callbacks, done func()) {
	go func() {
		defer h.cancel()
		if done != nil {
			defer done()
		}
		labels := map[string]string{"operation": h.Operation}
		stopped := func() {
			h.svc.logger.Warn("stopped notifying transaction", map[string]any{
				"handle": h.ID, "operation": h.Operation, "hash": h.Hash().Hex(), "error": ctx.Err().Error(),
			})
			if cb.OnError != nil {
				cb.OnError(ctx.Err())
			}
		}

		for {
			select {
			case <-ctx.Done():
				stopped()
				return
			case ev, ok := <-h.events:
				if !ok {
					if ctx.Err() != nil {
						stopped()
					}
					return
				}
				switch ev.Stage {
				case types.TxSubmitted:
					h.setHash(ev.Hash)
					if cb.OnHash != nil {
						cb.OnHash(ev.Hash.Hex())
					}
				case types.TxReceipted:
					if cb.OnReceipt != nil {
						cb.OnReceipt(ev.Receipt)
					}
				case types.TxConfirmed:
					if ev.Confirmations == 0 {
						h.svc.metrics.IncCounter("confirmed", labels)
					}
					if cb.OnConfirmation != nil {
						cb.OnConfirmation(ev.Confirmations, ev.Receipt)
					}
				case types.TxFailed:
					h.svc.metrics.IncCounter("submission_failed", labels)
					if cb.OnError != nil {
						cb.OnError(types.SubmissionFailure("transaction failed", ev.Err))
					}
					return
				}
			}
		}
	}()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

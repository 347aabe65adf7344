package ledgertest

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vitwit/requestnet/clients"
	rntypes "github.com/vitwit/requestnet/types"
)

// ErrReverted is reported for calls the simulated contracts cannot execute.
var ErrReverted = errors.New("execution reverted")

// mine executes tx against the simulated contracts and returns its receipt.
// Access rules are left to the caller's guards; the ledger only rejects
// calls on unknown requests.
func (l *Ledger) mine(tx clients.TxRequest, hash common.Hash) (*ethtypes.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tx.To != l.Currency || len(tx.Data) < 4 {
		return nil, ErrReverted
	}
	method, args, err := decodeCall(clients.RequestEthereumABI, tx.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReverted, err)
	}
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}

	var logs []*ethtypes.Log
	lookup := func() (common.Hash, *Record, error) {
		id := common.Hash(args[0].([32]byte))
		rec, ok := l.requests[id]
		if !ok {
			return id, nil, ErrReverted
		}
		return id, rec, nil
	}

	switch method.Name {
	case "createRequestAsPayee":
		id := l.nextRequestID()
		rec := &Record{
			Creator:          tx.From,
			Payer:            args[0].(common.Address),
			Payee:            tx.From,
			AmountInitial:    new(big.Int).Set(args[1].(*big.Int)),
			CurrencyContract: l.Currency,
			State:            rntypes.StateCreated,
			Extension:        args[2].(common.Address),
			Details:          args[4].(string),
		}
		fill(rec)
		l.requests[id] = rec
		logs = append(logs, l.event("Created", []common.Hash{
			id, common.BytesToHash(rec.Payee.Bytes()), common.BytesToHash(rec.Payer.Bytes()),
		}))

	case "accept":
		id, rec, err := lookup()
		if err != nil {
			return nil, err
		}
		rec.State = rntypes.StateAccepted
		logs = append(logs, l.event("Accepted", []common.Hash{id}))

	case "cancel":
		id, rec, err := lookup()
		if err != nil {
			return nil, err
		}
		rec.State = rntypes.StateCanceled
		logs = append(logs, l.event("Canceled", []common.Hash{id}))

	case "pay":
		id, rec, err := lookup()
		if err != nil {
			return nil, err
		}
		tips := args[1].(*big.Int)
		if tips.Sign() > 0 {
			rec.AmountAdditional = new(big.Int).Add(rec.AmountAdditional, tips)
			logs = append(logs, l.event("AddAdditional", []common.Hash{id}, tips))
		}
		rec.AmountPaid = new(big.Int).Add(rec.AmountPaid, value)
		logs = append(logs, l.event("Payment", []common.Hash{id}, value))

	case "payback":
		id, rec, err := lookup()
		if err != nil {
			return nil, err
		}
		rec.AmountPaid = new(big.Int).Sub(rec.AmountPaid, value)
		logs = append(logs, l.event("Refunded", []common.Hash{id}, value))

	case "discount":
		id, rec, err := lookup()
		if err != nil {
			return nil, err
		}
		amount := args[1].(*big.Int)
		rec.AmountSubtract = new(big.Int).Add(rec.AmountSubtract, amount)
		logs = append(logs, l.event("AddSubtract", []common.Hash{id}, amount))

	case "withdraw":
		delete(l.withdrawable, tx.From)

	default:
		return nil, fmt.Errorf("%w: unsupported method %s", ErrReverted, method.Name)
	}

	l.block++
	for i, lg := range logs {
		lg.TxHash = hash
		lg.BlockNumber = l.block
		lg.Index = uint(i)
	}
	return &ethtypes.Receipt{
		Status:      ethtypes.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(l.block),
		Logs:        logs,
	}, nil
}

// event builds a RequestCore log. topics are the indexed inputs in order,
// data the non-indexed ones.
func (l *Ledger) event(name string, topics []common.Hash, data ...any) *ethtypes.Log {
	ev := clients.RequestCoreABI.Events[name]
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(fmt.Sprintf("ledgertest: pack %s: %v", name, err))
	}
	return &ethtypes.Log{
		Address: l.Core,
		Topics:  append([]common.Hash{ev.ID}, topics...),
		Data:    packed,
	}
}

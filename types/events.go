package types

import (
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// TxStage tags a TxEvent.
type TxStage int

const (
	// TxSubmitted: the gateway accepted the transaction and its hash is known.
	TxSubmitted TxStage = iota
	// TxReceipted: the transaction was mined. No finality is implied.
	TxReceipted
	// TxConfirmed: a confirmation notification with a running count.
	TxConfirmed
	// TxFailed: terminal error. Nothing follows it.
	TxFailed
)

func (s TxStage) String() string {
	switch s {
	case TxSubmitted:
		return "submitted"
	case TxReceipted:
		return "receipted"
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TxEvent is one notification of the ordered stream a gateway produces for
// a submitted transaction: Submitted, Receipted, Confirmed{0..n}, with Failed
// able to end the stream at any point.
type TxEvent struct {
	Stage TxStage

	Hash common.Hash

	// Receipt is set for TxReceipted and TxConfirmed.
	Receipt *ethtypes.Receipt

	// Confirmations is set for TxConfirmed and increases strictly.
	Confirmations uint64

	// Err is set for TxFailed.
	Err error
}

// Callbacks receive the staged notifications of a submitted transaction.
// Any callback may be nil.
type Callbacks struct {
	OnHash         func(hash string)
	OnReceipt      func(receipt *ethtypes.Receipt)
	OnConfirmation func(confirmations uint64, receipt *ethtypes.Receipt)
	OnError        func(err error)
}

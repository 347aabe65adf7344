package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	rntypes "github.com/vitwit/requestnet/types"
)

// Caller performs read-only contract calls.
type Caller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Gateway is the ledger boundary: read-only calls, transaction submission
// with a staged event stream, and resolution of the acting account.
type Gateway interface {
	Caller

	// Submit signs and broadcasts tx. Local failures (unknown account, bad
	// request) are returned directly; everything after that, including a
	// rejected broadcast, arrives as a TxFailed event. The stream is closed
	// after the final event. Cancelling ctx stops tracking but does not
	// withdraw a transaction that was already broadcast.
	Submit(ctx context.Context, tx TxRequest) (<-chan rntypes.TxEvent, error)

	// DefaultAccount is the account used when TxRequest.From is zero.
	DefaultAccount(ctx context.Context) (common.Address, error)

	Close()
}

// TxRequest is a packed contract invocation ready for signing.
type TxRequest struct {
	From     common.Address
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasPrice *big.Int
	GasLimit uint64
}

package extensions

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/requestnet/clients"
	"github.com/vitwit/requestnet/types"
	"github.com/vitwit/requestnet/utils"
)

const escrowABIJSON = `[
  {
    "name": "escrows",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "", "type": "bytes32" }],
    "outputs": [
      { "name": "currencyContract", "type": "address" },
      { "name": "escrow", "type": "address" },
      { "name": "state", "type": "uint8" },
      { "name": "balance", "type": "uint256" }
    ]
  }
]`

// EscrowABI is the read surface of the escrow extension contract.
var EscrowABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(escrowABIJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid escrow abi: %v", err))
	}
	return parsed
}()

// EscrowState is the escrow's own lifecycle, independent of the request state.
type EscrowState uint8

const (
	EscrowCreated EscrowState = iota
	EscrowRefunded
	EscrowReleased
)

func (s EscrowState) String() string {
	switch s {
	case EscrowCreated:
		return "created"
	case EscrowRefunded:
		return "refunded"
	case EscrowReleased:
		return "released"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

type escrowRecord struct {
	CurrencyContract common.Address
	Escrow           common.Address
	State            uint8
	Balance          *big.Int
}

var _ Extension = (*Escrow)(nil)

// Escrow is the synchronous escrow extension: payments are held by the
// extension contract until the escrow account releases or refunds them.
type Escrow struct {
	caller  clients.Caller
	address common.Address
}

func NewEscrow(caller clients.Caller, address common.Address) *Escrow {
	return &Escrow{caller: caller, address: address}
}

// Address is the extension contract address.
func (e *Escrow) Address() common.Address {
	return e.address
}

// ParseParameters expects the escrow account as the only parameter.
func (e *Escrow) ParseParameters(params []string) ([][32]byte, error) {
	if len(params) == 0 || params[0] == "" {
		return nil, fmt.Errorf("escrow extension requires the escrow address as first parameter")
	}
	if len(params) > 1 {
		return nil, fmt.Errorf("escrow extension takes a single parameter, got %d", len(params))
	}
	if !utils.IsAddress(params[0]) {
		return nil, fmt.Errorf("escrow must be a valid eth address")
	}

	slots := make([][32]byte, types.MaxExtensionParams)
	slots[0] = common.BytesToHash(common.HexToAddress(params[0]).Bytes())
	return slots, nil
}

// FetchDetails reads the escrow record kept for requestID.
func (e *Escrow) FetchDetails(ctx context.Context, requestID common.Hash) (map[string]any, error) {
	var rec escrowRecord
	if err := clients.CallInto(ctx, e.caller, e.address, EscrowABI, "escrows", &rec, requestID); err != nil {
		return nil, err
	}

	balance := types.AmountFromBig(rec.Balance)
	return map[string]any{
		"currencyContract": rec.CurrencyContract.Hex(),
		"escrow":           rec.Escrow.Hex(),
		"state":            EscrowState(rec.State).String(),
		"balance":          balance.String(),
	}, nil
}

package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// State represents the lifecycle state of a request as stored on chain.
type State uint8

const (
	StateCreated State = iota
	StateAccepted
	StateDeclined
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAccepted:
		return "accepted"
	case StateDeclined:
		return "declined"
	case StateCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// IsTerminal reports whether no further transition can leave the state.
func (s State) IsTerminal() bool {
	return s == StateDeclined || s == StateCanceled
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MaxExtensionParams is the number of fixed-width parameter slots an
// extension receives at creation.
const MaxExtensionParams = 9

// Request is a read-through snapshot of a request owned by the ledger.
type Request struct {
	// RequestID is the 0x-prefixed 32 byte identifier assigned at creation.
	RequestID string `json:"requestId"`

	Creator string `json:"creator"`
	Payer   string `json:"payer"`
	Payee   string `json:"payee"`

	// CurrencyContract is the contract that created the request and holds its funds.
	CurrencyContract string `json:"currencyContract"`

	AmountInitial    Amount `json:"amountInitial"`
	AmountPaid       Amount `json:"amountPaid"`
	AmountAdditional Amount `json:"amountAdditional"`
	AmountSubtract   Amount `json:"amountSubtract"`

	State State `json:"state"`

	// Extension is nil when the request has no extension or the extension
	// address is not registered.
	Extension *ExtensionInfo `json:"extension,omitempty"`

	// ExtensionAddress is the raw extension address from the core record,
	// empty for the zero address.
	ExtensionAddress string `json:"extensionAddress,omitempty"`

	// DetailsID is the content identifier of the off-chain details document.
	DetailsID string `json:"detailsId,omitempty"`

	// Details is the resolved details document.
	Details json.RawMessage `json:"details,omitempty"`
}

// ExpectedAmount is amountInitial + amountAdditional - amountSubtract, the
// ceiling amountPaid may never exceed.
func (r *Request) ExpectedAmount() Amount {
	return r.AmountInitial.Add(r.AmountAdditional).Sub(r.AmountSubtract)
}

// ExtensionInfo is the extension sub-state merged into a snapshot.
type ExtensionInfo struct {
	Address string         `json:"address"`
	Details map[string]any `json:"details,omitempty"`
}

// TxOptions are the per-call overrides accepted by every mutating operation.
type TxOptions struct {
	// Confirmations is the confirmation depth at which the blocking form
	// resolves. Zero resolves at the first confirmation notification.
	Confirmations uint64 `json:"confirmations,omitempty"`

	// From is the acting account. Empty uses the gateway's default account.
	From string `json:"from,omitempty"`

	// GasPrice in wei. Nil lets the gateway suggest one.
	GasPrice *big.Int `json:"gasPrice,omitempty"`

	// GasLimit of zero lets the gateway estimate one.
	GasLimit uint64 `json:"gasLimit,omitempty"`
}

// CreateParams describes a request created by the acting account as payee.
type CreateParams struct {
	Payer           string          `json:"payer"`
	AmountInitial   Amount          `json:"amountInitial"`
	Extension       string          `json:"extension,omitempty"`
	ExtensionParams []string        `json:"extensionParams,omitempty"`
	Details         json.RawMessage `json:"details,omitempty"`
}

// TxResult is the resolved outcome of a mutating operation.
type TxResult struct {
	RequestID       string `json:"requestId,omitempty"`
	TransactionHash string `json:"transactionHash"`
}

// CreateResult is the resolved outcome of Create.
type CreateResult struct {
	TxResult
	// DetailsID is the content identifier of the stored details, empty when
	// no details were supplied.
	DetailsID string `json:"detailsId,omitempty"`
}

// PaybackResult is the resolved outcome of Payback.
type PaybackResult struct {
	TxResult
	AmountRefunded Amount `json:"amountRefunded"`
}

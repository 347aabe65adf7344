// Package ledgertest is an in-process stand-in for the request contracts. It
// implements clients.Gateway, answers calls with ABI-encoded outputs and
// mines submissions into receipts carrying real event logs.
package ledgertest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vitwit/requestnet/clients"
	rntypes "github.com/vitwit/requestnet/types"
)

var (
	DefaultCore     = common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	DefaultCurrency = common.HexToAddress("0xe7f1725e7734ce288f8367e1bb143e90bb3f0512")

	Payee = common.HexToAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	Payer = common.HexToAddress("0x70997970c51812dc3a010c7d01b50e0d17dc79c8")
	Other = common.HexToAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
)

// CallHandler answers read-only calls made to an extra contract.
type CallHandler func(data []byte) ([]byte, error)

// Record is the ledger's copy of a request.
type Record struct {
	Creator          common.Address
	Payer            common.Address
	Payee            common.Address
	AmountInitial    *big.Int
	CurrencyContract common.Address
	AmountPaid       *big.Int
	AmountAdditional *big.Int
	AmountSubtract   *big.Int
	State            rntypes.State
	Extension        common.Address
	Details          string
}

// Failure makes the next submission fail at the given stage.
type Failure struct {
	// Stage is TxSubmitted to fail right after the hash, TxReceipted to
	// fail before the receipt, or TxConfirmed to fail after AtConfirmation.
	Stage          rntypes.TxStage
	AtConfirmation uint64
	Err            error
}

var _ clients.Gateway = (*Ledger)(nil)

type Ledger struct {
	Core     common.Address
	Currency common.Address

	// Confirmations is the deepest confirmation emitted per transaction.
	Confirmations uint64

	mu           sync.Mutex
	accounts     []common.Address
	requests     map[common.Hash]*Record
	handlers     map[common.Address]CallHandler
	fees         *big.Int
	withdrawable map[common.Address]*big.Int
	block        uint64
	txCount      uint64
	calls        int
	submissions  []clients.TxRequest
	failNext     *Failure
	submitErr    error
	hold         chan struct{}
	closed       bool
}

func New() *Ledger {
	return &Ledger{
		Core:          DefaultCore,
		Currency:      DefaultCurrency,
		Confirmations: 3,
		accounts:      []common.Address{Payee, Payer, Other},
		requests:      make(map[common.Hash]*Record),
		handlers:      make(map[common.Address]CallHandler),
		fees:          big.NewInt(10),
		withdrawable:  make(map[common.Address]*big.Int),
		block:         100,
	}
}

// Seed stores rec under a fresh identifier and returns it.
func (l *Ledger) Seed(rec Record) common.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextRequestID()
	fill(&rec)
	l.requests[id] = &rec
	return id
}

// Request returns a copy of the ledger record for id.
func (l *Ledger) Request(id common.Hash) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.requests[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Handle routes calls to addr through h.
func (l *Ledger) Handle(addr common.Address, h CallHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[addr] = h
}

func (l *Ledger) SetWithdrawable(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.withdrawable[account] = new(big.Int).Set(amount)
}

// FailNext injects a failure into the next submission.
func (l *Ledger) FailNext(f Failure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = &f
}

// RejectSubmissions makes Submit itself return err.
func (l *Ledger) RejectSubmissions(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitErr = err
}

// HoldMining stops submissions before they are mined until release is called.
func (l *Ledger) HoldMining() (release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan struct{})
	l.hold = ch
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (l *Ledger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *Ledger) Submissions() []clients.TxRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]clients.TxRequest, len(l.submissions))
	copy(out, l.submissions)
	return out
}

func (l *Ledger) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Call implements clients.Caller.
func (l *Ledger) Call(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++

	if len(data) < 4 {
		return nil, errors.New("calldata too short")
	}
	switch to {
	case l.Core:
		return l.callCore(data)
	case l.Currency:
		return l.callCurrency(data)
	}
	if h, ok := l.handlers[to]; ok {
		return h(data)
	}
	return nil, fmt.Errorf("no contract at %s", to.Hex())
}

func (l *Ledger) callCore(data []byte) ([]byte, error) {
	method, args, err := decodeCall(clients.RequestCoreABI, data)
	if err != nil {
		return nil, err
	}
	if method.Name != "requests" {
		return nil, fmt.Errorf("unsupported core call %s", method.Name)
	}
	id := common.Hash(args[0].([32]byte))
	rec, ok := l.requests[id]
	if !ok {
		rec = &Record{}
		fill(rec)
	}
	return method.Outputs.Pack(
		rec.Creator, rec.Payer, rec.Payee, rec.AmountInitial, rec.CurrencyContract,
		rec.AmountPaid, rec.AmountAdditional, rec.AmountSubtract, uint8(rec.State),
		rec.Extension, rec.Details,
	)
}

func (l *Ledger) callCurrency(data []byte) ([]byte, error) {
	method, args, err := decodeCall(clients.RequestEthereumABI, data)
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "feesPer10000":
		return method.Outputs.Pack(l.fees)
	case "ethToWithdraw":
		bal, ok := l.withdrawable[args[0].(common.Address)]
		if !ok {
			bal = new(big.Int)
		}
		return method.Outputs.Pack(bal)
	default:
		return nil, fmt.Errorf("unsupported currency call %s", method.Name)
	}
}

// DefaultAccount implements clients.Gateway.
func (l *Ledger) DefaultAccount(context.Context) (common.Address, error) {
	return l.accounts[0], nil
}

// Close implements clients.Gateway.
func (l *Ledger) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

// Submit implements clients.Gateway.
func (l *Ledger) Submit(ctx context.Context, tx clients.TxRequest) (<-chan rntypes.TxEvent, error) {
	l.mu.Lock()
	if l.submitErr != nil {
		err := l.submitErr
		l.mu.Unlock()
		return nil, err
	}
	if tx.From == (common.Address{}) {
		tx.From = l.accounts[0]
	}
	l.submissions = append(l.submissions, tx)
	l.txCount++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], l.txCount)
	hash := crypto.Keccak256Hash(tx.From.Bytes(), nonce[:])
	failure := l.failNext
	l.failNext = nil
	hold := l.hold
	l.mu.Unlock()

	events := make(chan rntypes.TxEvent)
	go l.track(ctx, tx, hash, failure, hold, events)
	return events, nil
}

func (l *Ledger) track(ctx context.Context, tx clients.TxRequest, hash common.Hash, failure *Failure, hold chan struct{}, events chan<- rntypes.TxEvent) {
	defer close(events)

	send := func(ev rntypes.TxEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		send(rntypes.TxEvent{Stage: rntypes.TxFailed, Hash: hash, Err: err})
	}

	if !send(rntypes.TxEvent{Stage: rntypes.TxSubmitted, Hash: hash}) {
		return
	}
	if failure != nil && failure.Stage == rntypes.TxSubmitted {
		fail(failure.Err)
		return
	}

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return
		}
	}

	if failure != nil && failure.Stage == rntypes.TxReceipted {
		fail(failure.Err)
		return
	}

	receipt, err := l.mine(tx, hash)
	if err != nil {
		fail(err)
		return
	}
	if !send(rntypes.TxEvent{Stage: rntypes.TxReceipted, Hash: hash, Receipt: receipt}) {
		return
	}

	for n := uint64(0); n <= l.Confirmations; n++ {
		if failure != nil && failure.Stage == rntypes.TxConfirmed && n == failure.AtConfirmation {
			fail(failure.Err)
			return
		}
		if !send(rntypes.TxEvent{Stage: rntypes.TxConfirmed, Hash: hash, Receipt: receipt, Confirmations: n}) {
			return
		}
	}
}

func (l *Ledger) nextRequestID() common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(l.requests)+1))
	return crypto.Keccak256Hash(l.Core.Bytes(), n[:])
}

func decodeCall(contractABI abi.ABI, data []byte) (*abi.Method, []any, error) {
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

func fill(rec *Record) {
	for _, p := range []**big.Int{&rec.AmountInitial, &rec.AmountPaid, &rec.AmountAdditional, &rec.AmountSubtract} {
		if *p == nil {
			*p = new(big.Int)
		}
	}
}

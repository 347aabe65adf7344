package clients

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/vitwit/requestnet/logger"
	rntypes "github.com/vitwit/requestnet/types"
	"github.com/vitwit/requestnet/utils"
)

const (
	// DefaultMaxConfirmations matches the number of confirmation
	// notifications web3 clients emit before giving up on a transaction.
	DefaultMaxConfirmations = 24
	DefaultPollInterval     = time.Second
)

// ErrTransactionReverted is reported when a mined receipt has a failed status.
var ErrTransactionReverted = errors.New("transaction has been reverted by the EVM")

// Backend is the subset of ethclient.Client the gateway needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

var _ Backend = (*ethclient.Client)(nil)

// GatewayOptions configures an EthereumGateway.
type GatewayOptions struct {
	// ChainID is queried from the node when nil.
	ChainID *big.Int
	// SignerKeys are hex private keys; the first is the default account.
	SignerKeys       []string
	MaxConfirmations uint64
	PollInterval     time.Duration
	// RPCRateLimit caps tracking RPC calls per second. Zero disables it.
	RPCRateLimit float64
	Logger       logger.Logger
}

var _ Gateway = (*EthereumGateway)(nil)

// EthereumGateway signs transactions with locally held keys, broadcasts them
// and tracks each one from hash to the configured confirmation depth.
type EthereumGateway struct {
	backend          Backend
	chainID          *big.Int
	keys             map[common.Address]*ecdsa.PrivateKey
	accounts         []common.Address
	maxConfirmations uint64
	pollInterval     time.Duration
	limiter          *rate.Limiter
	logger           logger.Logger
}

// NewEthereumGateway dials rpcURL and builds a gateway on the connection.
func NewEthereumGateway(ctx context.Context, rpcURL string, opts GatewayOptions) (*EthereumGateway, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}
	g, err := NewGatewayWithBackend(ctx, client, opts)
	if err != nil {
		client.Close()
		return nil, err
	}
	return g, nil
}

// NewGatewayWithBackend builds a gateway on an existing backend.
func NewGatewayWithBackend(ctx context.Context, backend Backend, opts GatewayOptions) (*EthereumGateway, error) {
	chainID := opts.ChainID
	if chainID == nil {
		id, err := backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chain id: %w", err)
		}
		chainID = id
	}

	g := &EthereumGateway{
		backend:          backend,
		chainID:          chainID,
		keys:             make(map[common.Address]*ecdsa.PrivateKey, len(opts.SignerKeys)),
		maxConfirmations: opts.MaxConfirmations,
		pollInterval:     opts.PollInterval,
		logger:           opts.Logger,
	}
	if g.maxConfirmations == 0 {
		g.maxConfirmations = DefaultMaxConfirmations
	}
	if g.pollInterval <= 0 {
		g.pollInterval = DefaultPollInterval
	}
	if g.logger == nil {
		g.logger = logger.NoopLogger{}
	}
	if opts.RPCRateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(opts.RPCRateLimit), 1)
	}

	for _, hexKey := range opts.SignerKeys {
		key, addr, err := utils.ParseSignerKey(hexKey)
		if err != nil {
			return nil, err
		}
		if _, dup := g.keys[addr]; dup {
			continue
		}
		g.keys[addr] = key
		g.accounts = append(g.accounts, addr)
	}

	return g, nil
}

// Accounts returns the signing accounts in configuration order.
func (g *EthereumGateway) Accounts() []common.Address {
	out := make([]common.Address, len(g.accounts))
	copy(out, g.accounts)
	return out
}

// Call implements Caller.
func (g *EthereumGateway) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return g.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// DefaultAccount implements Gateway.
func (g *EthereumGateway) DefaultAccount(ctx context.Context) (common.Address, error) {
	if len(g.accounts) == 0 {
		return common.Address{}, errors.New("no signer account configured")
	}
	return g.accounts[0], nil
}

// Submit implements Gateway.
func (g *EthereumGateway) Submit(ctx context.Context, req TxRequest) (<-chan rntypes.TxEvent, error) {
	from := req.From
	if from == (common.Address{}) {
		def, err := g.DefaultAccount(ctx)
		if err != nil {
			return nil, err
		}
		from = def
	}
	key, ok := g.keys[from]
	if !ok {
		return nil, fmt.Errorf("no signing key for account %s", from.Hex())
	}
	req.From = from

	events := make(chan rntypes.TxEvent)
	go g.broadcast(ctx, key, req, events)
	return events, nil
}

// Close implements Gateway.
func (g *EthereumGateway) Close() {
	g.backend.Close()
}

func (g *EthereumGateway) broadcast(ctx context.Context, key *ecdsa.PrivateKey, req TxRequest, events chan<- rntypes.TxEvent) {
	defer close(events)

	fail := func(hash common.Hash, err error) {
		emit(ctx, events, rntypes.TxEvent{Stage: rntypes.TxFailed, Hash: hash, Err: err})
	}

	signed, err := g.sign(ctx, key, req)
	if err != nil {
		fail(common.Hash{}, err)
		return
	}
	if err := g.backend.SendTransaction(ctx, signed); err != nil {
		fail(signed.Hash(), fmt.Errorf("failed to send transaction: %w", err))
		return
	}
	hash := signed.Hash()
	g.logger.Debug("transaction broadcast", map[string]any{
		"hash": hash.Hex(), "from": req.From.Hex(), "to": req.To.Hex(), "nonce": signed.Nonce(),
	})
	if !emit(ctx, events, rntypes.TxEvent{Stage: rntypes.TxSubmitted, Hash: hash}) {
		return
	}

	receipt, err := g.waitMined(ctx, hash)
	if err != nil {
		fail(hash, err)
		return
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		fail(hash, ErrTransactionReverted)
		return
	}
	if !emit(ctx, events, rntypes.TxEvent{Stage: rntypes.TxReceipted, Hash: hash, Receipt: receipt}) {
		return
	}

	mined := receipt.BlockNumber.Uint64()
	var next uint64
	for next <= g.maxConfirmations {
		head, err := g.blockNumber(ctx)
		if err != nil {
			fail(hash, err)
			return
		}
		for next <= g.maxConfirmations && head >= mined+next {
			ev := rntypes.TxEvent{Stage: rntypes.TxConfirmed, Hash: hash, Receipt: receipt, Confirmations: next}
			if !emit(ctx, events, ev) {
				return
			}
			next++
		}
		if next > g.maxConfirmations {
			return
		}
		if !g.sleep(ctx) {
			return
		}
	}
}

func (g *EthereumGateway) sign(ctx context.Context, key *ecdsa.PrivateKey, req TxRequest) (*ethtypes.Transaction, error) {
	nonce, err := g.backend.PendingNonceAt(ctx, req.From)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		gasPrice, err = g.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		to := req.To
		gasLimit, err = g.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:     req.From,
			To:       &to,
			GasPrice: gasPrice,
			Value:    value,
			Data:     req.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &req.To,
		Value:    value,
		Data:     req.Data,
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(g.chainID), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

func (g *EthereumGateway) waitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	for {
		if err := g.throttle(ctx); err != nil {
			return nil, err
		}
		receipt, err := g.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt: %w", err)
		}
		if !g.sleep(ctx) {
			return nil, ctx.Err()
		}
	}
}

func (g *EthereumGateway) blockNumber(ctx context.Context) (uint64, error) {
	if err := g.throttle(ctx); err != nil {
		return 0, err
	}
	head, err := g.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch block number: %w", err)
	}
	return head, nil
}

func (g *EthereumGateway) throttle(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

func (g *EthereumGateway) sleep(ctx context.Context) bool {
	t := time.NewTimer(g.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// emit delivers ev unless ctx is done first.
func emit(ctx context.Context, events chan<- rntypes.TxEvent, ev rntypes.TxEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

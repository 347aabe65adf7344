// Package requestnet is a client library for payment requests recorded on an
// Ethereum ledger. A payee creates a request naming a payer and an amount;
// the request is then accepted, paid, refunded, discounted or canceled, each
// transition guarded against a fresh snapshot of the ledger state and
// submitted as a transaction tracked to a chosen confirmation depth.
package requestnet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/requestnet/clients"
	"github.com/vitwit/requestnet/config"
	"github.com/vitwit/requestnet/extensions"
	"github.com/vitwit/requestnet/logger"
	"github.com/vitwit/requestnet/metrics"
	"github.com/vitwit/requestnet/reader"
	"github.com/vitwit/requestnet/settlement"
	"github.com/vitwit/requestnet/storage"
	"github.com/vitwit/requestnet/storage/grpccas"
	"github.com/vitwit/requestnet/storage/localfs"
	"github.com/vitwit/requestnet/types"
)

// Contracts are the addresses of the deployed contract pair.
type Contracts struct {
	// RequestCore stores every request and emits the lifecycle events.
	RequestCore common.Address
	// RequestEthereum is the ether currency contract transactions go to.
	RequestEthereum common.Address
}

// Service is the entry point for every request operation. Its collaborators
// are fixed at construction; operations share no other state.
type Service struct {
	gateway    clients.Gateway
	contracts  Contracts
	store      storage.ContentStore
	registry   *extensions.Registry
	reader     *reader.Reader
	settlement *settlement.SettlementService

	logger               logger.Logger
	metrics              metrics.Recorder
	timeout              time.Duration
	defaultConfirmations uint64
	closers              []func() error
}

// New wires a Service from its collaborators. registry may be nil when no
// extension is in use.
func New(gateway clients.Gateway, contracts Contracts, store storage.ContentStore, registry *extensions.Registry, opts ...Option) *Service {
	s := &Service{
		gateway:   gateway,
		contracts: contracts,
		store:     store,
		registry:  registry,
		logger:    logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = extensions.NewRegistry()
	}
	s.reader = reader.New(gateway, contracts.RequestCore, store, s.registry, s.logger)
	s.settlement = settlement.NewSettlementService(gateway, s.logger, s.metrics)
	return s
}

// NewFromConfig dials the ledger, opens the configured content store and
// registers the configured extensions.
func NewFromConfig(ctx context.Context, cfg *types.Config) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	log := logger.NewZapLogger(cfg.LogLevel)
	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.EnableMetrics {
		rec = metrics.NewPrometheusRecorder(nil)
	}

	gwOpts := clients.GatewayOptions{
		SignerKeys:       cfg.Client.SignerKeys,
		MaxConfirmations: cfg.Client.MaxConfirmations,
		PollInterval:     cfg.Client.PollInterval,
		RPCRateLimit:     cfg.Client.RPCRateLimit,
		Logger:           log,
	}
	if cfg.Client.ChainID != 0 {
		gwOpts.ChainID = big.NewInt(cfg.Client.ChainID)
	}
	gateway, err := clients.NewEthereumGateway(ctx, cfg.Client.RPCUrl, gwOpts)
	if err != nil {
		return nil, err
	}

	cas, closeStore, err := openStore(cfg.Store)
	if err != nil {
		gateway.Close()
		return nil, err
	}

	registry := extensions.NewRegistry()
	if cfg.Extensions.Escrow != "" {
		addr := common.HexToAddress(cfg.Extensions.Escrow)
		if err := registry.Register(addr, extensions.NewEscrow(gateway, addr)); err != nil {
			gateway.Close()
			_ = closeStore()
			return nil, err
		}
	}

	contracts := Contracts{
		RequestCore:     common.HexToAddress(cfg.Client.RequestCore),
		RequestEthereum: common.HexToAddress(cfg.Client.RequestEthereum),
	}
	var exts []string
	for _, addr := range registry.Addresses() {
		exts = append(exts, addr.Hex())
	}
	log.Info("request service ready", map[string]any{
		"requestCore":     contracts.RequestCore.Hex(),
		"requestEthereum": contracts.RequestEthereum.Hex(),
		"store":           cfg.Store.Kind,
		"accounts":        len(gateway.Accounts()),
		"extensions":      exts,
	})

	return New(gateway, contracts, storage.NewDocuments(cas), registry,
		WithLogger(log),
		WithMetrics(rec),
		WithTimeout(cfg.DefaultTimeout),
		WithDefaultConfirmations(cfg.DefaultConfirmations),
		withCloser(closeStore),
	), nil
}

func openStore(cfg types.StoreConfig) (storage.CAS, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Kind {
	case types.StoreMemory:
		return storage.NewMemoryCAS(), noop, nil
	case types.StoreLocalFS:
		cas, err := localfs.New(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open content store: %w", err)
		}
		return cas, noop, nil
	case types.StoreGRPC:
		client, err := grpccas.Dial(cfg.Target, grpccas.DialOptions{Timeout: cfg.Timeout})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to dial content store: %w", err)
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content store %q", cfg.Kind)
	}
}

// Close releases the gateway connection and the content store.
func (s *Service) Close() error {
	s.gateway.Close()
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Registry returns the extension registry.
func (s *Service) Registry() *extensions.Registry {
	return s.registry
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

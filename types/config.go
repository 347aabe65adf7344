package types

import "time"

// Content store backends.
const (
	StoreMemory  = "memory"
	StoreLocalFS = "localfs"
	StoreGRPC    = "grpc"
)

// ClientConfig contains the ledger connection settings.
type ClientConfig struct {
	RPCUrl  string `json:"rpcUrl" yaml:"rpcUrl" env:"REQUESTNET_RPC_URL" validate:"required,url"`
	ChainID int64  `json:"chainId,omitempty" yaml:"chainId" env:"REQUESTNET_CHAIN_ID"`

	// RequestCore and RequestEthereum are the contract pair addresses.
	RequestCore     string `json:"requestCore" yaml:"requestCore" env:"REQUESTNET_REQUEST_CORE" validate:"required,eth_addr"`
	RequestEthereum string `json:"requestEthereum" yaml:"requestEthereum" env:"REQUESTNET_REQUEST_ETHEREUM" validate:"required,eth_addr"`

	// SignerKeys are hex private keys. The first one is the default account.
	SignerKeys []string `json:"-" yaml:"signerKeys" env:"REQUESTNET_SIGNER_KEYS" validate:"dive,hexadecimal"`

	// MaxConfirmations is how many confirmation notifications the gateway
	// emits before closing a stream.
	MaxConfirmations uint64        `json:"maxConfirmations,omitempty" yaml:"maxConfirmations" env:"REQUESTNET_MAX_CONFIRMATIONS"`
	PollInterval     time.Duration `json:"pollInterval,omitempty" yaml:"pollInterval" env:"REQUESTNET_POLL_INTERVAL"`

	// RPCRateLimit caps tracking-loop RPC calls per second. Zero disables it.
	RPCRateLimit float64 `json:"rpcRateLimit,omitempty" yaml:"rpcRateLimit" env:"REQUESTNET_RPC_RATE_LIMIT" validate:"gte=0"`
}

// StoreConfig selects and configures the content store.
type StoreConfig struct {
	Kind    string        `json:"kind" yaml:"kind" env:"REQUESTNET_STORE_KIND" validate:"required,oneof=memory localfs grpc"`
	Path    string        `json:"path,omitempty" yaml:"path" env:"REQUESTNET_STORE_PATH" validate:"required_if=Kind localfs"`
	Target  string        `json:"target,omitempty" yaml:"target" env:"REQUESTNET_STORE_TARGET" validate:"required_if=Kind grpc"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout" env:"REQUESTNET_STORE_TIMEOUT"`
}

// ExtensionsConfig lists the addresses of known extension contracts.
type ExtensionsConfig struct {
	Escrow string `json:"escrow,omitempty" yaml:"escrow" env:"REQUESTNET_EXTENSION_ESCROW" validate:"omitempty,eth_addr"`
}

// Config contains global configuration for the request service.
type Config struct {
	Client     ClientConfig     `json:"client" yaml:"client"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Extensions ExtensionsConfig `json:"extensions" yaml:"extensions"`

	DefaultTimeout       time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout" env:"REQUESTNET_DEFAULT_TIMEOUT"`
	DefaultConfirmations uint64        `json:"defaultConfirmations,omitempty" yaml:"defaultConfirmations" env:"REQUESTNET_DEFAULT_CONFIRMATIONS"`
	LogLevel             string        `json:"logLevel,omitempty" yaml:"logLevel" env:"REQUESTNET_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics        bool          `json:"enableMetrics,omitempty" yaml:"enableMetrics" env:"REQUESTNET_ENABLE_METRICS"`
}

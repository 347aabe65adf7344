package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ----------------- RequestCore ABI -----------------
const requestCoreABI = `[
  {
    "name": "requests",
    "type": "function",
    "stateMutability": "view",
    "inputs": [{ "name": "", "type": "bytes32" }],
    "outputs": [
      { "name": "creator", "type": "address" },
      { "name": "payer", "type": "address" },
      { "name": "payee", "type": "address" },
      { "name": "amountInitial", "type": "int256" },
      { "name": "subContract", "type": "address" },
      { "name": "amountPaid", "type": "int256" },
      { "name": "amountAdditional", "type": "int256" },
      { "name": "amountSubtract", "type": "int256" },
      { "name": "state", "type": "uint8" },
      { "name": "extension", "type": "address" },
      { "name": "details", "type": "string" }
    ]
  },
  {
    "name": "Created", "type": "event", "anonymous": false,
    "inputs": [
      { "name": "requestId", "type": "bytes32", "indexed": true },
      { "name": "payee", "type": "address", "indexed": true },
      { "name": "payer", "type": "address", "indexed": true }
    ]
  },
  {
    "name": "Accepted", "type": "event", "anonymous": false,
    "inputs": [{ "name": "requestId", "type": "bytes32", "indexed": true }]
  },
  {
    "name": "Declined", "type": "event", "anonymous": false,
    "inputs": [{ "name": "requestId", "type": "bytes32", "indexed": true }]
  },
  {
    "name": "Canceled", "type": "event", "anonymous": false,
    "inputs": [{ "name": "requestId", "type": "bytes32", "indexed": true }]
  },
  {
    "name": "Payment", "type": "event", "anonymous": false,
    "inputs": [
      { "name": "requestId", "type": "bytes32", "indexed": true },
      { "name": "amountPaid", "type": "uint256", "indexed": false }
    ]
  },
  {
    "name": "Refunded", "type": "event", "anonymous": false,
    "inputs": [
      { "name": "requestId", "type": "bytes32", "indexed": true },
      { "name": "amountRefunded", "type": "uint256", "indexed": false }
    ]
  },
  {
    "name": "AddAdditional", "type": "event", "anonymous": false,
    "inputs": [
      { "name": "requestId", "type": "bytes32", "indexed": true },
      { "name": "amountAdded", "type": "uint256", "indexed": false }
    ]
  },
  {
    "name": "AddSubtract", "type": "event", "anonymous": false,
    "inputs": [
      { "name": "requestId", "type": "bytes32", "indexed": true },
      { "name": "amountSubtracted", "type": "uint256", "indexed": false }
    ]
  }
]`

// ----------------- RequestEthereum ABI -----------------
const requestEthereumABI = `[
  {
    "name": "createRequestAsPayee",
    "type": "function",
    "stateMutability": "payable",
    "inputs": [
      { "name": "_payer", "type": "address" },
      { "name": "_amountInitial", "type": "int256" },
      { "name": "_extension", "type": "address" },
      { "name": "_extensionParams", "type": "bytes32[9]" },
      { "name": "_details", "type": "string" }
    ],
    "outputs": [{ "name": "", "type": "bytes32" }]
  },
  {
    "name": "accept", "type": "function", "stateMutability": "nonpayable",
    "inputs": [{ "name": "_requestId", "type": "bytes32" }], "outputs": []
  },
  {
    "name": "cancel", "type": "function", "stateMutability": "nonpayable",
    "inputs": [{ "name": "_requestId", "type": "bytes32" }], "outputs": []
  },
  {
    "name": "pay", "type": "function", "stateMutability": "payable",
    "inputs": [
      { "name": "_requestId", "type": "bytes32" },
      { "name": "_tips", "type": "uint256" }
    ],
    "outputs": []
  },
  {
    "name": "payback", "type": "function", "stateMutability": "payable",
    "inputs": [{ "name": "_requestId", "type": "bytes32" }], "outputs": []
  },
  {
    "name": "discount", "type": "function", "stateMutability": "nonpayable",
    "inputs": [
      { "name": "_requestId", "type": "bytes32" },
      { "name": "_amount", "type": "uint256" }
    ],
    "outputs": []
  },
  {
    "name": "withdraw", "type": "function", "stateMutability": "nonpayable",
    "inputs": [], "outputs": []
  },
  {
    "name": "feesPer10000", "type": "function", "stateMutability": "view",
    "inputs": [], "outputs": [{ "name": "", "type": "uint256" }]
  },
  {
    "name": "ethToWithdraw", "type": "function", "stateMutability": "view",
    "inputs": [{ "name": "", "type": "address" }],
    "outputs": [{ "name": "", "type": "uint256" }]
  }
]`

var (
	// RequestCoreABI holds the request records and emits every lifecycle event.
	RequestCoreABI = mustParseABI(requestCoreABI)
	// RequestEthereumABI is the ether currency contract callers transact with.
	RequestEthereumABI = mustParseABI(requestEthereumABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid contract abi: %v", err))
	}
	return parsed
}

// CallMethod packs method and args, performs a read-only call and returns
// the unpacked outputs.
func CallMethod(ctx context.Context, c Caller, to common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.Call(ctx, to, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// CallInto is CallMethod for multi-output methods, unpacking into a struct
// whose fields are the camel-cased output names.
func CallInto(ctx context.Context, c Caller, to common.Address, contractABI abi.ABI, method string, out any, args ...any) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.Call(ctx, to, data)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	if err := contractABI.UnpackIntoInterface(out, method, raw); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}

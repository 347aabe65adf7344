package clients

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// DecodeEvent decodes log as the named event of contractABI into a map keyed
// by input name. Indexed inputs come from the topics, the rest from data.
func DecodeEvent(contractABI abi.ABI, name string, log *ethtypes.Log) (map[string]any, error) {
	event, ok := contractABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", name)
	}
	if log == nil || len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return nil, fmt.Errorf("log is not a %s event", name)
	}

	out := make(map[string]any, len(event.Inputs))
	if err := contractABI.UnpackIntoMap(out, name, log.Data); err != nil {
		return nil, fmt.Errorf("unpack %s data: %w", name, err)
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(out, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("parse %s topics: %w", name, err)
	}
	return out, nil
}

// FindEvent decodes the first log of receipt emitted by emitter that matches
// the named event. Logs from other contracts are ignored.
func FindEvent(contractABI abi.ABI, name string, emitter common.Address, receipt *ethtypes.Receipt) (map[string]any, error) {
	event, ok := contractABI.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %s", name)
	}
	if receipt == nil {
		return nil, fmt.Errorf("no receipt to decode %s from", name)
	}
	for _, log := range receipt.Logs {
		if log.Address == emitter && len(log.Topics) > 0 && log.Topics[0] == event.ID {
			return DecodeEvent(contractABI, name, log)
		}
	}
	return nil, fmt.Errorf("event %s not found in transaction %s", name, receipt.TxHash.Hex())
}

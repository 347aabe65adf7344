package utils

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParseSignerKey decodes a hex private key, with or without 0x prefix, and
// returns it together with the account it controls.
func ParseSignerKey(hexKey string) (*ecdsa.PrivateKey, common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid signer key: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

// NormalizeAddress returns the checksummed form of address, or "" when it is
// not a hex address.
func NormalizeAddress(address string) string {
	if !common.IsHexAddress(address) {
		return ""
	}
	return common.HexToAddress(address).Hex()
}

package utils

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/vitwit/requestnet/types"
)

var validate = validator.New()

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	return validate
}

const (
	requestIDTag = "len=66,startswith=0x,hexadecimal"
	accountTag   = "eth_addr"
)

// IsRequestID reports whether id is a 0x-prefixed 32 byte hex string.
func IsRequestID(id string) bool {
	return validate.Var(id, requestIDTag) == nil
}

// IsAddress reports whether addr is a 0x-prefixed 20 byte hex string.
// Checksums are not enforced.
func IsAddress(addr string) bool {
	return validate.Var(addr, accountTag) == nil
}

// ParseRequestID validates and converts a request identifier.
func ParseRequestID(id string) (common.Hash, error) {
	if !IsRequestID(id) {
		return common.Hash{}, types.InvalidArgument(
			"_requestId must be a 32 bytes hex string (eg.: \"0x%064d\")", 0)
	}
	return common.HexToHash(id), nil
}

// ParseAddress validates and converts an account identifier. name is used
// in the error message.
func ParseAddress(name, addr string) (common.Address, error) {
	if !IsAddress(addr) {
		return common.Address{}, types.InvalidArgument("%s must be a valid eth address", name)
	}
	return common.HexToAddress(addr), nil
}

// ValidateAmount rejects negative amounts.
func ValidateAmount(name string, amount types.Amount) error {
	if amount.IsNegative() {
		return types.InvalidArgument("%s must be a positive integer", name)
	}
	return nil
}

// SameAddress compares two account identifiers case-insensitively.
func SameAddress(a, b string) bool {
	if !IsAddress(a) || !IsAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}

// validateBigInt checks if a string is a valid big integer
func validateBigInt(value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("value cannot be empty")
	}

	bigInt, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid big integer format")
	}

	return bigInt, nil
}

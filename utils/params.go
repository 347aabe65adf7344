package utils

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vitwit/requestnet/types"
)

// ArrayToBytes32 encodes raw extension parameters into fixed-width slots.
// Values beyond size are dropped and missing slots stay zero.
//
//   - 0x-prefixed hex is decoded and left-padded (extra leading bytes dropped)
//   - base-10 integers become 32 byte big-endian words
//   - anything else is taken as UTF-8, right-padded or truncated to 32 bytes
func ArrayToBytes32(params []string, size int) [][32]byte {
	out := make([][32]byte, size)
	for i, p := range params {
		if i >= size {
			break
		}
		out[i] = toBytes32(p)
	}
	return out
}

// ToFixedParams returns the 9 slot array expected by createRequestAsPayee.
func ToFixedParams(slots [][32]byte) [types.MaxExtensionParams][32]byte {
	var out [types.MaxExtensionParams][32]byte
	copy(out[:], slots)
	return out
}

func toBytes32(p string) [32]byte {
	if strings.HasPrefix(p, "0x") || strings.HasPrefix(p, "0X") {
		if b, err := hexutil.Decode(p); err == nil {
			return common.BytesToHash(b)
		}
	}
	if n, err := validateBigInt(p); err == nil && n.Sign() >= 0 && n.BitLen() <= 256 {
		return common.BigToHash(n)
	}
	var out [32]byte
	copy(out[:], common.RightPadBytes([]byte(p), 32))
	return out
}

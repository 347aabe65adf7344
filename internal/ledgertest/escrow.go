package ledgertest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/requestnet/extensions"
)

// EscrowHandler answers escrows(bytes32) with the same record for every request.
func EscrowHandler(currency, escrow common.Address, state extensions.EscrowState, balance *big.Int) CallHandler {
	return func(data []byte) ([]byte, error) {
		method, _, err := decodeCall(extensions.EscrowABI, data)
		if err != nil {
			return nil, err
		}
		if method.Name != "escrows" {
			return nil, fmt.Errorf("unsupported escrow call %s", method.Name)
		}
		return method.Outputs.Pack(currency, escrow, uint8(state), balance)
	}
}

package utils

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/requestnet/types"
)

const (
	testRequestID = "0x8cdaf0cd259887258bc13a92c0a6da92698644c0000000000000000000000001"
	testAccount   = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestIsRequestID(t *testing.T) {
	assert.True(t, IsRequestID(testRequestID))
	assert.False(t, IsRequestID(""))
	assert.False(t, IsRequestID("0x1234"))
	assert.False(t, IsRequestID(testRequestID[2:]+"00"))
	assert.False(t, IsRequestID("0x"+"zz"+testRequestID[4:]))
}

func TestParseRequestID_InvalidArgument(t *testing.T) {
	_, err := ParseRequestID("0xnope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))

	id, err := ParseRequestID(testRequestID)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(testRequestID), id)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("_payer", testAccount)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAccount), addr)

	_, err = ParseAddress("_payer", "0x123")
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeInvalidArgument, types.ErrorCode(err))
	assert.Contains(t, err.Error(), "_payer")
}

func TestSameAddress_IgnoresCase(t *testing.T) {
	lower := "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	assert.True(t, SameAddress(testAccount, lower))
	assert.False(t, SameAddress(testAccount, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"))
	assert.False(t, SameAddress("", ""))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount("_amount", types.NewAmount(0)))
	err := ValidateAmount("_amount", types.NewAmount(-1))
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}

func TestArrayToBytes32(t *testing.T) {
	slots := ArrayToBytes32([]string{testAccount, "42", "hello"}, 9)
	require.Len(t, slots, 9)

	assert.Equal(t, common.BytesToHash(common.HexToAddress(testAccount).Bytes()), common.Hash(slots[0]))
	assert.Equal(t, common.BigToHash(big.NewInt(42)), common.Hash(slots[1]))
	assert.Equal(t, []byte("hello"), slots[2][:5])
	assert.Equal(t, byte(0), slots[2][5])
	for _, s := range slots[3:] {
		assert.Equal(t, [32]byte{}, s)
	}
}

func TestArrayToBytes32_Truncates(t *testing.T) {
	params := make([]string, 12)
	for i := range params {
		params[i] = "1"
	}
	slots := ArrayToBytes32(params, 9)
	assert.Len(t, slots, 9)

	fixed := ToFixedParams(slots)
	assert.Equal(t, common.BigToHash(big.NewInt(1)), common.Hash(fixed[8]))
}

func TestParseDetails(t *testing.T) {
	out, err := ParseDetails(json.RawMessage(`{ "reason": "invoice 12",  "items": [1, 2] }`))
	require.NoError(t, err)
	assert.Equal(t, `{"reason":"invoice 12","items":[1,2]}`, string(out))

	_, err = ParseDetails(json.RawMessage(`[1,2]`))
	assert.Error(t, err)

	_, err = ParseDetails(json.RawMessage(`{"unterminated": `))
	assert.Error(t, err)
}

func TestDecodeDetails(t *testing.T) {
	raw, err := DecodeDetails([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))

	_, err = DecodeDetails([]byte(`not json`))
	assert.Error(t, err)
}

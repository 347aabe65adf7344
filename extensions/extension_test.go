package extensions

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtension struct{}

func (stubExtension) ParseParameters(params []string) ([][32]byte, error) { return nil, nil }
func (stubExtension) FetchDetails(context.Context, common.Hash) (map[string]any, error) {
	return map[string]any{}, nil
}

func TestRegistry(t *testing.T) {
	addr := common.HexToAddress("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
	r := NewRegistry()

	_, ok := r.Resolve(addr)
	assert.False(t, ok)

	require.NoError(t, r.Register(addr, stubExtension{}))
	ext, ok := r.Resolve(addr)
	assert.True(t, ok)
	assert.NotNil(t, ext)
	assert.Equal(t, []common.Address{addr}, r.Addresses())

	assert.Error(t, r.Register(addr, stubExtension{}))
	assert.Error(t, r.Register(common.Address{}, stubExtension{}))
	assert.Error(t, r.Register(common.HexToAddress("0x01"), nil))
}

func TestRegistry_NilResolve(t *testing.T) {
	var r *Registry
	_, ok := r.Resolve(common.HexToAddress("0x01"))
	assert.False(t, ok)
}

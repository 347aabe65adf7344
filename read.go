package requestnet

import (
	"context"
	"math/big"

	"github.com/vitwit/requestnet/clients"
	"github.com/vitwit/requestnet/types"
	"github.com/vitwit/requestnet/utils"
)

// GetRequest reads a fresh snapshot of a request, with its extension state
// and details document resolved.
func (s *Service) GetRequest(ctx context.Context, requestID string) (*types.Request, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.reader.Read(ctx, requestID)
}

// GetRequestWithCallback is GetRequest delivering its outcome to cb from
// another goroutine. The returned channel is closed once cb has returned.
func (s *Service) GetRequestWithCallback(ctx context.Context, requestID string, cb func(*types.Request, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		req, err := s.GetRequest(ctx, requestID)
		if cb != nil {
			cb(req, err)
		}
	}()
	return done
}

// FeesPer10000 is the fee rate the currency contract charges on payments.
func (s *Service) FeesPer10000(ctx context.Context) (types.Amount, error) {
	return s.readAmount(ctx, "feesPer10000")
}

// Withdrawable is the fee balance account can collect with Withdraw.
func (s *Service) Withdrawable(ctx context.Context, account string) (types.Amount, error) {
	addr, err := utils.ParseAddress("_account", account)
	if err != nil {
		return types.Amount{}, err
	}
	return s.readAmount(ctx, "ethToWithdraw", addr)
}

func (s *Service) readAmount(ctx context.Context, method string, args ...any) (types.Amount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	out, err := clients.CallMethod(ctx, s.gateway, s.contracts.RequestEthereum, clients.RequestEthereumABI, method, args...)
	if err != nil {
		return types.Amount{}, types.CollaboratorFailure("failed to read "+method, err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return types.Amount{}, types.CollaboratorFailure("unexpected "+method+" output", nil)
	}
	return types.AmountFromBig(v), nil
}

package requestnet

import (
	"context"

	"github.com/vitwit/requestnet/types"
)

// The *WithCallbacks forms run the same guards as their blocking
// counterparts, then report each transaction stage through cb instead of
// waiting for a confirmation depth. Every error, guard rejections included,
// goes to cb.OnError. The returned channel is closed after the last callback
// has returned.

func (s *Service) CreateWithCallbacks(ctx context.Context, params types.CreateParams, opts *types.TxOptions, cb types.Callbacks) <-chan struct{} {
	return s.dispatch(ctx, opts, cb, func(ctx context.Context) (*mutation, error) {
		return s.prepareCreate(ctx, params, opts)
	})
}

func (s *Service) AcceptWithCallbacks(ctx context.Context, requestID string, opts *types.TxOptions, cb types.Callbacks) <-chan struct{} {
	return s.dispatch(ctx, opts, cb, func(ctx context.Context) (*mutation, error) {
		return s.prepareAccept(ctx, requestID, opts)
	})
}

func (s *Service) CancelWithCallbacks(ctx context.Context, requestID string, opts *types.TxOptions, cb types.Callbacks) <-chan struct{} {
	return s.dispatch(ctx, opts, cb, func(ctx context.Context) (*mutation, error) {
		return s.prepareCancel(ctx, requestID, opts)
	})
}

func (s *Service) PayWithCallbacks(ctx context.Context, requestID string, amount, tips types.Amount, opts *types.TxOptions, cb types.Callbacks) <-chan struct{} {
	return s.dispatch(ctx, opts, cb, func(ctx context.Context) (*mutation, error) {
		return s.preparePay(ctx, requestID, amount, tips, opts)
	})
}

func (s *Service) PaybackWithCallbacks(ctx context.Context, requestID string, amount types.Amount, opts *types.TxOptions, cb types.Callbacks) <-chan struct{} {
	return s.dispatch(ctx, opts, cb, func(ctx context.Context) (*mutation, error) {
		return s.preparePayback(ctx, requestID, amount, opts)
	})
}

func (s *Service) DiscountWithCallbacks(ctx context.Context, requestID string, amount types.Amount, opts *types.TxOptions, cb types.Callbacks) <-chan struct{} {
	return s.dispatch(ctx, opts, cb, func(ctx context.Context) (*mutation, error) {
		return s.prepareDiscount(ctx, requestID, amount, opts)
	})
}

func (s *Service) WithdrawWithCallbacks(ctx context.Context, opts *types.TxOptions, cb types.Callbacks) <-chan struct{} {
	return s.dispatch(ctx, opts, cb, func(ctx context.Context) (*mutation, error) {
		return s.prepareWithdraw(ctx, opts)
	})
}

func (s *Service) dispatch(ctx context.Context, opts *types.TxOptions, cb types.Callbacks, prepare func(context.Context) (*mutation, error)) <-chan struct{} {
	done := make(chan struct{})
	fail := func(err error) {
		defer close(done)
		if cb.OnError != nil {
			cb.OnError(err)
		}
	}

	go func() {
		m, err := prepare(ctx)
		if err != nil {
			fail(err)
			return
		}
		h, err := s.submit(ctx, m, opts)
		if err != nil {
			fail(err)
			return
		}
		h.Notify(ctx, cb, func() { close(done) })
	}()
	return done
}

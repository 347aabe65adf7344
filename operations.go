package requestnet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/vitwit/requestnet/clients"
	"github.com/vitwit/requestnet/settlement"
	"github.com/vitwit/requestnet/types"
	"github.com/vitwit/requestnet/utils"
	"github.com/vitwit/requestnet/verification"
)

// mutation is a guarded contract call waiting to be submitted.
type mutation struct {
	op     string
	method string
	args   []any
	value  *big.Int
	from   common.Address
	// event is the RequestCore event decoded on success, empty for none.
	event string

	detailsID string
}

// Create records a new request with the acting account as payee. Details,
// when present, are stored in the content store first and referenced by
// their content id.
func (s *Service) Create(ctx context.Context, params types.CreateParams, opts *types.TxOptions) (*types.CreateResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := s.prepareCreate(ctx, params, opts)
	if err != nil {
		return nil, err
	}
	receipt, ev, err := s.execute(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	return &types.CreateResult{
		TxResult:  types.TxResult{RequestID: eventRequestID(ev), TransactionHash: receipt.TxHash.Hex()},
		DetailsID: m.detailsID,
	}, nil
}

// Accept moves a created request to accepted.
func (s *Service) Accept(ctx context.Context, requestID string, opts *types.TxOptions) (*types.TxResult, error) {
	return s.transition(ctx, opts, func(ctx context.Context) (*mutation, error) {
		return s.prepareAccept(ctx, requestID, opts)
	})
}

// Cancel moves a request to canceled.
func (s *Service) Cancel(ctx context.Context, requestID string, opts *types.TxOptions) (*types.TxResult, error) {
	return s.transition(ctx, opts, func(ctx context.Context) (*mutation, error) {
		return s.prepareCancel(ctx, requestID, opts)
	})
}

// Pay sends amount to an accepted request. tips are part of amount and raise
// the expected amount by the same value.
func (s *Service) Pay(ctx context.Context, requestID string, amount, tips types.Amount, opts *types.TxOptions) (*types.TxResult, error) {
	return s.transition(ctx, opts, func(ctx context.Context) (*mutation, error) {
		return s.preparePay(ctx, requestID, amount, tips, opts)
	})
}

// Payback refunds amount from the payee to the payer.
func (s *Service) Payback(ctx context.Context, requestID string, amount types.Amount, opts *types.TxOptions) (*types.PaybackResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := s.preparePayback(ctx, requestID, amount, opts)
	if err != nil {
		return nil, err
	}
	receipt, ev, err := s.execute(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	refunded, _ := ev["amountRefunded"].(*big.Int)
	return &types.PaybackResult{
		TxResult:       types.TxResult{RequestID: eventRequestID(ev), TransactionHash: receipt.TxHash.Hex()},
		AmountRefunded: types.AmountFromBig(refunded),
	}, nil
}

// Discount lowers the amount expected by the payee.
func (s *Service) Discount(ctx context.Context, requestID string, amount types.Amount, opts *types.TxOptions) (*types.TxResult, error) {
	return s.transition(ctx, opts, func(ctx context.Context) (*mutation, error) {
		return s.prepareDiscount(ctx, requestID, amount, opts)
	})
}

// Withdraw collects the fee balance accumulated by the acting account on the
// currency contract. The result carries only the transaction hash.
func (s *Service) Withdraw(ctx context.Context, opts *types.TxOptions) (*types.TxResult, error) {
	return s.transition(ctx, opts, func(ctx context.Context) (*mutation, error) {
		return s.prepareWithdraw(ctx, opts)
	})
}

func (s *Service) transition(ctx context.Context, opts *types.TxOptions, prepare func(context.Context) (*mutation, error)) (*types.TxResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := prepare(ctx)
	if err != nil {
		return nil, err
	}
	receipt, ev, err := s.execute(ctx, m, opts)
	if err != nil {
		return nil, err
	}
	return &types.TxResult{RequestID: eventRequestID(ev), TransactionHash: receipt.TxHash.Hex()}, nil
}

func (s *Service) prepareCreate(ctx context.Context, params types.CreateParams, opts *types.TxOptions) (*mutation, error) {
	const op = "create"
	acting, err := s.actingAccount(ctx, op, opts)
	if err != nil {
		return nil, err
	}
	args, err := verification.CheckCreateArgs(params, acting)
	if err != nil {
		return nil, s.rejected(op, err)
	}

	var slots [][32]byte
	if ext, ok := s.registry.Resolve(args.Extension); ok {
		if slots, err = ext.ParseParameters(params.ExtensionParams); err != nil {
			return nil, s.rejected(op, types.InvalidArgument("%s", err.Error()))
		}
	} else {
		slots = utils.ArrayToBytes32(params.ExtensionParams, types.MaxExtensionParams)
	}

	var detailsID string
	if len(params.Details) > 0 {
		doc, err := utils.ParseDetails(params.Details)
		if err != nil {
			return nil, s.rejected(op, types.InvalidArgument("%s", err.Error()))
		}
		if detailsID, err = s.store.Put(ctx, doc); err != nil {
			return nil, types.CollaboratorFailure("failed to store details", err)
		}
	}

	return &mutation{
		op:     op,
		method: "createRequestAsPayee",
		args: []any{
			args.Payer,
			params.AmountInitial.BigInt(),
			args.Extension,
			utils.ToFixedParams(slots),
			detailsID,
		},
		from:      acting,
		event:     "Created",
		detailsID: detailsID,
	}, nil
}

func (s *Service) prepareAccept(ctx context.Context, requestID string, opts *types.TxOptions) (*mutation, error) {
	const op = "accept"
	id, err := utils.ParseRequestID(requestID)
	if err != nil {
		return nil, s.rejected(op, err)
	}
	acting, err := s.actingAccount(ctx, op, opts)
	if err != nil {
		return nil, err
	}
	req, err := s.reader.Read(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := verification.CheckAccept(req, acting); err != nil {
		return nil, s.rejected(op, err)
	}
	return &mutation{op: op, method: "accept", args: []any{id}, from: acting, event: "Accepted"}, nil
}

func (s *Service) prepareCancel(ctx context.Context, requestID string, opts *types.TxOptions) (*mutation, error) {
	const op = "cancel"
	id, err := utils.ParseRequestID(requestID)
	if err != nil {
		return nil, s.rejected(op, err)
	}
	acting, err := s.actingAccount(ctx, op, opts)
	if err != nil {
		return nil, err
	}
	req, err := s.reader.Read(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := verification.CheckCancel(req, acting); err != nil {
		return nil, s.rejected(op, err)
	}
	return &mutation{op: op, method: "cancel", args: []any{id}, from: acting, event: "Canceled"}, nil
}

func (s *Service) preparePay(ctx context.Context, requestID string, amount, tips types.Amount, opts *types.TxOptions) (*mutation, error) {
	const op = "pay"
	id, err := utils.ParseRequestID(requestID)
	if err != nil {
		return nil, s.rejected(op, err)
	}
	if err := verification.CheckPayArgs(amount, tips); err != nil {
		return nil, s.rejected(op, err)
	}
	acting, err := s.actingAccount(ctx, op, opts)
	if err != nil {
		return nil, err
	}
	req, err := s.reader.Read(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := verification.CheckPay(req, amount, tips); err != nil {
		return nil, s.rejected(op, err)
	}
	return &mutation{
		op:     op,
		method: "pay",
		args:   []any{id, tips.BigInt()},
		value:  amount.BigInt(),
		from:   acting,
		event:  "Payment",
	}, nil
}

func (s *Service) preparePayback(ctx context.Context, requestID string, amount types.Amount, opts *types.TxOptions) (*mutation, error) {
	const op = "payback"
	id, err := utils.ParseRequestID(requestID)
	if err != nil {
		return nil, s.rejected(op, err)
	}
	if err := verification.CheckPaybackArgs(amount); err != nil {
		return nil, s.rejected(op, err)
	}
	acting, err := s.actingAccount(ctx, op, opts)
	if err != nil {
		return nil, err
	}
	req, err := s.reader.Read(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := verification.CheckPayback(req, acting, amount); err != nil {
		return nil, s.rejected(op, err)
	}
	return &mutation{
		op:     op,
		method: "payback",
		args:   []any{id},
		value:  amount.BigInt(),
		from:   acting,
		event:  "Refunded",
	}, nil
}

func (s *Service) prepareDiscount(ctx context.Context, requestID string, amount types.Amount, opts *types.TxOptions) (*mutation, error) {
	const op = "discount"
	id, err := utils.ParseRequestID(requestID)
	if err != nil {
		return nil, s.rejected(op, err)
	}
	if err := verification.CheckDiscountArgs(amount); err != nil {
		return nil, s.rejected(op, err)
	}
	acting, err := s.actingAccount(ctx, op, opts)
	if err != nil {
		return nil, err
	}
	req, err := s.reader.Read(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := verification.CheckDiscount(req, acting, amount); err != nil {
		return nil, s.rejected(op, err)
	}
	return &mutation{
		op:     op,
		method: "discount",
		args:   []any{id, amount.BigInt()},
		from:   acting,
		event:  "AddSubtract",
	}, nil
}

func (s *Service) prepareWithdraw(ctx context.Context, opts *types.TxOptions) (*mutation, error) {
	acting, err := s.actingAccount(ctx, "withdraw", opts)
	if err != nil {
		return nil, err
	}
	return &mutation{op: "withdraw", method: "withdraw", from: acting}, nil
}

// actingAccount resolves opts.From, falling back to the gateway's default.
func (s *Service) actingAccount(ctx context.Context, op string, opts *types.TxOptions) (common.Address, error) {
	if opts != nil && opts.From != "" {
		addr, err := utils.ParseAddress("_from", opts.From)
		if err != nil {
			return common.Address{}, s.rejected(op, err)
		}
		return addr, nil
	}
	addr, err := s.gateway.DefaultAccount(ctx)
	if err != nil {
		return common.Address{}, types.SubmissionFailure("failed to resolve acting account", err)
	}
	return addr, nil
}

// rejected counts and logs a guard failure before handing it back.
func (s *Service) rejected(op string, err error) error {
	s.metrics.IncCounter("guard_rejected", map[string]string{"operation": op})
	s.logger.Debug("operation rejected", map[string]any{
		"operation": op, "code": types.ErrorCode(err), "error": err.Error(),
	})
	return err
}

func (s *Service) submit(ctx context.Context, m *mutation, opts *types.TxOptions) (*settlement.Handle, error) {
	call := settlement.Call{
		Operation: m.op,
		Contract:  s.contracts.RequestEthereum,
		ABI:       clients.RequestEthereumABI,
		Method:    m.method,
		Args:      m.args,
		Value:     m.value,
		From:      m.from,
	}
	if opts != nil {
		call.GasPrice = opts.GasPrice
		call.GasLimit = opts.GasLimit
	}
	s.logger.Info("submitting "+m.op, map[string]any{"operation": m.op, "from": m.from.Hex()})
	return s.settlement.Submit(ctx, call)
}

// execute submits m, waits for the requested depth and decodes the success
// event from the receipt seen at that depth.
func (s *Service) execute(ctx context.Context, m *mutation, opts *types.TxOptions) (*ethtypes.Receipt, map[string]any, error) {
	h, err := s.submit(ctx, m, opts)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := h.Await(ctx, s.confirmations(opts))
	if err != nil {
		return nil, nil, err
	}
	if m.event == "" {
		return receipt, nil, nil
	}
	ev, err := clients.FindEvent(clients.RequestCoreABI, m.event, s.contracts.RequestCore, receipt)
	if err != nil {
		return nil, nil, types.SubmissionFailure(fmt.Sprintf("failed to decode %s event", m.event), err)
	}
	return receipt, ev, nil
}

func (s *Service) confirmations(opts *types.TxOptions) uint64 {
	if opts == nil {
		return s.defaultConfirmations
	}
	return opts.Confirmations
}

func eventRequestID(ev map[string]any) string {
	id, ok := ev["requestId"].([32]byte)
	if !ok {
		return ""
	}
	return common.Hash(id).Hex()
}

// Package verification holds the lifecycle guards run before a request
// transition is submitted. Guards are pure: they see a snapshot that the
// caller has just read and never touch the network.
//
// Argument checks (Check*Args) fail with an InvalidArgument error and run
// before the snapshot is read; lifecycle checks fail with PreconditionFailed.
// Within each function guards run in a fixed order and the first failure wins.
package verification

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/requestnet/types"
	"github.com/vitwit/requestnet/utils"
)

// CreateArgs is a validated CreateParams.
type CreateArgs struct {
	Payer     common.Address
	Extension common.Address
}

// CheckCreateArgs validates the parameters of a new request created by acting.
func CheckCreateArgs(p types.CreateParams, acting common.Address) (*CreateArgs, error) {
	if err := utils.ValidateAmount("_amountInitial", p.AmountInitial); err != nil {
		return nil, err
	}
	payer, err := utils.ParseAddress("_payer", p.Payer)
	if err != nil {
		return nil, err
	}
	if acting == payer {
		return nil, types.InvalidArgument("_from must be different than _payer")
	}
	var ext common.Address
	if p.Extension != "" {
		if ext, err = utils.ParseAddress("_extension", p.Extension); err != nil {
			return nil, err
		}
	}
	if len(p.ExtensionParams) > types.MaxExtensionParams {
		return nil, types.InvalidArgument("_extensionParams length must be less than %d", types.MaxExtensionParams+1)
	}
	return &CreateArgs{Payer: payer, Extension: ext}, nil
}

// CheckAccept allows accepting a created request by anyone but its payer.
func CheckAccept(req *types.Request, acting common.Address) error {
	if req.State != types.StateCreated {
		return types.PreconditionFailed(`request state is not "created"`)
	}
	if is(acting, req.Payer) {
		return types.PreconditionFailed("account must be the payer")
	}
	return nil
}

// CheckCancel lets the payer cancel while the request is created, and the
// payee at any point until it is canceled, provided nothing has been paid.
func CheckCancel(req *types.Request, acting common.Address) error {
	asPayer := is(acting, req.Payer)
	asPayee := is(acting, req.Payee)
	if !asPayer && !asPayee {
		return types.PreconditionFailed("account must be the payer or the payee")
	}
	if asPayer && req.State != types.StateCreated {
		return types.PreconditionFailed(`payer can cancel request in state "created"`)
	}
	if asPayee && req.State == types.StateCanceled {
		return types.PreconditionFailed("payee cannot cancel request already canceled")
	}
	if !req.AmountPaid.IsZero() {
		return types.PreconditionFailed("impossible to cancel a Request with a balance != 0")
	}
	return nil
}

func CheckPayArgs(amount, tips types.Amount) error {
	if err := utils.ValidateAmount("_amount", amount); err != nil {
		return err
	}
	return utils.ValidateAmount("_tips", tips)
}

// CheckPay bounds a payment by the expected amount and by what remains to
// be paid. tips are part of amount.
func CheckPay(req *types.Request, amount, tips types.Amount) error {
	if req.State != types.StateAccepted {
		return types.PreconditionFailed("request must be accepted")
	}
	if amount.Cmp(tips) < 0 {
		return types.PreconditionFailed("tips declare must be lower than amount sent")
	}
	if req.ExpectedAmount().Cmp(amount) < 0 {
		return types.PreconditionFailed("You cannot pay more than amount needed")
	}
	// tips raise the expected amount once the payment lands.
	if req.AmountPaid.Add(amount).Cmp(req.ExpectedAmount().Add(tips)) > 0 {
		return types.PreconditionFailed("You cannot pay more than the remaining amount")
	}
	return nil
}

func CheckPaybackArgs(amount types.Amount) error {
	return utils.ValidateAmount("_amount", amount)
}

// CheckPayback lets the payee refund at most what has been paid.
func CheckPayback(req *types.Request, acting common.Address, amount types.Amount) error {
	if req.State != types.StateAccepted {
		return types.PreconditionFailed("request must be accepted")
	}
	if !is(acting, req.Payee) {
		return types.PreconditionFailed("account must be payee")
	}
	if amount.Cmp(req.AmountPaid) > 0 {
		return types.PreconditionFailed("You cannot payback more than what has been paid")
	}
	return nil
}

func CheckDiscountArgs(amount types.Amount) error {
	return utils.ValidateAmount("_amount", amount)
}

// CheckDiscount lets the payee lower the expected amount, never below what
// has already been paid.
func CheckDiscount(req *types.Request, acting common.Address, amount types.Amount) error {
	if req.State == types.StateCanceled {
		return types.PreconditionFailed("request must be accepted or created")
	}
	if !is(acting, req.Payee) {
		return types.PreconditionFailed("account must be payee")
	}
	if req.AmountPaid.Add(amount).Cmp(req.ExpectedAmount()) > 0 {
		return types.PreconditionFailed("cannot discount more than the remaining amount")
	}
	return nil
}

func is(acting common.Address, account string) bool {
	return utils.SameAddress(acting.Hex(), account)
}

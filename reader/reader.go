// Package reader reconstructs request snapshots from the ledger, the
// extension that governs a request, and the content store.
package reader

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/requestnet/clients"
	"github.com/vitwit/requestnet/extensions"
	"github.com/vitwit/requestnet/logger"
	"github.com/vitwit/requestnet/storage"
	"github.com/vitwit/requestnet/types"
	"github.com/vitwit/requestnet/utils"
)

// coreRecord mirrors the outputs of RequestCore.requests(bytes32).
type coreRecord struct {
	Creator          common.Address
	Payer            common.Address
	Payee            common.Address
	AmountInitial    *big.Int
	SubContract      common.Address
	AmountPaid       *big.Int
	AmountAdditional *big.Int
	AmountSubtract   *big.Int
	State            uint8
	Extension        common.Address
	Details          string
}

// Reader is stateless between calls; concurrent reads need no coordination.
type Reader struct {
	caller      clients.Caller
	requestCore common.Address
	store       storage.ContentStore
	registry    *extensions.Registry
	logger      logger.Logger
}

func New(caller clients.Caller, requestCore common.Address, store storage.ContentStore, registry *extensions.Registry, log logger.Logger) *Reader {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Reader{
		caller:      caller,
		requestCore: requestCore,
		store:       store,
		registry:    registry,
		logger:      log,
	}
}

// Read returns a fresh snapshot of requestID. Any failure fetching extension
// state or details fails the whole read.
func (r *Reader) Read(ctx context.Context, requestID string) (*types.Request, error) {
	id, err := utils.ParseRequestID(requestID)
	if err != nil {
		return nil, err
	}

	var rec coreRecord
	if err := clients.CallInto(ctx, r.caller, r.requestCore, clients.RequestCoreABI, "requests", &rec, id); err != nil {
		return nil, types.CollaboratorFailure("failed to read request", err)
	}
	if rec.Creator == (common.Address{}) {
		return nil, types.PreconditionFailed("request %s not found", id.Hex())
	}

	req := &types.Request{
		RequestID:        id.Hex(),
		Creator:          rec.Creator.Hex(),
		Payer:            rec.Payer.Hex(),
		Payee:            rec.Payee.Hex(),
		CurrencyContract: rec.SubContract.Hex(),
		AmountInitial:    types.AmountFromBig(rec.AmountInitial),
		AmountPaid:       types.AmountFromBig(rec.AmountPaid),
		AmountAdditional: types.AmountFromBig(rec.AmountAdditional),
		AmountSubtract:   types.AmountFromBig(rec.AmountSubtract),
		State:            types.State(rec.State),
		DetailsID:        rec.Details,
	}

	if rec.Extension != (common.Address{}) {
		req.ExtensionAddress = rec.Extension.Hex()
		if ext, ok := r.registry.Resolve(rec.Extension); ok {
			details, err := ext.FetchDetails(ctx, id)
			if err != nil {
				return nil, types.CollaboratorFailure("failed to fetch extension details", err)
			}
			req.Extension = &types.ExtensionInfo{Address: rec.Extension.Hex(), Details: details}
		} else {
			r.logger.Debug("unregistered extension", map[string]any{
				"requestId": req.RequestID, "extension": req.ExtensionAddress,
			})
		}
	}

	if rec.Details != "" {
		doc, err := r.store.Get(ctx, rec.Details)
		if err != nil {
			return nil, types.CollaboratorFailure("failed to fetch request details", err)
		}
		parsed, err := utils.DecodeDetails(doc)
		if err != nil {
			return nil, types.CollaboratorFailure("failed to parse request details", err)
		}
		req.Details = parsed
	}

	return req, nil
}

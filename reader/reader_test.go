package reader

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/requestnet/extensions"
	"github.com/vitwit/requestnet/internal/ledgertest"
	"github.com/vitwit/requestnet/storage"
	"github.com/vitwit/requestnet/types"
)

var escrowAddr = common.HexToAddress("0x9fe46736679d2d9a65f0992f2272de9f3c7fa6e0")

type failingExtension struct{}

func (failingExtension) ParseParameters([]string) ([][32]byte, error) { return nil, nil }
func (failingExtension) FetchDetails(context.Context, common.Hash) (map[string]any, error) {
	return nil, errors.New("extension unavailable")
}

type fixture struct {
	ledger   *ledgertest.Ledger
	docs     *storage.Documents
	registry *extensions.Registry
	reader   *Reader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := ledgertest.New()
	docs := storage.NewDocuments(storage.NewMemoryCAS())
	reg := extensions.NewRegistry()
	return &fixture{
		ledger:   l,
		docs:     docs,
		registry: reg,
		reader:   New(l, l.Core, docs, reg, nil),
	}
}

func TestRead_CoreFields(t *testing.T) {
	f := newFixture(t)
	id := f.ledger.Seed(ledgertest.Record{
		Creator:          ledgertest.Payee,
		Payer:            ledgertest.Payer,
		Payee:            ledgertest.Payee,
		CurrencyContract: f.ledger.Currency,
		AmountInitial:    big.NewInt(1000),
		AmountPaid:       big.NewInt(250),
		AmountAdditional: big.NewInt(50),
		AmountSubtract:   big.NewInt(20),
		State:            types.StateAccepted,
	})

	req, err := f.reader.Read(context.Background(), id.Hex())
	require.NoError(t, err)

	assert.Equal(t, id.Hex(), req.RequestID)
	assert.Equal(t, ledgertest.Payee.Hex(), req.Creator)
	assert.Equal(t, ledgertest.Payer.Hex(), req.Payer)
	assert.Equal(t, ledgertest.Payee.Hex(), req.Payee)
	assert.Equal(t, f.ledger.Currency.Hex(), req.CurrencyContract)
	assert.Equal(t, "1000", req.AmountInitial.String())
	assert.Equal(t, "250", req.AmountPaid.String())
	assert.Equal(t, "50", req.AmountAdditional.String())
	assert.Equal(t, "20", req.AmountSubtract.String())
	assert.Equal(t, types.StateAccepted, req.State)
	assert.Nil(t, req.Extension)
	assert.Empty(t, req.ExtensionAddress)
	assert.Empty(t, req.Details)
}

func TestRead_RejectsMalformedIDWithoutCalls(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"", "0x1234", "8cdaf0cd259887258bc13a92c0a6da92698644c0a8be3cc6a7ee7b8b1c1a0a0101", "0xzz"} {
		_, err := f.reader.Read(context.Background(), id)
		assert.ErrorIs(t, err, types.ErrInvalidArgument, "id %q", id)
	}
	assert.Zero(t, f.ledger.Calls())
}

func TestRead_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.reader.Read(context.Background(), common.HexToHash("0x01").Hex())
	assert.ErrorIs(t, err, types.ErrPreconditionFailed)
}

func TestRead_Details(t *testing.T) {
	f := newFixture(t)
	docID, err := f.docs.Put(context.Background(), []byte(`{"reason":"invoice #12","items":[1,2]}`))
	require.NoError(t, err)

	id := f.ledger.Seed(ledgertest.Record{Creator: ledgertest.Payee, Payee: ledgertest.Payee, Details: docID})

	req, err := f.reader.Read(context.Background(), id.Hex())
	require.NoError(t, err)
	assert.Equal(t, docID, req.DetailsID)
	assert.JSONEq(t, `{"reason":"invoice #12","items":[1,2]}`, string(req.Details))
}

func TestRead_DetailsFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	missing, err := storage.ContentID([]byte(`{"never":"stored"}`))
	require.NoError(t, err)

	id := f.ledger.Seed(ledgertest.Record{Creator: ledgertest.Payee, Details: missing.String()})

	req, err := f.reader.Read(context.Background(), id.Hex())
	assert.Nil(t, req)
	assert.ErrorIs(t, err, types.ErrCollaboratorFailed)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRead_DetailsNotAnObject(t *testing.T) {
	f := newFixture(t)
	docID, err := f.docs.Put(context.Background(), []byte(`[1,2,3]`))
	require.NoError(t, err)

	id := f.ledger.Seed(ledgertest.Record{Creator: ledgertest.Payee, Details: docID})

	_, err = f.reader.Read(context.Background(), id.Hex())
	assert.ErrorIs(t, err, types.ErrCollaboratorFailed)
}

func TestRead_EscrowExtension(t *testing.T) {
	f := newFixture(t)
	escrowAccount := ledgertest.Other
	f.ledger.Handle(escrowAddr, ledgertest.EscrowHandler(f.ledger.Currency, escrowAccount, extensions.EscrowCreated, big.NewInt(400)))
	require.NoError(t, f.registry.Register(escrowAddr, extensions.NewEscrow(f.ledger, escrowAddr)))

	id := f.ledger.Seed(ledgertest.Record{Creator: ledgertest.Payee, Extension: escrowAddr})

	req, err := f.reader.Read(context.Background(), id.Hex())
	require.NoError(t, err)
	require.NotNil(t, req.Extension)
	assert.Equal(t, escrowAddr.Hex(), req.Extension.Address)
	assert.Equal(t, escrowAddr.Hex(), req.ExtensionAddress)
	assert.Equal(t, escrowAccount.Hex(), req.Extension.Details["escrow"])
	assert.Equal(t, "created", req.Extension.Details["state"])
	assert.Equal(t, "400", req.Extension.Details["balance"])
}

func TestRead_ExtensionFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Register(escrowAddr, failingExtension{}))
	id := f.ledger.Seed(ledgertest.Record{Creator: ledgertest.Payee, Extension: escrowAddr})

	req, err := f.reader.Read(context.Background(), id.Hex())
	assert.Nil(t, req)
	assert.ErrorIs(t, err, types.ErrCollaboratorFailed)
}

func TestRead_UnregisteredExtension(t *testing.T) {
	f := newFixture(t)
	id := f.ledger.Seed(ledgertest.Record{Creator: ledgertest.Payee, Extension: escrowAddr})

	req, err := f.reader.Read(context.Background(), id.Hex())
	require.NoError(t, err)
	assert.Nil(t, req.Extension)
	assert.Equal(t, escrowAddr.Hex(), req.ExtensionAddress)
}

func TestRead_Concurrent(t *testing.T) {
	f := newFixture(t)
	ids := make([]common.Hash, 8)
	for i := range ids {
		ids[i] = f.ledger.Seed(ledgertest.Record{
			Creator:       ledgertest.Payee,
			AmountInitial: big.NewInt(int64(i * 100)),
		})
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id common.Hash) {
			defer wg.Done()
			req, err := f.reader.Read(context.Background(), id.Hex())
			if assert.NoError(t, err) {
				assert.Equal(t, types.NewAmount(int64(i*100)).String(), req.AmountInitial.String())
			}
		}(i, id)
	}
	wg.Wait()
}

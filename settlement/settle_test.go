package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/requestnet/clients"
	"github.com/vitwit/requestnet/internal/ledgertest"
	"github.com/vitwit/requestnet/types"
)

func acceptCall(l *ledgertest.Ledger, id common.Hash) Call {
	return Call{
		Operation: "accept",
		Contract:  l.Currency,
		ABI:       clients.RequestEthereumABI,
		Method:    "accept",
		Args:      []any{id},
		From:      ledgertest.Payer,
	}
}

func setup(t *testing.T) (*ledgertest.Ledger, *SettlementService, common.Hash) {
	t.Helper()
	l := ledgertest.New()
	id := l.Seed(ledgertest.Record{Creator: ledgertest.Payee, Payee: ledgertest.Payee, Payer: ledgertest.Payer})
	return l, NewSettlementService(l, nil, nil), id
}

func TestAwait_ResolvesAtDepth(t *testing.T) {
	for _, depth := range []uint64{0, 2} {
		l, svc, id := setup(t)

		h, err := svc.Submit(context.Background(), acceptCall(l, id))
		require.NoError(t, err)
		assert.NotEmpty(t, h.ID)

		receipt, err := h.Await(context.Background(), depth)
		require.NoError(t, err)
		require.NotNil(t, receipt)
		assert.Equal(t, h.Hash(), receipt.TxHash)

		ev, err := clients.FindEvent(clients.RequestCoreABI, "Accepted", l.Core, receipt)
		require.NoError(t, err)
		assert.Equal(t, [32]byte(id), ev["requestId"])

		rec, _ := l.Request(id)
		assert.Equal(t, types.StateAccepted, rec.State)

		subs := l.Submissions()
		require.Len(t, subs, 1)
		assert.Equal(t, ledgertest.Payer, subs[0].From)
		assert.Equal(t, l.Currency, subs[0].To)
	}
}

func TestAwait_FailureBeforeDepth(t *testing.T) {
	l, svc, id := setup(t)
	cause := errors.New("replacement transaction underpriced")
	l.FailNext(ledgertest.Failure{Stage: types.TxConfirmed, AtConfirmation: 1, Err: cause})

	h, err := svc.Submit(context.Background(), acceptCall(l, id))
	require.NoError(t, err)

	_, err = h.Await(context.Background(), 2)
	assert.ErrorIs(t, err, types.ErrSubmissionFailed)
	assert.ErrorIs(t, err, cause)
}

func TestAwait_FailureAfterDepthIgnored(t *testing.T) {
	l, svc, id := setup(t)
	l.FailNext(ledgertest.Failure{Stage: types.TxConfirmed, AtConfirmation: 3, Err: errors.New("late")})

	h, err := svc.Submit(context.Background(), acceptCall(l, id))
	require.NoError(t, err)

	receipt, err := h.Await(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, receipt)
}

func TestAwait_FailureBeforeReceipt(t *testing.T) {
	l, svc, id := setup(t)
	l.FailNext(ledgertest.Failure{Stage: types.TxReceipted, Err: ledgertest.ErrReverted})

	h, err := svc.Submit(context.Background(), acceptCall(l, id))
	require.NoError(t, err)

	_, err = h.Await(context.Background(), 0)
	assert.ErrorIs(t, err, types.ErrSubmissionFailed)

	rec, _ := l.Request(id)
	assert.Equal(t, types.StateCreated, rec.State, "no partial effect")
}

func TestAwait_DepthNeverReached(t *testing.T) {
	l, svc, id := setup(t)
	l.Confirmations = 1

	h, err := svc.Submit(context.Background(), acceptCall(l, id))
	require.NoError(t, err)

	_, err = h.Await(context.Background(), 5)
	assert.ErrorIs(t, err, types.ErrSubmissionFailed)
}

func TestAwait_ContextCanceled(t *testing.T) {
	l, svc, id := setup(t)
	release := l.HoldMining()
	defer release()

	h, err := svc.Submit(context.Background(), acceptCall(l, id))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.Await(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_Rejected(t *testing.T) {
	l, svc, id := setup(t)
	l.RejectSubmissions(errors.New("no signing key for account"))

	_, err := svc.Submit(context.Background(), acceptCall(l, id))
	assert.ErrorIs(t, err, types.ErrSubmissionFailed)
	assert.ErrorContains(t, err, "no signing key")
}

func TestSubmit_EncodeError(t *testing.T) {
	l, svc, _ := setup(t)
	call := acceptCall(l, common.Hash{})
	call.Args = []any{"not-bytes32"}

	_, err := svc.Submit(context.Background(), call)
	assert.ErrorIs(t, err, types.ErrSubmissionFailed)
	assert.Empty(t, l.Submissions())
}

type recorder struct {
	mu     sync.Mutex
	stages []string
	counts []uint64
	err    error
}

func (r *recorder) callbacks() types.Callbacks {
	return types.Callbacks{
		OnHash: func(string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.stages = append(r.stages, "hash")
		},
		OnReceipt: func(*ethtypes.Receipt) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.stages = append(r.stages, "receipt")
		},
		OnConfirmation: func(n uint64, _ *ethtypes.Receipt) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.stages = append(r.stages, "confirmation")
			r.counts = append(r.counts, n)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.stages = append(r.stages, "error")
			r.err = err
		},
	}
}

func TestNotify_OrderedStages(t *testing.T) {
	l, svc, id := setup(t)
	l.Confirmations = 2

	h, err := svc.Submit(context.Background(), acceptCall(l, id))
	require.NoError(t, err)

	rec := &recorder{}
	done := make(chan struct{})
	h.Notify(context.Background(), rec.callbacks(), func() { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notify did not finish")
	}
	assert.Equal(t, []string{"hash", "receipt", "confirmation", "confirmation", "confirmation"}, rec.stages)
	assert.Equal(t, []uint64{0, 1, 2}, rec.counts)
	assert.NoError(t, rec.err)
}

func TestNotify_Error(t *testing.T) {
	l, svc, id := setup(t)
	l.FailNext(ledgertest.Failure{Stage: types.TxSubmitted, Err: errors.New("nonce too low")})

	h, err := svc.Submit(context.Background(), acceptCall(l, id))
	require.NoError(t, err)

	rec := &recorder{}
	done := make(chan struct{})
	h.Notify(context.Background(), rec.callbacks(), func() { close(done) })
	<-done

	assert.Equal(t, []string{"hash", "error"}, rec.stages)
	assert.ErrorIs(t, rec.err, types.ErrSubmissionFailed)
	assert.ErrorContains(t, rec.err, "nonce too low")
}

func TestNotify_ContextCanceledReportsError(t *testing.T) {
	l, svc, id := setup(t)
	release := l.HoldMining()
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := svc.Submit(ctx, acceptCall(l, id))
	require.NoError(t, err)

	rec := &recorder{}
	done := make(chan struct{})
	h.Notify(ctx, rec.callbacks(), func() { close(done) })

	require.Eventually(t, func() bool { return h.Hash() != (common.Hash{}) }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notify did not finish")
	}
	assert.Equal(t, []string{"hash", "error"}, rec.stages)
	assert.ErrorIs(t, rec.err, context.Canceled)

	stored, _ := l.Request(id)
	assert.Equal(t, types.StateCreated, stored.State)
}

func TestHandle_HashReadableWhileNotifying(t *testing.T) {
	l, svc, id := setup(t)
	l.Confirmations = 3

	h, err := svc.Submit(context.Background(), acceptCall(l, id))
	require.NoError(t, err)

	var seen common.Hash
	done := make(chan struct{})
	h.Notify(context.Background(), types.Callbacks{
		OnHash: func(hash string) { seen = common.HexToHash(hash) },
	}, func() { close(done) })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = h.Hash()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, seen, h.Hash())
	assert.NotEqual(t, common.Hash{}, h.Hash())
}

// Package testkit holds the behavioural contract every storage.CAS backend
// must satisfy.
package testkit

import (
	"context"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/requestnet/storage"
)

// NewCAS constructs a fresh, empty CAS isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte(`{"reason":"invoice 42"}`)

		id, err := cas.Put(ctx, want)
		require.NoError(t, err)

		wantID, err := storage.ContentID(want)
		require.NoError(t, err)
		assert.Equal(t, wantID.String(), id.String())

		got, err := cas.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, storage.Verify(id, got))
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(ctx, b)
		require.NoError(t, err)
		id2, err := cas.Put(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, id1.String(), id2.String())
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := storage.ContentID(b)
		require.NoError(t, err)

		assert.False(t, cas.Has(ctx, id))
		_, err = cas.Get(ctx, id)
		assert.True(t, storage.IsNotFound(err), "got %v", err)

		_, err = cas.Put(ctx, b)
		require.NoError(t, err)
		assert.True(t, cas.Has(ctx, id))
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		assert.False(t, cas.Has(ctx, undef))
		_, err := cas.Get(ctx, undef)
		assert.Error(t, err)
	})

	t.Run("ConcurrentPut", func(t *testing.T) {
		cas := newCAS(t)
		docs := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}

		var wg sync.WaitGroup
		ids := make([]string, len(docs))
		errs := make([]error, len(docs))
		for i, d := range docs {
			wg.Add(1)
			go func(i int, d []byte) {
				defer wg.Done()
				id, err := cas.Put(ctx, d)
				ids[i], errs[i] = id.String(), err
			}(i, d)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		seen := make(map[string]bool)
		for i, id := range ids {
			assert.False(t, seen[id])
			seen[id] = true
			assert.True(t, cas.Has(ctx, mustDecode(t, id)), "doc %d", i)
		}
	})
}

func mustDecode(t *testing.T, s string) cid.Cid {
	t.Helper()
	id, err := cid.Decode(s)
	require.NoError(t, err)
	return id
}

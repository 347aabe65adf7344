// Package storage is the content store used for request details. Documents
// are addressed by CIDv1 (raw codec, sha2-256) so the identifier written to
// the ledger commits to the exact bytes stored.
package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// CAS is a minimal content-addressable storage interface.
//
// Put is idempotent and stored objects are immutable. Get returns ErrNotFound
// when the CID is absent and never returns bytes that hash to another CID.
type CAS interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) bool
}

// ContentStore is what request creation and the snapshot reader consume:
// documents in, string content ids out.
type ContentStore interface {
	Put(ctx context.Context, doc []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
}

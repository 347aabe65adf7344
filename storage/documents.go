package storage

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
)

var _ ContentStore = (*Documents)(nil)

// Documents adapts a CAS to the string content ids kept on the ledger.
type Documents struct {
	cas CAS
}

func NewDocuments(cas CAS) *Documents {
	return &Documents{cas: cas}
}

// Put stores doc and returns its content id.
func (d *Documents) Put(ctx context.Context, doc []byte) (string, error) {
	if len(doc) == 0 {
		return "", fmt.Errorf("storage: empty document")
	}
	id, err := d.cas.Put(ctx, doc)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Get fetches the document stored under id.
func (d *Documents) Get(ctx context.Context, id string) ([]byte, error) {
	c, err := cid.Decode(id)
	if err != nil || !c.Defined() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCID, id)
	}
	b, err := d.cas.Get(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := Verify(c, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CAS returns the underlying content-addressed store.
func (d *Documents) CAS() CAS {
	return d.cas
}

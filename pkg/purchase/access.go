package purchase

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrymomot/meterkit/pkg/catalog"
)

// AccessResolver turns a product into the reference a buyer uses to reach
// it, e.g. a download URL.
type AccessResolver interface {
	AccessReference(ctx context.Context, p catalog.Product) (string, error)
}

// PassthroughAccess returns the product's file URL unchanged.
type PassthroughAccess struct{}

func (PassthroughAccess) AccessReference(_ context.Context, p catalog.Product) (string, error) {
	return p.FileURL, nil
}

// Linker signs a short-lived link for a stored object. *file.S3Presigner
// implements it.
type Linker interface {
	Link(ctx context.Context, key string) (string, error)
}

// SignedAccess presigns "s3://" file URLs and passes other URLs through.
type SignedAccess struct {
	linker Linker
}

func NewSignedAccess(l Linker) *SignedAccess {
	return &SignedAccess{linker: l}
}

func (a *SignedAccess) AccessReference(ctx context.Context, p catalog.Product) (string, error) {
	if !strings.HasPrefix(p.FileURL, "s3://") {
		return p.FileURL, nil
	}
	link, err := a.linker.Link(ctx, p.FileURL)
	if err != nil {
		return "", errors.Join(ErrAccessUnavailable, err)
	}
	return link, nil
}

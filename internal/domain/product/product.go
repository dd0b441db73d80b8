package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/feed-import/internal/domain/asset"
)

// RootID is the canonical container every imported product lives under.
const RootID int64 = 1

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog record identified by its GTIN.
type Product struct {
	ID        int64
	ParentID  int64
	Key       string
	GTIN      string
	Name      string
	Date      time.Time
	ImageID   *int64
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns an unsaved, unpublished product for gtin under the root.
func New(gtin string) *Product {
	return &Product{
		ParentID: RootID,
		Key:      ValidKey(gtin),
		GTIN:     gtin,
	}
}

// IsNew reports whether the product has not been persisted yet.
func (p *Product) IsNew() bool {
	return p.ID == 0
}

// SetImage points the product at a.
func (p *Product) SetImage(a *asset.Asset) {
	id := a.ID
	p.ImageID = &id
}

// FindOptions narrows a product lookup.
type FindOptions struct {
	// ParentID restricts the lookup to children of one container. Zero
	// matches any parent.
	ParentID int64
	// IncludeUnpublished makes unpublished products visible to the lookup.
	IncludeUnpublished bool
}

// DefaultFindOptions looks under the root and includes unpublished products,
// so records still being edited are found and updated rather than duplicated.
func DefaultFindOptions() FindOptions {
	return FindOptions{ParentID: RootID, IncludeUnpublished: true}
}

// Repository defines persistence operations for products.
type Repository interface {
	FindByGTIN(ctx context.Context, gtin string, opts FindOptions) (*Product, error)
	// Save inserts a new product or updates an existing one, filling in ID
	// and timestamps.
	Save(ctx context.Context, p *Product) error
}

package asset

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Root container of the asset tree. The migration seeds it.
const (
	RootID   int64 = 1
	RootPath       = "/"
)

// Asset types.
const (
	TypeFolder   = "folder"
	TypeImage    = "image"
	TypeDocument = "document"
)

// ErrNotFound is returned when a requested asset does not exist.
var ErrNotFound = errors.New("asset not found")

// DuplicatePathError indicates that an asset already occupies the path a new
// asset was about to be created at.
type DuplicatePathError struct {
	Path string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("duplicate full path %q", e.Path)
}

// Asset is a stored binary. Its content lives in a BlobStore under StorageKey;
// Checksum is the digest recorded in the asset's most recent version.
type Asset struct {
	ID         int64
	ParentID   int64
	Type       string
	Filename   string
	Path       string
	MimeType   string
	Size       int64
	StorageKey string
	Checksum   string
	CreatedAt  time.Time
}

// IsImage reports whether the asset holds an image.
func (a *Asset) IsImage() bool {
	return a.Type == TypeImage
}

// Repository persists asset metadata and its version history.
type Repository interface {
	// FindByChecksum returns the asset with the lowest id whose most recent
	// version carries sum, or ErrNotFound.
	FindByChecksum(ctx context.Context, sum string) (*Asset, error)
	GetByID(ctx context.Context, id int64) (*Asset, error)
	GetByPath(ctx context.Context, path string) (*Asset, error)
	// Create inserts the asset and its first version. It returns
	// *DuplicatePathError when a.Path is taken.
	Create(ctx context.Context, a *Asset) error
	// ListChecksums calls fn with the current checksum of every asset.
	ListChecksums(ctx context.Context, fn func(sum string)) error
}

// BlobStore holds asset content keyed by storage key.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

package asset

import (
	"context"
	"path"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/feed-import/internal/checksum"
)

const (
	indexCapacity = 1_000_000
	indexFPR      = 0.001
)

// Service stores binaries as assets and finds existing ones by content.
type Service struct {
	repo  Repository
	blobs BlobStore
	lg    *zap.Logger

	// index is nil until WarmIndex succeeds. A negative test on it proves
	// that no current version carries the checksum.
	index *bloom.BloomFilter

	// newName yields the user-visible filename stem, newKey the blob
	// object name. They are independent so that a path collision never
	// touches the blob of the asset already at that path.
	newName func() string
	newKey  func() string
}

// NewService creates an asset Service.
func NewService(repo Repository, blobs BlobStore, lg *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		blobs:   blobs,
		lg:      lg,
		newName: func() string { return uuid.New().String() },
		newKey:  func() string { return uuid.New().String() },
	}
}

// WarmIndex loads the checksum of every current asset version into a bloom
// filter consulted by FindByChecksum.
func (s *Service) WarmIndex(ctx context.Context) error {
	index := bloom.NewWithEstimates(indexCapacity, indexFPR)
	var count int
	if err := s.repo.ListChecksums(ctx, func(sum string) {
		index.AddString(sum)
		count++
	}); err != nil {
		return errors.Wrap(err, "list checksums")
	}
	s.index = index
	s.lg.Info("Checksum index warmed", zap.Int("checksums", count))
	return nil
}

// FindByChecksum returns the canonical asset holding content with the given
// checksum, or ErrNotFound.
func (s *Service) FindByChecksum(ctx context.Context, sum string) (*Asset, error) {
	if s.index != nil && !s.index.TestString(sum) {
		return nil, ErrNotFound
	}
	a, err := s.repo.FindByChecksum(ctx, sum)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find asset by checksum")
	}
	return a, nil
}

// Store creates a new asset under the root container. It does not look for
// an existing asset with the same content; callers check FindByChecksum first.
func (s *Service) Store(ctx context.Context, data []byte) (*Asset, error) {
	parent, err := s.repo.GetByPath(ctx, RootPath)
	if err != nil {
		return nil, errors.Wrap(err, "get root folder")
	}

	mt := mimetype.Detect(data)
	filename := s.newName() + mt.Extension()
	a := &Asset{
		ParentID:   parent.ID,
		Type:       typeOf(mt.String()),
		Filename:   filename,
		Path:       path.Join(parent.Path, filename),
		MimeType:   mt.String(),
		Size:       int64(len(data)),
		StorageKey: "assets/" + s.newKey() + mt.Extension(),
		Checksum:   checksum.Sum(data),
	}

	if err := s.blobs.Put(ctx, a.StorageKey, data, a.MimeType); err != nil {
		return nil, errors.Wrapf(err, "put blob %s", a.StorageKey)
	}

	if err := s.repo.Create(ctx, a); err != nil {
		if delErr := s.blobs.Delete(ctx, a.StorageKey); delErr != nil {
			s.lg.Warn("Failed to delete orphan blob",
				zap.String("key", a.StorageKey),
				zap.Error(delErr),
			)
		}
		var dup *DuplicatePathError
		if errors.As(err, &dup) {
			return nil, dup
		}
		return nil, errors.Wrap(err, "create asset")
	}

	if s.index != nil {
		s.index.AddString(a.Checksum)
	}

	s.lg.Info("Asset stored",
		zap.Int64("id", a.ID),
		zap.String("path", a.Path),
		zap.String("mime", a.MimeType),
		zap.Int64("size", a.Size),
	)
	return a, nil
}

func typeOf(mime string) string {
	if strings.HasPrefix(mime, "image/") {
		return TypeImage
	}
	return TypeDocument
}

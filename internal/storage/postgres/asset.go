package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/feed-import/internal/domain/asset"
)

// mostRecentVersionSQL selects, per asset id, its highest version counter.
const mostRecentVersionSQL = `SELECT cid, MAX(version_count) AS version
		FROM versions
		WHERE ctype = 'asset'
		GROUP BY cid`

const assetColumns = `a.id, COALESCE(a.parent_id, 0), a.type, a.filename, a.path,
		a.mime_type, a.file_size, a.storage_key, a.created_at`

const currentHashSQL = `COALESCE((SELECT binary_file_hash FROM versions
		WHERE cid = a.id AND ctype = 'asset'
		ORDER BY version_count DESC LIMIT 1), '')`

var (
	findAssetByChecksumSQL = `SELECT ` + assetColumns + `, v.binary_file_hash
		FROM versions v
		INNER JOIN (` + mostRecentVersionSQL + `) mv
			ON v.cid = mv.cid AND v.version_count = mv.version
		INNER JOIN assets a ON a.id = v.cid
		WHERE v.ctype = 'asset' AND v.binary_file_hash = $1
		ORDER BY v.cid
		LIMIT 1`

	listCurrentChecksumsSQL = `SELECT v.binary_file_hash
		FROM versions v
		INNER JOIN (` + mostRecentVersionSQL + `) mv
			ON v.cid = mv.cid AND v.version_count = mv.version
		WHERE v.ctype = 'asset' AND v.binary_file_hash IS NOT NULL`

	getAssetByIDSQL   = `SELECT ` + assetColumns + `, ` + currentHashSQL + ` FROM assets a WHERE a.id = $1`
	getAssetByPathSQL = `SELECT ` + assetColumns + `, ` + currentHashSQL + ` FROM assets a WHERE a.path = $1`
)

const (
	insertAssetSQL = `INSERT INTO assets (parent_id, type, filename, path, mime_type, file_size, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	insertAssetVersionSQL = `INSERT INTO versions (cid, ctype, version_count, binary_file_hash)
		VALUES ($1, 'asset', 1, $2)`
)

var _ asset.Repository = (*AssetRepository)(nil)

// AssetRepository implements asset.Repository backed by PostgreSQL. Content
// checksums live in the versions table, one row per asset version.
type AssetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository returns an AssetRepository that uses the given pool.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{pool: pool}
}

// FindByChecksum returns the lowest-id asset whose most recent version has
// the given checksum. History rows of deleted assets are ignored.
func (r *AssetRepository) FindByChecksum(ctx context.Context, sum string) (*asset.Asset, error) {
	return r.getOne(ctx, "finding asset by checksum", findAssetByChecksumSQL, sum)
}

// GetByID returns the asset with the given id.
func (r *AssetRepository) GetByID(ctx context.Context, id int64) (*asset.Asset, error) {
	return r.getOne(ctx, fmt.Sprintf("getting asset %d", id), getAssetByIDSQL, id)
}

// GetByPath returns the asset at the given full path.
func (r *AssetRepository) GetByPath(ctx context.Context, path string) (*asset.Asset, error) {
	return r.getOne(ctx, fmt.Sprintf("getting asset %q", path), getAssetByPathSQL, path)
}

func (r *AssetRepository) getOne(ctx context.Context, op, sql string, arg any) (*asset.Asset, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAsset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, asset.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &a, nil
}

// Create inserts a and its first version in one transaction. A taken path
// yields *asset.DuplicatePathError.
func (r *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertAssetSQL,
			a.ParentID, a.Type, a.Filename, a.Path, a.MimeType, a.Size, a.StorageKey,
		).Scan(&a.ID, &a.CreatedAt)
		if err != nil {
			if violates(err, "assets_path_key") {
				return &asset.DuplicatePathError{Path: a.Path}
			}
			return fmt.Errorf("inserting asset %q: %w", a.Path, err)
		}

		if _, err := tx.Exec(ctx, insertAssetVersionSQL, a.ID, a.Checksum); err != nil {
			return fmt.Errorf("inserting version of asset %d: %w", a.ID, err)
		}
		return nil
	})
}

// ListChecksums streams the current checksum of every asset to fn.
func (r *AssetRepository) ListChecksums(ctx context.Context, fn func(sum string)) error {
	rows, err := r.pool.Query(ctx, listCurrentChecksumsSQL)
	if err != nil {
		return fmt.Errorf("listing checksums: %w", err)
	}

	var sum string
	_, err = pgx.ForEachRow(rows, []any{&sum}, func() error {
		fn(sum)
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing checksums: %w", err)
	}
	return nil
}

func scanAsset(row pgx.CollectableRow) (asset.Asset, error) {
	var a asset.Asset
	err := row.Scan(
		&a.ID, &a.ParentID, &a.Type, &a.Filename, &a.Path,
		&a.MimeType, &a.Size, &a.StorageKey, &a.CreatedAt, &a.Checksum,
	)
	return a, err
}

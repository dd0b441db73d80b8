package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder

	"github.com/go-faster/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/xenking/feed-import/internal/domain/asset"
)

// Preset describes a rendition. Images narrower than Width are not upscaled.
type Preset struct {
	Width   int
	Quality int
}

// DefaultPresets are the renditions known to a Renderer by default.
var DefaultPresets = map[string]Preset{
	PresetThumb200: {Width: 200, Quality: 85},
	PresetThumb800: {Width: 800, Quality: 85},
}

// Renderer is an Engine storing renditions next to the originals in a
// BlobStore. A rendition is produced once and reused afterwards.
type Renderer struct {
	blobs   asset.BlobStore
	presets map[string]Preset
}

// NewRenderer creates a Renderer. A nil presets map selects DefaultPresets.
func NewRenderer(blobs asset.BlobStore, presets map[string]Preset) *Renderer {
	if presets == nil {
		presets = DefaultPresets
	}
	return &Renderer{blobs: blobs, presets: presets}
}

// Key returns the storage key of a rendition.
func Key(a *asset.Asset, preset string) string {
	return fmt.Sprintf("thumbnails/%s/%d.jpg", preset, a.ID)
}

// Thumbnail implements Engine.
func (r *Renderer) Thumbnail(ctx context.Context, a *asset.Asset, preset string) (*Thumbnail, error) {
	p, ok := r.presets[preset]
	if !ok {
		return nil, errors.Errorf("unknown preset %q", preset)
	}
	key := Key(a, preset)

	exists, err := r.blobs.Exists(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", key)
	}
	if exists {
		return &Thumbnail{Preset: preset, Path: key}, nil
	}

	src, err := r.blobs.Get(ctx, a.StorageKey)
	if err != nil {
		return nil, errors.Wrapf(err, "get original %s", a.StorageKey)
	}
	data, err := render(src, p)
	if err != nil {
		return nil, errors.Wrapf(err, "render %s", preset)
	}
	if err := r.blobs.Put(ctx, key, data, "image/jpeg"); err != nil {
		return nil, errors.Wrapf(err, "put %s", key)
	}
	return &Thumbnail{Preset: preset, Path: key}, nil
}

func render(src []byte, p Preset) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > p.Width {
		h = max(1, h*p.Width/w)
		w = p.Width
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.Quality}); err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	return buf.Bytes(), nil
}

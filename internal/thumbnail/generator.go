package thumbnail

import (
	"context"

	"go.uber.org/zap"

	"github.com/xenking/feed-import/internal/domain/asset"
)

// Presets requested for every new image.
const (
	PresetThumb200 = "thumb_200"
	PresetThumb800 = "thumb_800"
)

// Thumbnail is a reference to a rendered preset.
type Thumbnail struct {
	Preset string
	Path   string
}

// Engine renders presets on first request and returns where they live.
type Engine interface {
	Thumbnail(ctx context.Context, a *asset.Asset, preset string) (*Thumbnail, error)
}

// Generator is the default subscriber: it asks the engine for each preset of
// every new image and throws the references away.
type Generator struct {
	engine  Engine
	presets []string
	lg      *zap.Logger
}

// NewGenerator creates a Generator for the given presets, or for
// thumb_200 and thumb_800 when none are given.
func NewGenerator(engine Engine, lg *zap.Logger, presets ...string) *Generator {
	if len(presets) == 0 {
		presets = []string{PresetThumb200, PresetThumb800}
	}
	return &Generator{engine: engine, presets: presets, lg: lg}
}

// OnAssetUpload handles an Event. Non-image assets are ignored. Engine
// failures are logged and do not reach the publisher.
func (g *Generator) OnAssetUpload(ctx context.Context, ev Event) {
	a := ev.Asset
	if a == nil || !a.IsImage() {
		return
	}
	for _, preset := range g.presets {
		th, err := g.engine.Thumbnail(ctx, a, preset)
		if err != nil {
			g.lg.Warn("Thumbnail generation failed",
				zap.Int64("asset_id", a.ID),
				zap.String("preset", preset),
				zap.Error(err),
			)
			continue
		}
		g.lg.Debug("Thumbnail ready",
			zap.Int64("asset_id", a.ID),
			zap.String("preset", th.Preset),
			zap.String("path", th.Path),
		)
	}
}

// Command migrate applies the database schema and creates the asset bucket.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/feed-import/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := appkg.LoadConfig(nil)
		if err != nil {
			return err
		}
		return appkg.Migrate(ctx, lg, cfg)
	})
}

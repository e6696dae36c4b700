package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/shopfront/shopfront/internal/stubserver"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		cfg, err := stubserver.LoadConfig()
		if err != nil {
			return err
		}
		return stubserver.Run(ctx, lg, cfg)
	})
}

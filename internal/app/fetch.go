package app

import (
	"context"

	"news-impact-alerts/internal/service"
)

// Fetch runs one feed polling cycle and exits.
func (a *App) Fetch(ctx context.Context) error {
	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	svc := service.New(nil, c.fetcher, c.pipeline, a.Logger)
	return svc.Poll(ctx)
}

package app

import (
	"context"
	"errors"
	"fmt"
)

var validHorizons = map[string]bool{"1h": true, "6h": true, "24h": true}

// Validate scores one stored event at the given horizon and prints the
// validation record as JSON.
func (a *App) Validate(ctx context.Context, opts ValidateOptions) error {
	if opts.EventID == "" {
		return errors.New("event id must not be empty")
	}
	if opts.Horizon == "" {
		opts.Horizon = "1h"
	}
	if !validHorizons[opts.Horizon] {
		return fmt.Errorf("horizon %q is not one of 1h, 6h, 24h", opts.Horizon)
	}

	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	v, err := c.correlator.Validate(opts.EventID, opts.Horizon)
	if err != nil {
		return err
	}

	return printJSON(v)
}

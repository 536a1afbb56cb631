package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"news-impact-alerts/internal/schema"
)

// Analyze runs one headline through the pipeline and prints the stored
// event as JSON.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	if opts.Headline == "" {
		return errors.New("headline must not be empty")
	}

	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	event, err := c.pipeline.ProcessOne(ctx, schema.AnalyzeRequest{
		Headline: opts.Headline,
		Source:   opts.Source,
		Text:     opts.Text,
	})
	if err != nil {
		return err
	}

	return printJSON(event)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent events, newest first.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	events := c.store.Events()
	if opts.Limit > 0 && opts.Limit < len(events) {
		events = events[:opts.Limit]
	}
	if len(events) == 0 {
		fmt.Fprintln(os.Stdout, "no events found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tEvent ID\tSeverity\tSentiment\tPressure\tTicker\tHeadline")

	for _, e := range events {
		ticker := "-"
		if len(e.AffectedAssets) > 0 {
			ticker = e.AffectedAssets[0].Ticker
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.UTC().Format(time.RFC3339),
			e.EventID,
			e.Severity,
			e.EventSentiment,
			e.MarketPressure,
			ticker,
			sanitizeInline(truncateCell(e.Headline, 60)),
		)
	}

	writer.Flush()
	return nil
}

func truncateCell(v string, max int) string {
	if len(v) <= max {
		return v
	}
	return v[:max-3] + "..."
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"news-impact-alerts/internal/schema"
)

// Export renders validation outcomes as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	c, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	validations := c.store.Validations()
	if len(validations) == 0 {
		a.Logger.Info().Msg("no validations found for export")
		return nil
	}

	downsampled := downsampleValidations(validations, opts.MaxPoints)
	a.Logger.Info().Int("total", len(validations)).Int("exported", len(downsampled)).Msg("exporting validations")

	if opts.CSVPath != "" {
		if err := writeValidationsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeValidationsPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleValidations(validations []schema.Validation, max int) []schema.Validation {
	if max <= 0 || len(validations) <= max {
		return validations
	}

	result := make([]schema.Validation, 0, max)
	step := float64(len(validations)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(validations) {
			idx = len(validations) - 1
		}
		result = append(result, validations[idx])
	}
	return result
}

func writeValidationsCSV(path string, validations []schema.Validation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"validated_at", "event_id", "headline", "ticker", "direction", "confidence", "horizon", "price_at_event", "price_at_validation", "change_pct", "status"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, v := range validations {
		record := []string{
			v.ValidatedAt.UTC().Format(time.RFC3339),
			v.EventID,
			v.Headline,
			v.PredictedTicker,
			string(v.PredictedDirection),
			strconv.FormatFloat(v.PredictedConfidence, 'f', 2, 64),
			v.Horizon,
			strconv.FormatFloat(v.PriceAtEvent, 'f', 2, 64),
			strconv.FormatFloat(v.PriceAtValidation, 'f', 2, 64),
			strconv.FormatFloat(v.ActualChangePercent, 'f', 2, 64),
			string(v.Status),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeValidationsPNG(path string, validations []schema.Validation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(validations))
	change := make([]float64, len(validations))
	confidence := make([]float64, len(validations))

	for i, v := range validations {
		x[i] = v.ValidatedAt
		change[i] = v.ActualChangePercent
		confidence[i] = v.PredictedConfidence
	}

	pctFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Change (%)",
			ValueFormatter: pctFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Confidence",
			ValueFormatter: pctFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Change %",
				XValues: x,
				YValues: change,
			},
			chart.TimeSeries{
				Name:    "Confidence",
				XValues: x,
				YValues: confidence,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Package correlator scores stored predictions against simulated market
// outcomes. One validation record exists per (event, horizon) pair.
package correlator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"news-impact-alerts/internal/schema"
	"news-impact-alerts/internal/storage"
)

// ErrNoAssetsToValidate indicates the event carries no asset predictions,
// so there is nothing to score.
var ErrNoAssetsToValidate = errors.New("correlator: event has no affected assets")

// basePrice anchors the simulated price path. Only the relative change
// matters for scoring.
const basePrice = 100.0

// horizonThresholds maps a validation horizon to the move (in percent)
// required before a prediction resolves. Unknown horizons fall back to
// defaultThreshold and stay scoreable.
var horizonThresholds = map[string]float64{
	"1h":  0.5,
	"6h":  1.5,
	"24h": 3.0,
}

const defaultThreshold = 1.0

// Options parameterise outcome simulation.
type Options struct {
	// HitProbability is the chance the simulated move lands in the
	// predicted direction. Zero means the default of 0.70.
	HitProbability float64

	// Rand supplies the outcome randomness. Nil means a time-seeded source;
	// tests inject a fixed seed.
	Rand *rand.Rand
}

// Correlator simulates price outcomes and records one immutable validation
// per (event, horizon) pair.
type Correlator struct {
	store  storage.ValidationStore
	rng    *rand.Rand
	hitP   float64
	now    func() time.Time
	logger zerolog.Logger
}

// New constructs a Correlator over the validation store.
func New(store storage.ValidationStore, opts Options, logger zerolog.Logger) *Correlator {
	hitP := opts.HitProbability
	if hitP <= 0 {
		hitP = 0.70
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Correlator{
		store:  store,
		rng:    rng,
		hitP:   hitP,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With().Str("component", "correlator").Logger(),
	}
}

// Validate scores the event's first asset prediction at the given horizon.
// The call is idempotent: an existing record for the pair is returned
// unchanged and no new outcome is simulated.
func (c *Correlator) Validate(eventID, horizon string) (schema.Validation, error) {
	if existing, ok := c.store.ValidationFor(eventID, horizon); ok {
		return existing, nil
	}

	event, ok := c.store.EventByID(eventID)
	if !ok {
		return schema.Validation{}, fmt.Errorf("validate %s: %w", eventID, storage.ErrNotFound)
	}
	if len(event.AffectedAssets) == 0 {
		return schema.Validation{}, fmt.Errorf("validate %s: %w", eventID, ErrNoAssetsToValidate)
	}

	// Only the first asset is scored; secondary predictions are advisory.
	asset := event.AffectedAssets[0]

	// Round before classifying so the stored change and the status agree.
	change := round2(c.simulateChange(asset.Prediction))
	status := classify(asset.Prediction, change, thresholdFor(horizon))

	v := schema.Validation{
		EventID:             event.EventID,
		Headline:            event.Headline,
		PredictedDirection:  asset.Prediction,
		PredictedTicker:     asset.Ticker,
		PredictedConfidence: asset.Confidence,
		Horizon:             horizon,
		PriceAtEvent:        basePrice,
		PriceAtValidation:   round2(basePrice * (1 + change/100)),
		ActualChangePercent: change,
		Status:              status,
		ValidatedAt:         c.now(),
	}

	// Atomic pair check: a racing call for the same pair keeps the record
	// that landed first.
	stored, created := c.store.AppendValidationIfAbsent(v)
	if !created {
		return stored, nil
	}
	c.logger.Info().
		Str("event_id", v.EventID).
		Str("ticker", v.PredictedTicker).
		Str("horizon", horizon).
		Float64("change_pct", v.ActualChangePercent).
		Str("status", string(v.Status)).
		Msg("prediction validated")
	return v, nil
}

// simulateChange draws a percentage move. With probability hitP the move
// lands in the predicted direction; NEUTRAL predictions draw a small move
// around zero regardless.
func (c *Correlator) simulateChange(prediction schema.Prediction) float64 {
	if prediction == schema.PredictionNeutral {
		return uniform(c.rng, -1.0, 1.0)
	}

	hit := c.rng.Float64() < c.hitP
	favorable := uniform(c.rng, 0.5, 3.0)
	adverse := uniform(c.rng, -3.0, -0.5)

	switch {
	case prediction == schema.PredictionBullish && hit:
		return favorable
	case prediction == schema.PredictionBullish:
		return adverse
	case hit: // BEARISH
		return adverse
	default:
		return favorable
	}
}

// classify resolves a prediction against the realized move. A directional
// call is CORRECT only on a move strictly beyond the threshold in its own
// direction; otherwise a move strictly inside the band stays PENDING, and
// everything else (including a move landing exactly on the threshold, or any
// resolved NEUTRAL draw) is INCORRECT.
func classify(prediction schema.Prediction, changePct, threshold float64) schema.ValidationStatus {
	switch {
	case prediction == schema.PredictionBullish && changePct > threshold:
		return schema.StatusCorrect
	case prediction == schema.PredictionBearish && changePct < -threshold:
		return schema.StatusCorrect
	case math.Abs(changePct) < threshold:
		return schema.StatusPending
	default:
		return schema.StatusIncorrect
	}
}

func thresholdFor(horizon string) float64 {
	if t, ok := horizonThresholds[horizon]; ok {
		return t
	}
	return defaultThreshold
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Package market serves simulated price data. Series are deterministic per
// ticker so repeated requests and tests see the same curve.
package market

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// rangeHours maps a query range to the number of hourly points returned.
var rangeHours = map[string]int{
	"1h": 1,
	"1d": 24,
	"1w": 168,
	"1m": 720,
}

// Ranges lists the supported query ranges.
func Ranges() []string {
	out := make([]string, 0, len(rangeHours))
	for r := range rangeHours {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// ValidRange reports whether r is a supported query range.
func ValidRange(r string) bool {
	_, ok := rangeHours[r]
	return ok
}

// Point is one hourly price sample.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Series is the simulated price history for one ticker.
type Series struct {
	Ticker string  `json:"ticker"`
	Range  string  `json:"range"`
	Points []Point `json:"points"`
}

// PriceSeries builds a deterministic random-walk series for the ticker,
// hourly points ending at now. The walk is seeded from the ticker so the
// same ticker always yields the same curve shape.
func PriceSeries(ticker, priceRange string, now time.Time) (Series, error) {
	hours, ok := rangeHours[priceRange]
	if !ok {
		return Series{}, fmt.Errorf("unsupported range %q (valid: %v)", priceRange, Ranges())
	}

	rng := rand.New(rand.NewSource(tickerSeed(ticker)))

	// Base price in [50, 250), hourly steps of at most ±2%.
	price := 50 + rng.Float64()*200
	end := now.UTC().Truncate(time.Hour)

	points := make([]Point, 0, hours+1)
	for i := hours; i >= 0; i-- {
		points = append(points, Point{
			Timestamp: end.Add(-time.Duration(i) * time.Hour),
			Price:     round2(price),
		})
		price *= 1 + (rng.Float64()-0.5)*0.04
	}

	return Series{Ticker: ticker, Range: priceRange, Points: points}, nil
}

func tickerSeed(ticker string) int64 {
	h := fnv.New64a()
	h.Write([]byte(ticker))
	return int64(h.Sum64())
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

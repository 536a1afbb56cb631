package market

import (
	"testing"
	"time"
)

func TestPriceSeriesDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

	first, err := PriceSeries("AAPL", "1d", now)
	if err != nil {
		t.Fatalf("PriceSeries: %v", err)
	}
	second, err := PriceSeries("AAPL", "1d", now)
	if err != nil {
		t.Fatalf("PriceSeries: %v", err)
	}

	if len(first.Points) != len(second.Points) {
		t.Fatalf("lengths differ: %d vs %d", len(first.Points), len(second.Points))
	}
	for i := range first.Points {
		if first.Points[i] != second.Points[i] {
			t.Fatalf("point %d differs: %+v vs %+v", i, first.Points[i], second.Points[i])
		}
	}

	other, err := PriceSeries("MSFT", "1d", now)
	if err != nil {
		t.Fatalf("PriceSeries: %v", err)
	}
	if other.Points[0].Price == first.Points[0].Price {
		t.Fatal("different tickers should start from different base prices")
	}
}

func TestPriceSeriesShape(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)

	cases := map[string]int{"1h": 2, "1d": 25, "1w": 169, "1m": 721}
	for r, wantLen := range cases {
		series, err := PriceSeries("SPY", r, now)
		if err != nil {
			t.Fatalf("range %s: %v", r, err)
		}
		if len(series.Points) != wantLen {
			t.Fatalf("range %s: points = %d, want %d", r, len(series.Points), wantLen)
		}
		for _, p := range series.Points {
			if p.Price <= 0 {
				t.Fatalf("range %s: non-positive price %v", r, p.Price)
			}
		}
		last := series.Points[len(series.Points)-1]
		if !last.Timestamp.Equal(now.Truncate(time.Hour)) {
			t.Fatalf("range %s: series must end at the current hour, got %v", r, last.Timestamp)
		}
	}
}

func TestPriceSeriesBasePriceBand(t *testing.T) {
	now := time.Now().UTC()
	for _, ticker := range []string{"SPY", "GLD", "BTC-USD", "EURUSD"} {
		series, err := PriceSeries(ticker, "1h", now)
		if err != nil {
			t.Fatalf("%s: %v", ticker, err)
		}
		base := series.Points[0].Price
		if base < 50 || base >= 250 {
			t.Fatalf("%s: base price %v outside [50, 250)", ticker, base)
		}
	}
}

func TestPriceSeriesInvalidRange(t *testing.T) {
	if _, err := PriceSeries("SPY", "2y", time.Now()); err == nil {
		t.Fatal("invalid range must error")
	}
	if ValidRange("2y") {
		t.Fatal("2y is not a valid range")
	}
	if !ValidRange("1w") {
		t.Fatal("1w is a valid range")
	}
}

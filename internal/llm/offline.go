package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// offlineModelName is recorded in meta.llm_model for offline-generated events.
const offlineModelName = "offline"

// offlineAsset is one entry of the fixed asset table the offline generator
// draws from.
type offlineAsset struct {
	Ticker string
	Name   string
	Class  string
	Sector string
}

var offlineAssets = []offlineAsset{
	{"SPY", "SPDR S&P 500 ETF", "Equity", "Broad Market"},
	{"AAPL", "Apple Inc.", "Equity", "Technology"},
	{"XOM", "Exxon Mobil", "Equity", "Energy"},
	{"GLD", "SPDR Gold Shares", "Commodity", "Precious Metals"},
	{"BTC-USD", "Bitcoin", "Crypto", "Digital Assets"},
	{"EURUSD", "Euro / US Dollar", "Forex", "Currencies"},
}

var offlineSentiments = []string{"POSITIVE", "NEGATIVE", "MIXED"}
var offlinePressures = []string{"RISK_ON", "RISK_OFF", "INFLATIONARY", "DEFENSIVE", "COST_PRESSURE", "LIQUIDITY"}
var offlinePredictions = []string{"BULLISH", "BEARISH", "NEUTRAL"}

// OfflineClient is the terminal fallback of the provider chain. It never
// calls an external service and always succeeds; the payload is a pure
// function of the prompt text.
type OfflineClient struct{}

// NewOffline constructs the offline deterministic generator.
func NewOffline() *OfflineClient { return &OfflineClient{} }

// Model reports the offline model name.
func (c *OfflineClient) Model() string { return offlineModelName }

// GenerateEvent synthesizes a schema-conformant payload keyed off a hash of
// the user prompt.
func (c *OfflineClient) GenerateEvent(_ context.Context, _, userPrompt string, _ map[string]any) (json.RawMessage, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userPrompt))
	seed := h.Sum64()

	asset := offlineAssets[seed%uint64(len(offlineAssets))]
	sentiment := offlineSentiments[(seed>>4)%uint64(len(offlineSentiments))]
	pressure := offlinePressures[(seed>>8)%uint64(len(offlinePressures))]
	prediction := offlinePredictions[(seed>>12)%uint64(len(offlinePredictions))]
	confidence := 0.5 + float64((seed>>16)%40)/100.0

	payload := map[string]any{
		"event_id":           fmt.Sprintf("evt_offline_%012x", seed&0xffffffffffff),
		"headline":           "Offline analysis",
		"source":             "offline",
		"severity":           "MEDIUM",
		"event_sentiment":    sentiment,
		"macro_effect":       "Heuristic offline assessment",
		"prediction_horizon": "SHORT_TERM",
		"market_pressure":    pressure,
		"logic_chain": []map[string]string{
			{"type": "event", "text": "Headline registered without provider assistance"},
			{"type": "macro", "text": "Heuristic offline assessment"},
			{"type": "sector", "text": asset.Sector},
			{"type": "asset", "text": asset.Ticker},
		},
		"affected_assets": []map[string]any{
			{
				"ticker":      asset.Ticker,
				"name":        asset.Name,
				"asset_class": asset.Class,
				"sector":      asset.Sector,
				"prediction":  prediction,
				"confidence":  confidence,
				"reason":      "Deterministic offline heuristic; no provider credential configured",
			},
		},
		"why": "Offline generator output; directional call is heuristic, not model-derived",
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal offline payload: %v", ErrGenerationFailed, err)
	}
	return raw, nil
}

var _ Client = (*OfflineClient)(nil)

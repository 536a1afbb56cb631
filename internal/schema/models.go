// Package schema defines the event data contract shared by the generation
// providers, the ingestion pipeline, and the correlator.
package schema

import (
	"time"
	"unicode/utf8"
)

// Severity grades the impact of an event.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Sentiment captures the overall tone of an event.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentMixed    Sentiment = "MIXED"
)

// Horizon is the predicted time frame of the market reaction.
type Horizon string

const (
	HorizonShortTerm  Horizon = "SHORT_TERM"
	HorizonMediumTerm Horizon = "MEDIUM_TERM"
	HorizonLongTerm   Horizon = "LONG_TERM"
)

// MarketPressure names the macro pressure type an event exerts.
type MarketPressure string

const (
	PressureInflationary MarketPressure = "INFLATIONARY"
	PressureDefensive    MarketPressure = "DEFENSIVE"
	PressureRiskOff      MarketPressure = "RISK_OFF"
	PressureRiskOn       MarketPressure = "RISK_ON"
	PressureCost         MarketPressure = "COST_PRESSURE"
	PressureLiquidity    MarketPressure = "LIQUIDITY"
)

// Prediction is the direction call for an affected asset.
type Prediction string

const (
	PredictionBullish Prediction = "BULLISH"
	PredictionBearish Prediction = "BEARISH"
	PredictionNeutral Prediction = "NEUTRAL"
)

// AssetClass buckets an affected asset.
type AssetClass string

const (
	AssetEquity    AssetClass = "Equity"
	AssetCommodity AssetClass = "Commodity"
	AssetCrypto    AssetClass = "Crypto"
	AssetForex     AssetClass = "Forex"
)

// ValidationStatus is the terminal (or pending) state of a scored prediction.
type ValidationStatus string

const (
	StatusCorrect   ValidationStatus = "CORRECT"
	StatusIncorrect ValidationStatus = "INCORRECT"
	StatusPending   ValidationStatus = "PENDING"
)

const (
	// MaxReasonLen bounds the `why` field and every asset `reason`.
	MaxReasonLen = 200

	// PromptVersion identifies the prompt/schema contract revision. Bump it
	// whenever the schema or the prompts change shape.
	PromptVersion = "v1"

	// DefaultConfidenceFormula records how the confidence components combine.
	DefaultConfidenceFormula = "0.4*llm_score+0.3*sentiment_strength+0.3*historical_similarity"
)

// LogicNode is one explanation step in the causal narrative. The generated
// chain follows event -> macro -> sector -> asset; order and cardinality are
// a prompt contract, not validated structurally.
type LogicNode struct {
	Type string `json:"type" validate:"oneof=event macro sector asset"`
	Text string `json:"text" validate:"required"`
}

// AffectedAsset is one asset-level prediction attached to an event.
type AffectedAsset struct {
	Ticker     string     `json:"ticker" validate:"required"`
	Name       string     `json:"name" validate:"required"`
	AssetClass AssetClass `json:"asset_class" validate:"oneof=Equity Commodity Crypto Forex"`
	Sector     string     `json:"sector" validate:"required"`
	Prediction Prediction `json:"prediction" validate:"oneof=BULLISH BEARISH NEUTRAL"`
	Confidence float64    `json:"confidence" validate:"gte=0,lte=1"`
	Reason     string     `json:"reason" validate:"max=200"`
}

// ConfidenceComponents are the inputs to the confidence formula, each in [0,1].
type ConfidenceComponents struct {
	LLMScore             float64 `json:"llm_score" validate:"gte=0,lte=1"`
	SentimentStrength    float64 `json:"sentiment_strength" validate:"gte=0,lte=1"`
	HistoricalSimilarity float64 `json:"historical_similarity" validate:"gte=0,lte=1"`
}

// Meta records provenance of a generated event.
type Meta struct {
	LLMModel             string               `json:"llm_model" validate:"required"`
	LLMPromptVersion     string               `json:"llm_prompt_version" validate:"required"`
	ConfidenceComponents ConfidenceComponents `json:"confidence_components"`
	ConfidenceFormula    string               `json:"confidence_formula" validate:"required"`
}

// Event is the structured causal explanation of one headline's market impact.
// Immutable once stored.
type Event struct {
	EventID           string          `json:"event_id" validate:"required"`
	Headline          string          `json:"headline" validate:"required"`
	Source            string          `json:"source" validate:"required"`
	Timestamp         time.Time       `json:"timestamp" validate:"required"`
	Severity          Severity        `json:"severity" validate:"oneof=LOW MEDIUM HIGH"`
	EventSentiment    Sentiment       `json:"event_sentiment" validate:"oneof=POSITIVE NEGATIVE MIXED"`
	MacroEffect       string          `json:"macro_effect" validate:"required"`
	PredictionHorizon Horizon         `json:"prediction_horizon" validate:"oneof=SHORT_TERM MEDIUM_TERM LONG_TERM"`
	MarketPressure    MarketPressure  `json:"market_pressure" validate:"oneof=INFLATIONARY DEFENSIVE RISK_OFF RISK_ON COST_PRESSURE LIQUIDITY"`
	LogicChain        []LogicNode     `json:"logic_chain" validate:"dive"`
	AffectedAssets    []AffectedAsset `json:"affected_assets" validate:"dive"`
	Why               string          `json:"why" validate:"max=200"`
	Meta              Meta            `json:"meta"`
}

// Validation is the scored outcome of one (event, horizon) prediction.
// Created once per pair, immutable thereafter.
type Validation struct {
	EventID             string           `json:"event_id"`
	Headline            string           `json:"headline"`
	PredictedDirection  Prediction       `json:"predicted_direction"`
	PredictedTicker     string           `json:"predicted_ticker"`
	PredictedConfidence float64          `json:"predicted_confidence"`
	Horizon             string           `json:"horizon"`
	PriceAtEvent        float64          `json:"price_at_event"`
	PriceAtValidation   float64          `json:"price_at_validation"`
	ActualChangePercent float64          `json:"actual_change_percent"`
	Status              ValidationStatus `json:"status"`
	ValidatedAt         time.Time        `json:"validated_at"`
}

// AnalyzeRequest is one headline submitted for analysis, by API or feed poll.
type AnalyzeRequest struct {
	Headline  string     `json:"headline" binding:"required"`
	Source    string     `json:"source"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Text      string     `json:"text,omitempty"`
}

// DefaultMeta returns the meta block injected when a provider omits one.
func DefaultMeta(model string) Meta {
	return Meta{
		LLMModel:         model,
		LLMPromptVersion: PromptVersion,
		ConfidenceComponents: ConfidenceComponents{
			LLMScore:             0.75,
			SentimentStrength:    0.6,
			HistoricalSimilarity: 0.5,
		},
		ConfidenceFormula: DefaultConfidenceFormula,
	}
}

// Truncate hard-caps s at max bytes, ending with an ellipsis when cut. The
// cut never lands inside a multi-byte rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// TruncateReasons enforces the 200-character cap on `why` and every asset
// `reason` in place.
func TruncateReasons(e *Event) {
	e.Why = Truncate(e.Why, MaxReasonLen)
	for i := range e.AffectedAssets {
		e.AffectedAssets[i].Reason = Truncate(e.AffectedAssets[i].Reason, MaxReasonLen)
	}
}

package schema

import (
	"fmt"
	"strings"
)

// SystemPrompt returns the system instruction enforcing the
// Event -> Macro -> Sector -> Asset reasoning structure.
func SystemPrompt() string {
	return `You are a financial analyst AI that analyzes news headlines and generates structured market predictions.

Your task is to:
1. Identify the core event from the news headline
2. Determine the macro-economic effect (e.g., Supply Shock, Monetary Policy Shift, Regulatory Impact)
3. Identify affected sectors
4. Identify specific assets (stocks, commodities, etc.) that will be impacted
5. Provide a clear Logic Chain showing: Event → Macro Effect → Sector → Asset

You must provide:
- Event severity (LOW, MEDIUM, HIGH)
- Event sentiment (POSITIVE, NEGATIVE, MIXED)
- Market pressure type (INFLATIONARY, DEFENSIVE, RISK_OFF, RISK_ON, COST_PRESSURE, LIQUIDITY)
- Prediction horizon (SHORT_TERM, MEDIUM_TERM, LONG_TERM)
- For each affected asset:
  - Ticker symbol
  - Asset name
  - Asset class (Equity, Commodity, Crypto, Forex)
  - Sector
  - Prediction (BULLISH, BEARISH, NEUTRAL)
  - Confidence score (0.0 to 1.0)
  - Brief reason (MUST be max 200 characters - be concise!)
- Overall 'why' explanation (MUST be max 200 characters - keep it brief and punchy!)

CRITICAL: All 'why' and 'reason' fields MUST stay under 200 characters. Be concise and direct.

Be precise, analytical, and provide clear reasoning for your predictions.`
}

// UserPrompt renders the headline, source, and optional article body into the
// user instruction.
func UserPrompt(headline, source, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this news headline and provide a structured prediction:\n\n")
	fmt.Fprintf(&b, "**Headline:** %s\n", headline)
	fmt.Fprintf(&b, "**Source:** %s", source)
	if text != "" {
		fmt.Fprintf(&b, "\n**Additional Context:** %s", text)
	}

	b.WriteString(`

Provide your analysis in the following structure:
1. Event ID (generate a unique identifier)
2. Severity (LOW/MEDIUM/HIGH)
3. Event Sentiment (POSITIVE/NEGATIVE/MIXED)
4. Macro Effect (describe the macro-economic impact)
5. Prediction Horizon (SHORT_TERM/MEDIUM_TERM/LONG_TERM)
6. Market Pressure (INFLATIONARY/DEFENSIVE/RISK_OFF/RISK_ON/COST_PRESSURE/LIQUIDITY)
7. Logic Chain (Event → Macro → Sector → Asset)
8. Affected Assets (list with ticker, name, asset_class, sector, prediction, confidence, reason)
   - IMPORTANT: Each asset 'reason' field must be MAX 200 characters
9. Why (brief explanation of the overall prediction)
   - CRITICAL: The 'why' field MUST be MAX 200 characters (keep it concise!)

Be specific and provide actionable insights. Keep all text fields within their character limits.`)

	return b.String()
}

// JSONSchema returns the structured-output schema sent alongside the prompts.
// Any change here must bump PromptVersion.
func JSONSchema() map[string]any {
	logicNode := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type": map[string]any{"type": "string", "enum": []string{"event", "macro", "sector", "asset"}},
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"type", "text"},
	}

	asset := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ticker":      map[string]any{"type": "string"},
			"name":        map[string]any{"type": "string"},
			"asset_class": map[string]any{"type": "string", "enum": []string{"Equity", "Commodity", "Crypto", "Forex"}},
			"sector":      map[string]any{"type": "string"},
			"prediction":  map[string]any{"type": "string", "enum": []string{"BULLISH", "BEARISH", "NEUTRAL"}},
			"confidence":  map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"reason":      map[string]any{"type": "string", "maxLength": MaxReasonLen},
		},
		"required": []string{"ticker", "name", "asset_class", "sector", "prediction", "confidence", "reason"},
	}

	unitScore := map[string]any{"type": "number", "minimum": 0, "maximum": 1}

	meta := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"llm_model":          map[string]any{"type": "string"},
			"llm_prompt_version": map[string]any{"type": "string"},
			"confidence_components": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"llm_score":             unitScore,
					"sentiment_strength":    unitScore,
					"historical_similarity": unitScore,
				},
				"required": []string{"llm_score", "sentiment_strength", "historical_similarity"},
			},
			"confidence_formula": map[string]any{"type": "string"},
		},
		"required": []string{"llm_model", "llm_prompt_version", "confidence_components", "confidence_formula"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id":           map[string]any{"type": "string"},
			"headline":           map[string]any{"type": "string"},
			"source":             map[string]any{"type": "string"},
			"timestamp":          map[string]any{"type": "string", "format": "date-time"},
			"severity":           map[string]any{"type": "string", "enum": []string{"LOW", "MEDIUM", "HIGH"}},
			"event_sentiment":    map[string]any{"type": "string", "enum": []string{"POSITIVE", "NEGATIVE", "MIXED"}},
			"macro_effect":       map[string]any{"type": "string"},
			"prediction_horizon": map[string]any{"type": "string", "enum": []string{"SHORT_TERM", "MEDIUM_TERM", "LONG_TERM"}},
			"market_pressure":    map[string]any{"type": "string", "enum": []string{"INFLATIONARY", "DEFENSIVE", "RISK_OFF", "RISK_ON", "COST_PRESSURE", "LIQUIDITY"}},
			"logic_chain":        map[string]any{"type": "array", "items": logicNode},
			"affected_assets":    map[string]any{"type": "array", "items": asset},
			"why":                map[string]any{"type": "string", "maxLength": MaxReasonLen},
			"meta":               meta,
		},
		"required": []string{
			"event_id", "headline", "source", "timestamp", "severity",
			"event_sentiment", "macro_effect", "prediction_horizon",
			"market_pressure", "logic_chain", "affected_assets", "why", "meta",
		},
	}
}

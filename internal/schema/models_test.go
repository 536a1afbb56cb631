package schema

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func validEvent() Event {
	return Event{
		EventID:           "evt_20260101000000_abc123",
		Headline:          "OPEC announces surprise production cut",
		Source:            "Reuters",
		Timestamp:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Severity:          SeverityHigh,
		EventSentiment:    SentimentNegative,
		MacroEffect:       "Oil supply shock",
		PredictionHorizon: HorizonShortTerm,
		MarketPressure:    PressureInflationary,
		LogicChain: []LogicNode{
			{Type: "event", Text: "Production cut announced"},
			{Type: "macro", Text: "Supply contracts, prices rise"},
			{Type: "sector", Text: "Energy benefits"},
			{Type: "asset", Text: "XOM rallies"},
		},
		AffectedAssets: []AffectedAsset{{
			Ticker:     "XOM",
			Name:       "Exxon Mobil",
			AssetClass: AssetEquity,
			Sector:     "Energy",
			Prediction: PredictionBullish,
			Confidence: 0.82,
			Reason:     "Higher crude prices lift producer margins",
		}},
		Why:  "Supply cuts tighten the market",
		Meta: DefaultMeta("test-model"),
	}
}

func TestTruncateBoundary(t *testing.T) {
	exact := strings.Repeat("a", MaxReasonLen)
	if got := Truncate(exact, MaxReasonLen); got != exact {
		t.Fatalf("string at the limit must pass unchanged, got %d chars", len(got))
	}

	over := strings.Repeat("a", MaxReasonLen+1)
	got := Truncate(over, MaxReasonLen)
	if len(got) != MaxReasonLen {
		t.Fatalf("truncated length = %d, want %d", len(got), MaxReasonLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated string must end with ellipsis, got %q", got[len(got)-5:])
	}
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	// Multi-byte runes around the cut point must not be split.
	over := strings.Repeat("原油", MaxReasonLen)
	got := Truncate(over, MaxReasonLen)
	if len(got) > MaxReasonLen {
		t.Fatalf("truncated length = %d, want <= %d", len(got), MaxReasonLen)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("truncated string must end with ellipsis, got %q", got)
	}
}

func TestTruncateReasons(t *testing.T) {
	e := validEvent()
	e.Why = strings.Repeat("w", 300)
	e.AffectedAssets[0].Reason = strings.Repeat("r", 250)

	TruncateReasons(&e)

	if len(e.Why) != MaxReasonLen {
		t.Fatalf("why length = %d, want %d", len(e.Why), MaxReasonLen)
	}
	if len(e.AffectedAssets[0].Reason) != MaxReasonLen {
		t.Fatalf("asset reason length = %d, want %d", len(e.AffectedAssets[0].Reason), MaxReasonLen)
	}
}

func TestValidateEventAccepts(t *testing.T) {
	e := validEvent()
	if err := ValidateEvent(&e); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
}

func TestValidateEventRejectsBadEnums(t *testing.T) {
	e := validEvent()
	e.Severity = "CRITICAL"
	e.AffectedAssets[0].Prediction = "UP"

	err := ValidateEvent(&e)
	if err == nil {
		t.Fatal("expected schema violation")
	}
	violation, ok := err.(*SchemaViolationError)
	if !ok {
		t.Fatalf("expected *SchemaViolationError, got %T", err)
	}
	if len(violation.Fields) != 2 {
		t.Fatalf("expected 2 offending fields, got %v", violation.Fields)
	}
}

func TestValidateEventAllowsEmptyAssets(t *testing.T) {
	// A degraded placeholder event carries no asset predictions but must
	// still pass the structural contract.
	e := validEvent()
	e.AffectedAssets = []AffectedAsset{}
	if err := ValidateEvent(&e); err != nil {
		t.Fatalf("event without assets rejected: %v", err)
	}
}

func TestValidateEventRejectsOverlongWhy(t *testing.T) {
	e := validEvent()
	e.Why = strings.Repeat("x", MaxReasonLen+1)
	if err := ValidateEvent(&e); err == nil {
		t.Fatal("overlong why must be rejected")
	}
}

func TestParseEventMalformed(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"event_id": 42}`)); err == nil {
		t.Fatal("expected decode error for mistyped field")
	}
	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error for non-JSON payload")
	}
}

package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"news-impact-alerts/internal/schema"
)

func testEvent(id, headline, source string) schema.Event {
	return schema.Event{
		EventID:           id,
		Headline:          headline,
		Source:            source,
		Timestamp:         time.Now().UTC(),
		Severity:          schema.SeverityMedium,
		EventSentiment:    schema.SentimentMixed,
		MacroEffect:       "test",
		PredictionHorizon: schema.HorizonShortTerm,
		MarketPressure:    schema.PressureRiskOff,
	}
}

func TestInsertEventKeepsNewestFirst(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())

	store.InsertEvent(testEvent("evt_1", "first", "src"))
	store.InsertEvent(testEvent("evt_2", "second", "src"))
	store.InsertEvent(testEvent("evt_3", "third", "src"))

	events := store.Events()
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	for i, want := range []string{"evt_3", "evt_2", "evt_1"} {
		if events[i].EventID != want {
			t.Fatalf("events[%d] = %s, want %s", i, events[i].EventID, want)
		}
	}
}

func TestHasEventKeyCaseSensitive(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())
	store.InsertEvent(testEvent("evt_1", "Fed Raises Rates", "Reuters"))

	if !store.HasEventKey("Fed Raises Rates", "Reuters") {
		t.Fatal("exact pair must match")
	}
	if store.HasEventKey("fed raises rates", "Reuters") {
		t.Fatal("headline comparison must be case-sensitive")
	}
	if store.HasEventKey("Fed Raises Rates", "reuters") {
		t.Fatal("source comparison must be case-sensitive")
	}
}

func TestInsertEventIfAbsentKeepsFirstRecord(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())

	first, created := store.InsertEventIfAbsent(testEvent("evt_1", "same headline", "src"))
	if !created || first.EventID != "evt_1" {
		t.Fatalf("first insert must create: %+v created=%v", first, created)
	}

	second, created := store.InsertEventIfAbsent(testEvent("evt_2", "same headline", "src"))
	if created {
		t.Fatal("duplicate pair must not create a second record")
	}
	if second.EventID != "evt_1" {
		t.Fatalf("duplicate insert must return the stored event, got %s", second.EventID)
	}
	if events, _ := store.Counts(); events != 1 {
		t.Fatalf("stored events = %d, want 1", events)
	}
}

func TestInsertEventIfAbsentConcurrent(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())

	const workers = 16
	createdCh := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created := store.InsertEventIfAbsent(testEvent(fmt.Sprintf("evt_%d", i), "racing headline", "src"))
			createdCh <- created
		}(i)
	}
	wg.Wait()
	close(createdCh)

	creations := 0
	for created := range createdCh {
		if created {
			creations++
		}
	}
	if creations != 1 {
		t.Fatalf("exactly one racer may create the record, got %d", creations)
	}
	if events, _ := store.Counts(); events != 1 {
		t.Fatalf("stored events = %d, want 1", events)
	}
}

func TestAppendValidationIfAbsentKeepsFirstRecord(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())

	first, created := store.AppendValidationIfAbsent(schema.Validation{EventID: "evt_1", Horizon: "1h", ActualChangePercent: 1.2})
	if !created {
		t.Fatal("first append must create")
	}

	second, created := store.AppendValidationIfAbsent(schema.Validation{EventID: "evt_1", Horizon: "1h", ActualChangePercent: -0.4})
	if created {
		t.Fatal("duplicate pair must not create a second record")
	}
	if second.ActualChangePercent != first.ActualChangePercent {
		t.Fatalf("duplicate append must return the stored record: %+v", second)
	}

	// A different horizon is a distinct pair.
	if _, created := store.AppendValidationIfAbsent(schema.Validation{EventID: "evt_1", Horizon: "6h"}); !created {
		t.Fatal("distinct horizon must create its own record")
	}
	if _, validations := store.Counts(); validations != 2 {
		t.Fatalf("stored validations = %d, want 2", validations)
	}
}

func TestAppendValidationIfAbsentConcurrent(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())

	const workers = 16
	createdCh := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, created := store.AppendValidationIfAbsent(schema.Validation{
				EventID: "evt_1", Horizon: "24h", ActualChangePercent: float64(i),
			})
			createdCh <- created
		}(i)
	}
	wg.Wait()
	close(createdCh)

	creations := 0
	for created := range createdCh {
		if created {
			creations++
		}
	}
	if creations != 1 {
		t.Fatalf("exactly one racer may create the record, got %d", creations)
	}
	if _, validations := store.Counts(); validations != 1 {
		t.Fatalf("stored validations = %d, want 1", validations)
	}
}

func TestValidationForEvent(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())

	if _, ok := store.ValidationForEvent("evt_1"); ok {
		t.Fatal("unvalidated event must not resolve")
	}

	store.AppendValidation(schema.Validation{EventID: "evt_1", Horizon: "1h"})
	store.AppendValidation(schema.Validation{EventID: "evt_1", Horizon: "24h"})

	v, ok := store.ValidationForEvent("evt_1")
	if !ok || v.Horizon != "1h" {
		t.Fatalf("first recorded validation expected, got %+v ok=%v", v, ok)
	}
}

func TestValidationsAppendOrder(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())

	store.AppendValidation(schema.Validation{EventID: "evt_1", Horizon: "1h"})
	store.AppendValidation(schema.Validation{EventID: "evt_1", Horizon: "24h"})
	store.AppendValidation(schema.Validation{EventID: "evt_2", Horizon: "1h"})

	validations := store.Validations()
	if len(validations) != 3 {
		t.Fatalf("len = %d, want 3", len(validations))
	}
	if validations[0].Horizon != "1h" || validations[0].EventID != "evt_1" {
		t.Fatal("validations must keep creation order")
	}

	if _, ok := store.ValidationFor("evt_1", "24h"); !ok {
		t.Fatal("pair lookup failed")
	}
	if _, ok := store.ValidationFor("evt_1", "6h"); ok {
		t.Fatal("unexpected record for unvalidated horizon")
	}
}

func TestEventByID(t *testing.T) {
	store := NewStore(Options{}, zerolog.Nop())
	store.InsertEvent(testEvent("evt_1", "a", "s"))

	if _, ok := store.EventByID("evt_1"); !ok {
		t.Fatal("lookup by id failed")
	}
	if _, ok := store.EventByID("evt_missing"); ok {
		t.Fatal("unknown id must not resolve")
	}
}

func TestBackupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backup, err := NewBackup(dir)
	if err != nil {
		t.Fatalf("NewBackup: %v", err)
	}

	store := NewStore(Options{Backup: backup}, zerolog.Nop())
	store.InsertEvent(testEvent("evt_1", "older", "src"))
	store.InsertEvent(testEvent("evt_2", "newer", "src"))
	store.AppendValidation(schema.Validation{EventID: "evt_1", Horizon: "24h", Status: schema.StatusCorrect})

	events, err := backup.LoadEvents()
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	validations, err := backup.LoadValidations()
	if err != nil {
		t.Fatalf("LoadValidations: %v", err)
	}

	restored := NewStore(Options{}, zerolog.Nop())
	restored.Restore(events, validations)

	got := restored.Events()
	if len(got) != 2 || got[0].EventID != "evt_2" {
		t.Fatalf("restored order wrong: %+v", got)
	}
	if _, ok := restored.ValidationFor("evt_1", "24h"); !ok {
		t.Fatal("restored validation missing")
	}
}

func TestBackupLoadMissingFilesIsEmpty(t *testing.T) {
	backup, err := NewBackup(t.TempDir())
	if err != nil {
		t.Fatalf("NewBackup: %v", err)
	}

	events, err := backup.LoadEvents()
	if err != nil {
		t.Fatalf("missing events file must not error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty collection, got %d", len(events))
	}
}

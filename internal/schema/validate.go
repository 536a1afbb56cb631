package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SchemaViolationError reports which event fields fail the contract.
type SchemaViolationError struct {
	Fields []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: %s", strings.Join(e.Fields, ", "))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateEvent checks an event candidate against the contract. Failures are
// reported as a *SchemaViolationError naming the offending fields.
func ValidateEvent(e *Event) error {
	if err := validate.Struct(e); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("validate event: %w", err)
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			// Strip the leading "Event." from the namespace.
			ns := fe.Namespace()
			if idx := strings.IndexByte(ns, '.'); idx >= 0 {
				ns = ns[idx+1:]
			}
			fields = append(fields, fmt.Sprintf("%s (%s)", ns, fe.Tag()))
		}
		return &SchemaViolationError{Fields: fields}
	}
	return nil
}

// ParseEvent converts a raw provider payload into a typed Event in one
// explicit fallible step. It does not validate the contract; callers run
// ValidateEvent after post-processing.
func ParseEvent(raw json.RawMessage) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, fmt.Errorf("decode event payload: %w", err)
	}
	return e, nil
}

package models

import (
	"fmt"
	"strconv"
)

// ConditionField identifies the media attribute a condition reads
type ConditionField string

const (
	FieldType             ConditionField = "type"
	FieldTitle            ConditionField = "title"
	FieldFileSize         ConditionField = "file_size"
	FieldResolution       ConditionField = "resolution"
	FieldCodec            ConditionField = "codec"
	FieldPlayCount        ConditionField = "play_count"
	FieldDaysSinceAdded   ConditionField = "days_since_added"
	FieldDaysSinceWatched ConditionField = "days_since_watched"
	FieldNeverWatched     ConditionField = "never_watched"
)

// ConditionOperator identifies the comparison a condition performs
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// FieldKind classifies a condition field by the operand type it produces
type FieldKind int

const (
	KindString FieldKind = iota
	KindNumeric
	KindBool
)

// fieldKinds is the closed set of supported fields and their operand kinds
var fieldKinds = map[ConditionField]FieldKind{
	FieldType:             KindString,
	FieldTitle:            KindString,
	FieldFileSize:         KindNumeric,
	FieldResolution:       KindString,
	FieldCodec:            KindString,
	FieldPlayCount:        KindNumeric,
	FieldDaysSinceAdded:   KindNumeric,
	FieldDaysSinceWatched: KindNumeric,
	FieldNeverWatched:     KindBool,
}

// KindOf returns the operand kind for a field, false if the field is unknown
func KindOf(field ConditionField) (FieldKind, bool) {
	k, ok := fieldKinds[field]
	return k, ok
}

// Condition is one field/operator/value predicate within a rule
type Condition struct {
	Field    ConditionField    `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    string            `json:"value"`
}

// Validate rejects conditions whose operator does not fit the field's operand
// kind, so rules cannot be saved with comparisons that would silently
// evaluate false at scan time.
func (c Condition) Validate() error {
	kind, ok := fieldKinds[c.Field]
	if !ok {
		return fmt.Errorf("unknown condition field %q", c.Field)
	}

	switch c.Operator {
	case OperatorEquals, OperatorNotEquals:
		if kind == KindNumeric {
			if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
				return fmt.Errorf("field %q requires a numeric value, got %q", c.Field, c.Value)
			}
		}
		if kind == KindBool {
			if _, err := strconv.ParseBool(c.Value); err != nil {
				return fmt.Errorf("field %q requires a boolean value, got %q", c.Field, c.Value)
			}
		}
		return nil
	case OperatorGreaterThan, OperatorLessThan:
		if kind != KindNumeric {
			return fmt.Errorf("operator %q requires a numeric field, %q is not", c.Operator, c.Field)
		}
		if _, err := strconv.ParseFloat(c.Value, 64); err != nil {
			return fmt.Errorf("operator %q requires a numeric value, got %q", c.Operator, c.Value)
		}
		return nil
	case OperatorContains, OperatorNotContains:
		if kind != KindString {
			return fmt.Errorf("operator %q requires a string field, %q is not", c.Operator, c.Field)
		}
		return nil
	case OperatorIsEmpty, OperatorIsNotEmpty:
		return nil
	}

	return fmt.Errorf("unknown operator %q", c.Operator)
}

// Rule decides what happens to media items matching all of its conditions.
// Rules are evaluated in stable name order and the first match wins.
type Rule struct {
	ID   uint64 `boltholdKey:"ID"`
	Name string `boltholdIndex:"Name"`

	// MediaType filters which items the rule applies to; MediaTypeAll (or
	// empty) applies to everything.
	MediaType  MediaType
	Conditions []Condition
	Action     RuleAction
	Enabled    bool `boltholdIndex:"Enabled"`
}

// Validate checks the rule is well formed enough to save
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	switch r.Action {
	case RuleActionFlag, RuleActionDelete, RuleActionNotify:
	default:
		return fmt.Errorf("unknown rule action %q", r.Action)
	}
	switch r.MediaType {
	case MediaTypeMovie, MediaTypeShow, MediaTypeAll, "":
	default:
		return fmt.Errorf("unknown media type filter %q", r.MediaType)
	}
	for i, cond := range r.Conditions {
		if err := cond.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i+1, err)
		}
	}
	return nil
}

// AppliesTo reports whether the rule's media-type filter admits the item
func (r *Rule) AppliesTo(mediaType MediaType) bool {
	return r.MediaType == "" || r.MediaType == MediaTypeAll || r.MediaType == mediaType
}

package rules

import (
	"io"
	"testing"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

func testEvaluator(now time.Time) *Evaluator {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	e := NewEvaluator(logger)
	e.now = func() time.Time { return now }
	return e
}

func TestEvaluateOperators(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	watched := now.Add(-10 * 24 * time.Hour)

	item := &models.Media{
		Type:          models.MediaTypeMovie,
		Title:         "The Grand Budapest Hotel",
		FileSize:      5_000_000_000,
		Resolution:    "1080p",
		Codec:         "x265",
		PlayCount:     3,
		AddedAt:       now.Add(-30 * 24 * time.Hour),
		LastWatchedAt: &watched,
	}

	e := testEvaluator(now)

	cases := []struct {
		name string
		cond models.Condition
		want bool
	}{
		{"equals string", models.Condition{Field: models.FieldResolution, Operator: models.OperatorEquals, Value: "1080p"}, true},
		{"equals string miss", models.Condition{Field: models.FieldResolution, Operator: models.OperatorEquals, Value: "720p"}, false},
		{"equals numeric", models.Condition{Field: models.FieldPlayCount, Operator: models.OperatorEquals, Value: "3"}, true},
		{"not_equals", models.Condition{Field: models.FieldCodec, Operator: models.OperatorNotEquals, Value: "x264"}, true},
		{"greater_than file size", models.Condition{Field: models.FieldFileSize, Operator: models.OperatorGreaterThan, Value: "4000000000"}, true},
		{"less_than play count", models.Condition{Field: models.FieldPlayCount, Operator: models.OperatorLessThan, Value: "2"}, false},
		{"greater_than non-numeric value is false", models.Condition{Field: models.FieldFileSize, Operator: models.OperatorGreaterThan, Value: "big"}, false},
		{"greater_than string field is false", models.Condition{Field: models.FieldTitle, Operator: models.OperatorGreaterThan, Value: "1"}, false},
		{"contains case-insensitive", models.Condition{Field: models.FieldTitle, Operator: models.OperatorContains, Value: "budapest"}, true},
		{"not_contains", models.Condition{Field: models.FieldTitle, Operator: models.OperatorNotContains, Value: "tokyo"}, true},
		{"contains on numeric field is false", models.Condition{Field: models.FieldPlayCount, Operator: models.OperatorContains, Value: "3"}, false},
		{"is_not_empty", models.Condition{Field: models.FieldCodec, Operator: models.OperatorIsNotEmpty}, true},
		{"days_since_added", models.Condition{Field: models.FieldDaysSinceAdded, Operator: models.OperatorGreaterThan, Value: "29"}, true},
		{"days_since_watched", models.Condition{Field: models.FieldDaysSinceWatched, Operator: models.OperatorLessThan, Value: "11"}, true},
		{"never_watched false", models.Condition{Field: models.FieldNeverWatched, Operator: models.OperatorEquals, Value: "true"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Evaluate(item, tc.cond); got != tc.want {
				t.Errorf("Evaluate(%+v) = %v, want %v", tc.cond, got, tc.want)
			}
		})
	}
}

func TestEvaluateNeverWatched(t *testing.T) {
	e := testEvaluator(time.Now())

	item := &models.Media{Title: "Untouched", AddedAt: time.Now().Add(-48 * time.Hour)}
	cond := models.Condition{Field: models.FieldNeverWatched, Operator: models.OperatorEquals, Value: "true"}
	if !e.Evaluate(item, cond) {
		t.Error("Item with no plays and no last-watched should be never_watched")
	}

	// days_since_watched has no source data, so comparisons never hold
	cond = models.Condition{Field: models.FieldDaysSinceWatched, Operator: models.OperatorGreaterThan, Value: "0"}
	if e.Evaluate(item, cond) {
		t.Error("days_since_watched with no watch history should not match")
	}

	// but is_empty does
	cond = models.Condition{Field: models.FieldDaysSinceWatched, Operator: models.OperatorIsEmpty}
	if !e.Evaluate(item, cond) {
		t.Error("days_since_watched with no watch history should be empty")
	}
}

func TestEvaluateUnknownFieldAndOperator(t *testing.T) {
	e := testEvaluator(time.Now())
	item := &models.Media{Title: "Anything"}

	// Unknown field evaluates as a missing value, never panics
	cond := models.Condition{Field: "bitrate", Operator: models.OperatorEquals, Value: "5"}
	if e.Evaluate(item, cond) {
		t.Error("Unknown field should not match equals")
	}
	cond = models.Condition{Field: "bitrate", Operator: models.OperatorIsEmpty}
	if !e.Evaluate(item, cond) {
		t.Error("Unknown field should be empty")
	}

	// Unknown operator evaluates false, never panics
	cond = models.Condition{Field: models.FieldTitle, Operator: "matches_regex", Value: ".*"}
	if e.Evaluate(item, cond) {
		t.Error("Unknown operator should evaluate false")
	}
}

func TestEvaluateNotEqualsMissingValue(t *testing.T) {
	e := testEvaluator(time.Now())
	item := &models.Media{}

	cond := models.Condition{Field: "bitrate", Operator: models.OperatorNotEquals, Value: "5"}
	if e.Evaluate(item, cond) {
		t.Error("not_equals on a missing value should be false, not vacuously true")
	}
}

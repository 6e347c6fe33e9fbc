package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// Evaluator evaluates single rule conditions against media items.
// Derived fields (days_since_added, days_since_watched, never_watched) are
// computed from "now" at evaluation time, so results for those fields drift
// as wall-clock time advances.
type Evaluator struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewEvaluator creates a new condition evaluator
func NewEvaluator(logger *logrus.Logger) *Evaluator {
	return &Evaluator{
		logger: logger,
		now:    time.Now,
	}
}

// fieldValue is the extracted operand of one condition evaluation
type fieldValue struct {
	str     string
	num     float64
	boolean bool

	isNum   bool
	isBool  bool
	missing bool // unknown field, or derived field with no source data
}

// Evaluate returns whether the condition holds for the item. Evaluation is
// deliberately lenient: an unknown field yields a missing value, a type
// mismatch makes the comparison false, and an unknown operator is logged and
// evaluates false. Rules saved through the store are validated up front, so
// these paths only trigger for rules that predate validation.
func (e *Evaluator) Evaluate(item *models.Media, cond models.Condition) bool {
	val := e.fieldOf(item, cond.Field)

	switch cond.Operator {
	case models.OperatorEquals:
		return e.equals(val, cond.Value)
	case models.OperatorNotEquals:
		return !val.missing && !e.equals(val, cond.Value)
	case models.OperatorGreaterThan:
		want, err := strconv.ParseFloat(cond.Value, 64)
		if err != nil || !val.isNum {
			return false
		}
		return val.num > want
	case models.OperatorLessThan:
		want, err := strconv.ParseFloat(cond.Value, 64)
		if err != nil || !val.isNum {
			return false
		}
		return val.num < want
	case models.OperatorContains:
		if val.missing || val.isNum || val.isBool {
			return false
		}
		return strings.Contains(strings.ToLower(val.str), strings.ToLower(cond.Value))
	case models.OperatorNotContains:
		if val.missing || val.isNum || val.isBool {
			return false
		}
		return !strings.Contains(strings.ToLower(val.str), strings.ToLower(cond.Value))
	case models.OperatorIsEmpty:
		return val.missing || (!val.isNum && !val.isBool && val.str == "")
	case models.OperatorIsNotEmpty:
		return !val.missing && (val.isNum || val.isBool || val.str != "")
	}

	e.logger.WithFields(logrus.Fields{
		"operator": cond.Operator,
		"field":    cond.Field,
	}).Warn("Unknown condition operator, evaluating as false")
	return false
}

func (e *Evaluator) equals(val fieldValue, want string) bool {
	if val.missing {
		return false
	}
	if val.isNum {
		w, err := strconv.ParseFloat(want, 64)
		return err == nil && val.num == w
	}
	if val.isBool {
		w, err := strconv.ParseBool(want)
		return err == nil && val.boolean == w
	}
	return val.str == want
}

// fieldOf extracts the condition operand from the item
func (e *Evaluator) fieldOf(item *models.Media, field models.ConditionField) fieldValue {
	switch field {
	case models.FieldType:
		return fieldValue{str: string(item.Type)}
	case models.FieldTitle:
		return fieldValue{str: item.Title}
	case models.FieldFileSize:
		return fieldValue{num: float64(item.FileSize), isNum: true}
	case models.FieldResolution:
		return fieldValue{str: item.Resolution}
	case models.FieldCodec:
		return fieldValue{str: item.Codec}
	case models.FieldPlayCount:
		return fieldValue{num: float64(item.PlayCount), isNum: true}
	case models.FieldDaysSinceAdded:
		if item.AddedAt.IsZero() {
			return fieldValue{missing: true}
		}
		days := e.now().Sub(item.AddedAt).Hours() / 24
		return fieldValue{num: days, isNum: true}
	case models.FieldDaysSinceWatched:
		if item.LastWatchedAt == nil {
			return fieldValue{missing: true}
		}
		days := e.now().Sub(*item.LastWatchedAt).Hours() / 24
		return fieldValue{num: days, isNum: true}
	case models.FieldNeverWatched:
		never := item.PlayCount == 0 && item.LastWatchedAt == nil
		return fieldValue{boolean: never, isBool: true}
	}

	e.logger.WithField("field", field).Warn("Unknown condition field")
	return fieldValue{missing: true}
}

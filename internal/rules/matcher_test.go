package rules

import (
	"io"
	"testing"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

func testMatcher() *Matcher {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMatcher(NewEvaluator(logger), logger)
}

func sizeRule(name string, action models.RuleAction) *models.Rule {
	return &models.Rule{
		Name:    name,
		Enabled: true,
		Action:  action,
		Conditions: []models.Condition{
			{Field: models.FieldFileSize, Operator: models.OperatorGreaterThan, Value: "1000"},
		},
	}
}

func TestFirstMatchWins(t *testing.T) {
	m := testMatcher()
	item := &models.Media{Title: "Big File", Type: models.MediaTypeMovie, FileSize: 5000}

	// Both rules match; the one ordered first by name decides, regardless of
	// how specific the later rule is.
	r1 := sizeRule("01-flag-large", models.RuleActionFlag)
	r2 := sizeRule("02-delete-large", models.RuleActionDelete)
	r2.Conditions = append(r2.Conditions, models.Condition{
		Field: models.FieldType, Operator: models.OperatorEquals, Value: "movie",
	})

	matched := m.Match(item, []*models.Rule{r2, r1})
	if matched == nil {
		t.Fatal("Expected a match")
	}
	if matched.Action != models.RuleActionFlag {
		t.Errorf("Expected first rule by name to win (flag), got %s", matched.Action)
	}
}

func TestProtectedItemNeverMatches(t *testing.T) {
	m := testMatcher()
	item := &models.Media{Title: "Keeper", Type: models.MediaTypeMovie, FileSize: 5000, Protected: true}

	if matched := m.Match(item, []*models.Rule{sizeRule("r", models.RuleActionDelete)}); matched != nil {
		t.Errorf("Protected item matched rule %q", matched.Name)
	}
}

func TestEmptyConditionListNeverMatches(t *testing.T) {
	m := testMatcher()
	item := &models.Media{Title: "Anything", Type: models.MediaTypeShow}

	rule := &models.Rule{Name: "catch-all", Enabled: true, Action: models.RuleActionDelete}
	if matched := m.Match(item, []*models.Rule{rule}); matched != nil {
		t.Error("Rule with no conditions should never match")
	}
}

func TestMediaTypeFilter(t *testing.T) {
	m := testMatcher()
	show := &models.Media{Title: "Some Show", Type: models.MediaTypeShow, FileSize: 5000}

	movieOnly := sizeRule("movies", models.RuleActionDelete)
	movieOnly.MediaType = models.MediaTypeMovie
	all := sizeRule("z-all", models.RuleActionFlag)
	all.MediaType = models.MediaTypeAll

	matched := m.Match(show, []*models.Rule{movieOnly, all})
	if matched == nil || matched.Name != "z-all" {
		t.Errorf("Expected type-filtered rule to be skipped, got %+v", matched)
	}
}

func TestDisabledRuleSkipped(t *testing.T) {
	m := testMatcher()
	item := &models.Media{Title: "Big File", Type: models.MediaTypeMovie, FileSize: 5000}

	disabled := sizeRule("a-disabled", models.RuleActionDelete)
	disabled.Enabled = false
	enabled := sizeRule("b-enabled", models.RuleActionFlag)

	matched := m.Match(item, []*models.Rule{disabled, enabled})
	if matched == nil || matched.Name != "b-enabled" {
		t.Errorf("Expected disabled rule to be skipped, got %+v", matched)
	}
}

func TestAllConditionsMustHold(t *testing.T) {
	m := testMatcher()
	watched := time.Now().Add(-time.Hour)
	item := &models.Media{Title: "Recently Watched", Type: models.MediaTypeMovie, FileSize: 5000, PlayCount: 1, LastWatchedAt: &watched}

	rule := sizeRule("and-semantics", models.RuleActionDelete)
	rule.Conditions = append(rule.Conditions, models.Condition{
		Field: models.FieldNeverWatched, Operator: models.OperatorEquals, Value: "true",
	})

	if matched := m.Match(item, []*models.Rule{rule}); matched != nil {
		t.Error("Rule should not match when one condition fails")
	}
}

package rules

import (
	"sort"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// Matcher applies the enabled rule set to media items with first-match-wins
// semantics: rule name order is precedence order, and once a rule matches an
// item no later rule is evaluated for it in the same pass.
type Matcher struct {
	evaluator *Evaluator
	logger    *logrus.Logger
}

// NewMatcher creates a new rule matcher
func NewMatcher(evaluator *Evaluator, logger *logrus.Logger) *Matcher {
	return &Matcher{
		evaluator: evaluator,
		logger:    logger,
	}
}

// Match returns the first enabled rule whose conditions all hold for the
// item, or nil if no rule matches. Protected items never match anything.
func (m *Matcher) Match(item *models.Media, enabledRules []*models.Rule) *models.Rule {
	if item.Protected || item.Status == models.StatusProtected {
		return nil
	}

	rules := make([]*models.Rule, len(enabledRules))
	copy(rules, enabledRules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !rule.AppliesTo(item.Type) {
			continue
		}
		// A rule with no conditions matches nothing
		if len(rule.Conditions) == 0 {
			continue
		}

		if m.allHold(item, rule) {
			m.logger.WithFields(logrus.Fields{
				"media_id": item.ID,
				"title":    item.Title,
				"rule":     rule.Name,
				"action":   rule.Action,
			}).Debug("Rule matched")
			return rule
		}
	}

	return nil
}

func (m *Matcher) allHold(item *models.Media, rule *models.Rule) bool {
	for _, cond := range rule.Conditions {
		if !m.evaluator.Evaluate(item, cond) {
			return false
		}
	}
	return true
}

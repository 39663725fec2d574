package enhance

import (
	"regexp"
	"slices"
	"strings"

	"note-enhancer/internal/domain"
)

// Reply is what a classification rule inspects.
type Reply struct {
	Text      string
	Original  string
	Operation domain.Operation
}

// Rule disqualifies a reply as a rewrite when Match returns true.
type Rule struct {
	Name  string
	Match func(p Policy, r Reply) bool
}

const (
	RuleEmptyRewrite      = "empty_rewrite"
	RuleRefusalPhrase     = "refusal_phrase"
	RuleMetaCommentary    = "meta_commentary_overlong"
	RuleAdvisoryQuestions = "advisory_questions"
	RuleExplanatoryLeadIn = "explanatory_lead_in_overlong"
)

// DefaultRules is evaluated in order; the first match names the verdict.
var DefaultRules = []Rule{
	{Name: RuleEmptyRewrite, Match: func(p Policy, r Reply) bool {
		return normalize(p, r.Text) == ""
	}},
	{Name: RuleRefusalPhrase, Match: func(p Policy, r Reply) bool {
		return slices.ContainsFunc(p.RefusalPatterns, func(re *regexp.Regexp) bool { return re.MatchString(r.Text) })
	}},
	{Name: RuleMetaCommentary, Match: func(p Policy, r Reply) bool {
		return p.MetaMarkers != nil && p.MetaMarkers.MatchString(r.Text) && exceedsLengthRatio(p, r)
	}},
	{Name: RuleAdvisoryQuestions, Match: func(p Policy, r Reply) bool {
		return strings.Count(r.Text, "?") > p.MaxQuestionMarks && p.AdvisoryMarkers != nil && p.AdvisoryMarkers.MatchString(r.Text)
	}},
	{Name: RuleExplanatoryLeadIn, Match: func(p Policy, r Reply) bool {
		return p.ExplanatoryOpener != nil && p.ExplanatoryOpener.MatchString(r.Text) && exceedsLengthRatio(p, r)
	}},
}

type Classification struct {
	IsEnhancement bool   `json:"is_enhancement"`
	Payload       string `json:"payload"`
	Rule          string `json:"rule,omitempty"`
}

// Classify decides whether reply is a genuine rewrite of original. Suggestions
// carry the trimmed reply; enhancements carry the raw reply for Normalize.
func (e *Engine) Classify(reply, original string, op domain.Operation) Classification {
	r := Reply{
		Text:      strings.TrimSpace(reply),
		Original:  prepare(original),
		Operation: op,
	}
	for _, rule := range e.policy.Rules {
		if rule.Match(e.policy, r) {
			return Classification{Payload: r.Text, Rule: rule.Name}
		}
	}
	return Classification{IsEnhancement: true, Payload: reply}
}

func exceedsLengthRatio(p Policy, r Reply) bool {
	limit := float64(len([]rune(r.Original))) * p.lengthRatio(r.Operation)
	return float64(len([]rune(r.Text))) > limit
}

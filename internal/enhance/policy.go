package enhance

import (
	"regexp"
	"slices"
	"strings"

	"note-enhancer/internal/domain"
)

// WordLookup reports whether word is a real word worth enhancing on its own.
type WordLookup func(word string) bool

// Policy holds the heuristic constants of the engine. The values in
// DefaultPolicy are tuning choices, not correctness guarantees.
type Policy struct {
	MinLength        int
	MaxRepeatRun     int
	ShortTokenMaxLen int
	IsCommonWord     WordLookup

	LengthRatios       map[domain.Operation]float64
	DefaultLengthRatio float64

	RefusalPatterns   []*regexp.Regexp
	MetaMarkers       *regexp.Regexp
	AdvisoryMarkers   *regexp.Regexp
	MaxQuestionMarks  int
	ExplanatoryOpener *regexp.Regexp

	LeadInPatterns []*regexp.Regexp

	Rules []Rule
}

var commonShortWords = strings.Fields("hi hey hello thanks yes no ok okay todo note notes idea ideas plan list meet call email buy milk bread work home task tasks draft test bug fix done later today event party travel")

// CommonWords is the default WordLookup backed by a small fixed word list.
func CommonWords(word string) bool {
	return slices.Contains(commonShortWords, strings.ToLower(word))
}

var (
	refusalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)does(?: not|n't) (?:seem to |appear to )?(?:convey|contain|have) (?:a |any )?(?:coherent|clear|discernible) meaning`),
		regexp.MustCompile(`(?i)\b(?:need|provide|share|give me|have) (?:some |a bit |a little |any )?more (?:context|information|details)\b`),
		regexp.MustCompile(`(?i)too short to (?:enhance|expand|summari[sz]e|improve|rewrite)`),
		regexp.MustCompile(`(?i)\b(?:cannot|can't|can not|unable to|am not able to) (?:meaningfully )?(?:expand|summari[sz]e|improve|enhance|rewrite|correct|elaborate)`),
		regexp.MustCompile(`(?i)(?:appears|seems) to be (?:a )?(?:random|gibberish|nonsensical|placeholder)`),
		regexp.MustCompile(`(?i)\b(?:is not|isn't|not) (?:a )?(?:meaningful|coherent|complete|valid) (?:text|sentence|phrase|word)`),
		regexp.MustCompile(`(?i)\bcould you (?:please )?(?:clarify|provide|share|explain)`),
		regexp.MustCompile(`(?i)\b(?:it is|it's) (?:unclear|not clear) what`),
		regexp.MustCompile(`(?i)\bas an ai\b`),
	}

	metaMarkers       = regexp.MustCompile(`(?i)\b(?:this|the|your) (?:text|term|phrase|word|input|sentence|note|content)\b`)
	advisoryMarkers   = regexp.MustCompile(`(?i)\b(?:please|you should|you could|you might|i recommend|i suggest|i would suggest|consider)\b`)
	explanatoryOpener = regexp.MustCompile(`(?i)^(?:the|this|here|unfortunately|it appears|it seems|i'm sorry|i am sorry|sorry)\b`)

	leadInPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:(?:certainly|sure|of course|okay)[,.!]?\s+)?here(?:'s| is)(?: the| an| a| your)?(?: (?:improved|enhanced|corrected|revised|rewritten|expanded|summari[sz]ed|polished))? (?:version|text|summary|note)(?: of (?:the|your) (?:text|note))?\s*:`),
		regexp.MustCompile(`(?i)^(?:the )?(?:improved|enhanced|corrected|revised|rewritten|expanded|summari[sz]ed) (?:version|text|note)\s*:`),
		regexp.MustCompile(`(?i)^summary\s*:`),
	}
)

// DefaultPolicy returns a fresh copy of the default tuning.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:        10,
		MaxRepeatRun:     5,
		ShortTokenMaxLen: 6,
		IsCommonWord:     CommonWords,
		LengthRatios: map[domain.Operation]float64{
			domain.OperationSummarize:      2,
			domain.OperationImproveGrammar: 3,
			domain.OperationExpand:         5,
		},
		DefaultLengthRatio: 3,
		RefusalPatterns:    append([]*regexp.Regexp(nil), refusalPatterns...),
		MetaMarkers:        metaMarkers,
		AdvisoryMarkers:    advisoryMarkers,
		MaxQuestionMarks:   1,
		ExplanatoryOpener:  explanatoryOpener,
		LeadInPatterns:     append([]*regexp.Regexp(nil), leadInPatterns...),
		Rules:              append([]Rule(nil), DefaultRules...),
	}
}

func (p Policy) lengthRatio(op domain.Operation) float64 {
	if r, ok := p.LengthRatios[op]; ok && r > 0 {
		return r
	}
	return p.DefaultLengthRatio
}

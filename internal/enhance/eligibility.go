package enhance

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	ReasonRepetitive = "repetitive characters, not meaningful text"
	ReasonRandom     = "appears to be random characters"
	ReasonNoText     = "only numbers or special characters, no text content"
	ReasonTooShort   = "too short to enhance meaningfully, minimum 10 characters"
)

var shortTokenRe = regexp.MustCompile(`^[a-zA-Z]+$`)

type Verdict struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// Analyze decides whether content is worth sending to the generation service.
// Shape checks run before the length floor so short inputs get the most
// specific reason; blank content is simply too short.
func (e *Engine) Analyze(content string) Verdict {
	text := prepare(content)
	p := e.policy

	if text == "" {
		return Verdict{Reason: ReasonTooShort}
	}
	if hasRepeatRun(text, p.MaxRepeatRun) {
		return Verdict{Reason: ReasonRepetitive}
	}
	if n := len([]rune(text)); n <= p.ShortTokenMaxLen && shortTokenRe.MatchString(text) {
		if p.IsCommonWord == nil || !p.IsCommonWord(text) {
			return Verdict{Reason: ReasonRandom}
		}
	}
	if !hasLetter(text) {
		return Verdict{Reason: ReasonNoText}
	}
	if len([]rune(text)) < p.MinLength {
		return Verdict{Reason: ReasonTooShort}
	}
	return Verdict{Eligible: true}
}

func prepare(content string) string {
	return strings.TrimSpace(norm.NFC.String(content))
}

func hasRepeatRun(text string, limit int) bool {
	var prev rune
	run := 0
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= limit {
			return true
		}
		prev = r
	}
	return false
}

func hasLetter(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

package enhance

import "strings"

// Normalize strips lead-in phrases and at most one layer of wrapping quotes
// from an accepted rewrite. Interior text is never touched.
func (e *Engine) Normalize(text string) string {
	return normalize(e.policy, text)
}

func normalize(p Policy, text string) string {
	text = strings.TrimSpace(text)
	unwrapped := false
	if inner, ok := unwrapQuotes(text); ok {
		text, unwrapped = inner, true
	}
	for _, re := range p.LeadInPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	if !unwrapped {
		if inner, ok := unwrapQuotes(text); ok {
			text = inner
		}
	}
	return strings.TrimSpace(text)
}

// unwrapQuotes removes one layer of quotes only when the opening and closing
// quote pair with each other, so `"a," she said, "b"` stays as it is.
func unwrapQuotes(text string) (string, bool) {
	if len(text) < 2 {
		return text, false
	}
	q := text[0]
	if (q != '"' && q != '\'') || text[len(text)-1] != q {
		return text, false
	}
	core := text
	for len(core) >= 2 && core[0] == q && core[len(core)-1] == q {
		core = core[1 : len(core)-1]
	}
	if hasBareQuote(core, q) {
		return text, false
	}
	return strings.TrimSpace(text[1 : len(text)-1]), true
}

// hasBareQuote reports a q inside text. An apostrophe between two letters
// (it's, don't) is not a quote.
func hasBareQuote(text string, q byte) bool {
	for i := 0; i < len(text); i++ {
		if text[i] != q {
			continue
		}
		if q == '\'' && i > 0 && i < len(text)-1 && isWordByte(text[i-1]) && isWordByte(text[i+1]) {
			continue
		}
		return true
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 0x80 || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

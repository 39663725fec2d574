package enhance

import (
	"strings"

	"note-enhancer/internal/domain"
)

const SystemPrompt = `You are a note editing engine.
You rewrite the note you are given and output ONLY the rewritten note.
No preface. No explanation. No commentary. No surrounding quotes.`

const (
	improveGrammarTemplate = `Improve the grammar and style of this text: "{{CONTENT}}". Return only the improved text, with no explanation or commentary.`
	summarizeTemplate      = `Summarize this text: "{{CONTENT}}". Return only the summary, with no explanation or commentary.`
	expandTemplate         = `Expand this text with more details: "{{CONTENT}}". Return only the expanded text, with no explanation or commentary.`
)

var promptTemplates = map[domain.Operation]string{
	domain.OperationImproveGrammar: improveGrammarTemplate,
	domain.OperationSummarize:      summarizeTemplate,
	domain.OperationExpand:         expandTemplate,
}

func RenderTemplate(tpl string, vars map[string]string) string {
	rendered := tpl
	for k, v := range vars {
		rendered = strings.ReplaceAll(rendered, "{{"+k+"}}", v)
	}
	return rendered
}

// BuildPrompt expects op to be validated already; an unknown op yields "".
func (e *Engine) BuildPrompt(content string, op domain.Operation) string {
	tpl, ok := promptTemplates[op]
	if !ok {
		return ""
	}
	return RenderTemplate(tpl, map[string]string{"CONTENT": content})
}

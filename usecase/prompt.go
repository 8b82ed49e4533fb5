package usecase

import (
	"strings"

	"github.com/satriahrh/synapse/domain"
)

const DefaultPersona = "You are a research assistant helping a user understand scientific papers."

const promptDirectives = `Instructions:
1. Answer based on the context provided.
2. If the answer is not in the context, use your general knowledge but mention that it's not in the papers.
3. Be concise and helpful.`

// NewPromptRequest picks the persona (override or default) and packs the
// inputs. An override made only of whitespace counts as absent.
func NewPromptRequest(message, contextText, systemInstruction string, history []domain.HistoryEntry) domain.PromptRequest {
	if strings.TrimSpace(systemInstruction) == "" {
		systemInstruction = DefaultPersona
	}
	return domain.PromptRequest{
		SystemInstruction: systemInstruction,
		ContextText:       contextText,
		History:           history,
		UserMessage:       message,
	}
}

// AssemblePrompt renders the single outbound message. Persona and context
// travel inside the message text, not a system channel.
func AssemblePrompt(req domain.PromptRequest) string {
	persona := req.SystemInstruction
	if strings.TrimSpace(persona) == "" {
		persona = DefaultPersona
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nContext from selected papers:\n")
	b.WriteString(req.ContextText)
	b.WriteString("\n\n")
	b.WriteString(promptDirectives)
	b.WriteString("\n\nUser Question: ")
	b.WriteString(req.UserMessage)
	return b.String()
}

func ELI5Prompt(text string) string {
	return "Explain the following text like I'm 5 years old. Keep it simple, fun, and use analogies if possible:\n\n" + text
}

func SummaryPrompt(text string) string {
	return "Provide a comprehensive, professional academic summary of the following text. Highlight key findings, methodology, and implications:\n\n" + text
}

// PapersContext renders saved collection items as context text.
func PapersContext(items []domain.CollectionItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Title: ")
		b.WriteString(it.PaperTitle)
		b.WriteString("\nSummary: ")
		b.WriteString(it.PaperSummary)
	}
	return b.String()
}

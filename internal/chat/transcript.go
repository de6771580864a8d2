package chat

import (
	"strings"

	"glmchat/internal/llm"
)

const (
	transcriptUser      = "用户："
	transcriptAssistant = "ChatGLM3-6B："
)

// BuildTranscript renders the banner followed by every turn of history.
func BuildTranscript(banner string, history llm.History) string {
	var b strings.Builder
	b.WriteString(banner)
	for _, t := range history {
		b.WriteString("\n\n")
		b.WriteString(transcriptUser)
		b.WriteString(t.Query)
		b.WriteString("\n\n")
		b.WriteString(transcriptAssistant)
		b.WriteString(t.Response)
	}
	return b.String()
}
